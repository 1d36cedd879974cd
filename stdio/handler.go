package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/ggoodman/consent-message-go/internal/engine"
	"github.com/ggoodman/consent-message-go/internal/jsonrpc"
	"github.com/ggoodman/consent-message-go/internal/logctx"
	"github.com/google/uuid"
)

// Handler is a single-connection stdio transport that reads JSON-RPC
// requests from an io.Reader and writes responses to an io.Writer.
type Handler struct {
	svc          *consentservice.Service
	r            io.Reader
	w            io.Writer
	l            *slog.Logger
	userProvider UserProvider
	maxLineBytes int
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(svc *consentservice.Service, opts ...Option) *Handler {
	h := &Handler{
		svc:          svc,
		r:            os.Stdin,
		w:            os.Stdout,
		l:            slog.Default(),
		userProvider: OSUserProvider{},
		maxLineBytes: DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type line struct {
	data    []byte
	tooLong bool
	err     error
}

// Serve runs the read loop until EOF on the reader or the context is
// canceled. It is safe to call at most once per Handler. A read blocked in
// the underlying reader is abandoned, not interrupted, on cancellation.
func (h *Handler) Serve(ctx context.Context) error {
	log := logctx.New(h.l.Handler())
	eng := engine.NewEngine(h.svc, engine.WithLogger(log))

	ctx = logctx.WithRequestData(ctx, &logctx.RequestData{
		RequestID: uuid.NewString(),
		Transport: "stdio",
	})
	if sub, err := h.userProvider.CurrentUserID(); err != nil {
		log.WarnContext(ctx, "stdio.user.fail", slog.String("err", err.Error()))
	} else {
		ctx = engine.WithSubject(ctx, sub)
	}

	lines := make(chan line)
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	go readLines(readCtx, h.r, h.maxLineBytes, lines)

	enc := json.NewEncoder(h.w)
	log.InfoContext(ctx, "stdio.serve.start")
	for {
		var ln line
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "stdio.serve.cancelled")
			return ctx.Err()
		case ln = <-lines:
		}

		var res *jsonrpc.Response
		switch {
		case ln.tooLong:
			log.WarnContext(ctx, "stdio.line.too_long", slog.Int("limit", h.maxLineBytes))
			res = jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest,
				fmt.Sprintf("request exceeds %d bytes", h.maxLineBytes), nil)
		case len(ln.data) > 0:
			res = eng.HandleMessage(ctx, ln.data)
		}
		if res != nil {
			if err := enc.Encode(res); err != nil {
				log.ErrorContext(ctx, "stdio.write.fail", slog.String("err", err.Error()))
				return fmt.Errorf("write response: %w", err)
			}
		}

		if ln.err != nil {
			if errors.Is(ln.err, io.EOF) {
				log.InfoContext(ctx, "stdio.serve.eof")
				return nil
			}
			log.ErrorContext(ctx, "stdio.read.fail", slog.String("err", ln.err.Error()))
			return fmt.Errorf("read request: %w", ln.err)
		}
	}
}

// readLines sends each non-blank line of r to out. The final send carries the
// terminating read error (io.EOF at end of input).
func readLines(ctx context.Context, r io.Reader, limit int, out chan<- line) {
	br := bufio.NewReader(r)
	for {
		data, tooLong, err := readLine(br, limit)
		data = bytes.TrimSpace(data)
		if len(data) == 0 && !tooLong && err == nil {
			continue
		}
		select {
		case out <- line{data: data, tooLong: tooLong, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// readLine reads through the next newline. Once the line passes limit bytes
// the rest of it is consumed without being kept.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			n := len(chunk)
			if n > 0 && chunk[n-1] == '\n' {
				n--
			}
			if len(buf)+n > limit {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return buf, tooLong, err
	}
}
