package stdio

import (
	"io"
	"log/slog"
)

// DefaultMaxLineBytes bounds a single request line.
const DefaultMaxLineBytes = 1 << 20

// Option customizes a Handler. Nil arguments leave the default in place.
type Option func(*Handler)

// WithIO sets both streams. Defaults are os.Stdin and os.Stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger sets the logger. It must not write to the output stream, which
// carries response frames.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithUserProvider sets how the subject recorded against each consent
// request is resolved.
func WithUserProvider(up UserProvider) Option {
	return func(h *Handler) {
		if up != nil {
			h.userProvider = up
		}
	}
}

// WithMaxLineBytes caps the length of a request line, excluding its
// newline. Longer lines are discarded and answered with an invalid request
// error. Non-positive values keep DefaultMaxLineBytes.
func WithMaxLineBytes(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxLineBytes = n
		}
	}
}
