package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/consent-message-go/auth"
	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/ggoodman/consent-message-go/internal/engine"
	"github.com/ggoodman/consent-message-go/internal/jsonrpc"
	"github.com/ggoodman/consent-message-go/internal/logctx"
	"github.com/ggoodman/consent-message-go/internal/wellknown"
	"github.com/ggoodman/consent-message-go/schema"
	"github.com/google/uuid"
)

var _ http.Handler = (*Handler)(nil)

var jsonMediaType = contenttype.NewMediaType("application/json")

const defaultMaxBodyBytes = 1 << 20

// writeJSONError emits a minimal JSON body for HTTP-layer rejections that
// happen before a JSON-RPC exchange is possible. Shape:
// {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger       *slog.Logger
	auth         auth.Authenticator
	realm        string
	maxBodyBytes int64
}

// WithLogger sets the logger used by the handler. If not provided,
// slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithAuthenticator requires a valid bearer token on every RPC request.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(c *newConfig) { c.auth = a }
}

// WithRealm sets the realm advertised in WWW-Authenticate challenges. Empty
// (the default) omits the attribute.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithMaxBodyBytes caps the size of a request body. Defaults to 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(c *newConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// Handler serves the consent message JSON-RPC interface over HTTP.
type Handler struct {
	mux          *http.ServeMux
	log          *slog.Logger
	eng          *engine.Engine
	auth         auth.Authenticator
	realm        string
	maxBodyBytes int64
	schemaDoc    []byte

	// Protected resource metadata, set when the authenticator names its issuer.
	prmURL string
	prmDoc []byte
}

// New constructs a Handler mounted at the path of publicEndpoint.
func New(publicEndpoint string, svc *consentservice.Service, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}

	u, err := url.Parse(publicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", publicEndpoint, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("server URL must use HTTP or HTTPS scheme, got %q", u.Scheme)
	}

	cfg := &newConfig{logger: slog.Default(), maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	log := logctx.New(cfg.logger.Handler())
	h := &Handler{
		log:          log,
		eng:          engine.NewEngine(svc, engine.WithLogger(log)),
		auth:         cfg.auth,
		realm:        cfg.realm,
		maxBodyBytes: cfg.maxBodyBytes,
		schemaDoc:    schema.Published(),
	}

	path := pathOnly(u)
	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("POST %s", path), h.handlePost)
	mux.HandleFunc(fmt.Sprintf("GET %s", joinPath(path, "schema")), h.handleGetSchema)

	if ip, ok := cfg.auth.(auth.IssuerProvider); ok && ip.Issuer() != "" {
		var scopes []string
		if sh, ok := cfg.auth.(auth.ScopeHinter); ok {
			scopes = sh.RequiredScopes()
		}
		doc, err := json.Marshal(wellknown.NewProtectedResource(u, ip.Issuer(), scopes))
		if err != nil {
			return nil, fmt.Errorf("encode protected resource metadata: %w", err)
		}
		prm := wellknown.ProtectedResourceURL(u)
		h.prmURL = prm.String()
		h.prmDoc = doc
		mux.HandleFunc(fmt.Sprintf("GET %s", prm.Path), h.handleGetResourceMetadata)
	}
	h.mux = mux
	return h, nil
}

// pathOnly returns just the URL path or "/" if empty.
func pathOnly(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func joinPath(base, elem string) string {
	return strings.TrimSuffix(base, "/") + "/" + elem
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Transport:  "http",
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// handlePost handles a single JSON-RPC request.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	if h.auth != nil {
		userInfo := h.checkAuthentication(ctx, r, w)
		if userInfo == nil {
			h.log.InfoContext(ctx, "auth.fail")
			return
		}
		ctx = engine.WithSubject(ctx, userInfo.UserID())
		h.log.InfoContext(ctx, "auth.ok")
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			h.log.WarnContext(ctx, "body.too_large", slog.Int64("limit", tooLarge.Limit))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		h.log.WarnContext(ctx, "body.read.fail", slog.String("err", err.Error()))
		return
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		writeJSONError(w, http.StatusBadRequest, "JSON-RPC batch arrays are not supported")
		h.log.WarnContext(ctx, "jsonrpc.batch.forbidden")
		return
	}

	res := h.eng.HandleMessage(ctx, body)
	if res == nil {
		w.WriteHeader(http.StatusAccepted)
		h.log.InfoContext(ctx, "http.post.accepted", slog.Duration("dur", time.Since(start)))
		return
	}

	status := http.StatusOK
	if res.Error != nil && (res.Error.Code == jsonrpc.ErrorCodeParseError || res.Error.Code == jsonrpc.ErrorCodeInvalidRequest) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.log.ErrorContext(ctx, "http.post.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "http.post.ok", slog.Int("status", status), slog.Duration("dur", time.Since(start)))
}

// handleGetResourceMetadata serves the RFC 9728 document advertised in
// challenges.
func (h *Handler) handleGetResourceMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.prmDoc); err != nil {
		h.log.ErrorContext(r.Context(), "http.prm.write.fail", slog.String("err", err.Error()))
	}
}

// handleGetSchema serves the published interface description.
func (h *Handler) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.schemaDoc); err != nil {
		h.log.ErrorContext(r.Context(), "http.schema.write.fail", slog.String("err", err.Error()))
	}
}
