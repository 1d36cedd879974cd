// Package logctx carries request scoped attributes through context.Context
// and attaches them to every slog record emitted with that context.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps a slog.Handler, adding the req, rpc and consent groups found
// in the record's context.
type Handler struct {
	slog.Handler
}

// New returns a logger whose records are enriched from context.
func New(h slog.Handler) *slog.Logger {
	if _, ok := h.(Handler); ok {
		return slog.New(h)
	}
	return slog.New(Handler{Handler: h})
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("transport", rd.Transport),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}

	if msg, ok := ctx.Value(rpcMsg{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
			slog.String("type", msg.Type),
		))
	}

	if cd, ok := ctx.Value(consentDataKey{}).(*ConsentData); ok {
		r.AddAttrs(slog.Group("consent",
			slog.String("method", cd.Method),
			slog.String("device", cd.Device),
			slog.String("subject", cd.Subject),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type rpcMsg struct{}

type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsg{}, msg)
}

type requestDataKey struct{}

type RequestData struct {
	RequestID  string
	Transport  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type consentDataKey struct{}

// ConsentData describes the consent message being produced.
type ConsentData struct {
	Method  string
	Device  string
	Subject string
}

func WithConsentData(ctx context.Context, data *ConsentData) context.Context {
	return context.WithValue(ctx, consentDataKey{}, data)
}
