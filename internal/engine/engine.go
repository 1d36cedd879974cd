package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ggoodman/consent-message-go/consent"
	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/ggoodman/consent-message-go/internal/jsonrpc"
	"github.com/ggoodman/consent-message-go/internal/logctx"
)

// JSON-RPC method names served by the Engine.
const (
	MethodSupportedStandards = "icrc10_supported_standards"
	MethodConsentMessage     = "icrc21_canister_call_consent_message"
)

// Engine maps JSON-RPC requests onto a consentservice.Service. It is
// transport agnostic: the HTTP and stdio transports feed it raw messages and
// write back whatever response it produces.
type Engine struct {
	svc *consentservice.Service
	log *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(svc *consentservice.Service, opts ...EngineOption) *Engine {
	e := &Engine{
		svc: svc,
		log: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// HandleMessage parses and dispatches one raw JSON-RPC message. It returns nil
// when no response must be written (notifications).
func (e *Engine) HandleMessage(ctx context.Context, msg []byte) *jsonrpc.Response {
	req, id, rpcErr := jsonrpc.ParseRequest(msg)
	if rpcErr != nil {
		e.log.InfoContext(ctx, "rpc.inbound.invalid", slog.Int("code", int(rpcErr.Code)), slog.String("err", rpcErr.Message))
		return &jsonrpc.Response{JSONRPCVersion: jsonrpc.ProtocolVersion, Error: rpcErr, ID: id}
	}

	typ := "request"
	if req.IsNotification() {
		typ = "notification"
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String(), Type: typ})

	res, err := e.HandleRequest(ctx, req)
	if err != nil {
		e.log.ErrorContext(ctx, "rpc.inbound.fail", slog.String("err", err.Error()))
		res = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if req.IsNotification() {
		return nil
	}
	return res
}

// HandleRequest dispatches a parsed request. Consent failures are returned as
// the Err arm of a successful result; only protocol faults become JSON-RPC
// errors.
func (e *Engine) HandleRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	switch req.Method {
	case MethodSupportedStandards:
		return e.handleSupportedStandards(ctx, req)
	case MethodConsentMessage:
		return e.handleConsentMessage(ctx, req)
	}

	e.log.InfoContext(ctx, "rpc.inbound.unknown_method")
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found", nil), nil
}

func (e *Engine) handleSupportedStandards(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	if !emptyParams(req.Params) {
		e.log.InfoContext(ctx, "rpc.inbound.invalid", slog.String("err", "unexpected params"))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil), nil
	}

	standards := e.svc.SupportedStandards(ctx)
	e.log.InfoContext(ctx, "rpc.inbound.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("standard_count", len(standards)))
	return jsonrpc.NewResultResponse(req.ID, standards)
}

func (e *Engine) handleConsentMessage(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	params, err := decodeConsentParams(req.Params)
	if err != nil {
		e.log.InfoContext(ctx, "rpc.inbound.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", err.Error()), nil
	}

	device := consent.GenericDisplay.String()
	if params.UserPreferences.DeviceSpec != nil {
		device = params.UserPreferences.DeviceSpec.Kind.String()
	}
	cd := &logctx.ConsentData{Method: params.Method, Device: device}
	if prev, ok := ctx.Value(consentSubjectKey{}).(string); ok {
		cd.Subject = prev
	}
	ctx = logctx.WithConsentData(ctx, cd)

	info, err := e.svc.ConsentMessage(ctx, params)
	var ce *consent.Error
	switch {
	case err == nil:
		e.log.InfoContext(ctx, "rpc.inbound.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewResultResponse(req.ID, consent.Result{Ok: info})
	case errors.As(err, &ce):
		e.log.InfoContext(ctx, "rpc.inbound.rejected", slog.String("kind", ce.Kind.String()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewResultResponse(req.ID, consent.Result{Err: ce})
	default:
		e.log.ErrorContext(ctx, "rpc.inbound.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil), nil
	}
}

// decodeConsentParams accepts the request either by name (an object) or
// positionally (a one element array).
func decodeConsentParams(raw json.RawMessage) (*consent.ConsentMessageRequest, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errors.New("missing consent message request")
	}
	if raw[0] == '[' {
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil {
			return nil, err
		}
		if len(positional) != 1 {
			return nil, errors.New("expected exactly one positional parameter")
		}
		raw = positional[0]
	}

	var req consent.ConsentMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func emptyParams(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}

type consentSubjectKey struct{}

// WithSubject records the authenticated caller so it is attached to consent
// log records.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, consentSubjectKey{}, subject)
}
