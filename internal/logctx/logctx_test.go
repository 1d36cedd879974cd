package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandler_AddsContextGroups(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.NewJSONHandler(&buf, nil)).With("component", "test")

	ctx := WithRequestData(context.Background(), &RequestData{RequestID: "r1", Transport: "http", Method: "POST", Path: "/rpc"})
	ctx = WithRPCMessage(ctx, &RPCMessage{Method: "icrc10_supported_standards", ID: "1", Type: "request"})
	ctx = WithConsentData(ctx, &ConsentData{Method: "greet", Device: "LineDisplay"})
	log.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if rec["component"] != "test" {
		t.Fatalf("expected With attrs to survive, got %v", rec)
	}
	req, _ := rec["req"].(map[string]any)
	if req["id"] != "r1" || req["transport"] != "http" {
		t.Fatalf("unexpected req group %v", rec["req"])
	}
	rpc, _ := rec["rpc"].(map[string]any)
	if rpc["method"] != "icrc10_supported_standards" {
		t.Fatalf("unexpected rpc group %v", rec["rpc"])
	}
	cd, _ := rec["consent"].(map[string]any)
	if cd["method"] != "greet" || cd["device"] != "LineDisplay" {
		t.Fatalf("unexpected consent group %v", rec["consent"])
	}
}

func TestHandler_NoContext(t *testing.T) {
	var buf bytes.Buffer
	New(slog.NewJSONHandler(&buf, nil)).Info("plain")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	for _, k := range []string{"req", "rpc", "consent"} {
		if _, ok := rec[k]; ok {
			t.Fatalf("unexpected %s group in %v", k, rec)
		}
	}
}
