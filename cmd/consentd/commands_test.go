package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/consent-message-go/consent"
	"github.com/ggoodman/consent-message-go/internal/candid"
	"github.com/ggoodman/consent-message-go/internal/jsonrpc"
	"github.com/google/go-cmp/cmp"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStandardsCmd(t *testing.T) {
	out, err := run(t, "", "standards")
	if err != nil {
		t.Fatalf("standards: %v", err)
	}
	var got []consent.SupportedStandard
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	names := []string{got[0].Name, got[1].Name}
	if diff := cmp.Diff([]string{"ICRC-10", "ICRC-21"}, names); diff != "" {
		t.Fatalf("standards mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaCmd(t *testing.T) {
	out, err := run(t, "", "schema", "--check")
	if err != nil {
		t.Fatalf("schema --check: %v", err)
	}
	if !strings.Contains(out, "matches") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, "", "schema")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if _, ok := doc["$defs"]; !ok {
		t.Fatalf("generated schema has no $defs")
	}

	if _, err := run(t, "", "schema", "--check", "--published"); err == nil {
		t.Fatalf("expected mutually exclusive flag error")
	}
}

func TestPreviewCmd_Render(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "generic",
			args: []string{"preview", "Alice"},
			want: []string{"Produce the following greeting text:", "> Hello, Alice!"},
		},
		{
			name: "fields",
			args: []string{"preview", "Alice", "--fields"},
			want: []string{"Produce greeting text", "Name", "Alice"},
		},
		{
			name: "line display",
			args: []string{"preview", "Alice", "--line", "20x3"},
			want: []string{"Page 1/2", "Page 2/2", "Produce the", "following greeting", `text: "Hello,`, `Alice!"`},
		},
		{
			name: "raw argument",
			args: []string{"preview", "--arg", base64.StdEncoding.EncodeToString(candid.EncodeText("Bob"))},
			want: []string{"Hello, Bob!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			if err != nil {
				t.Fatalf("preview: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Fatalf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestPreviewCmd_JSON(t *testing.T) {
	out, err := run(t, "", "preview", "Alice", "--json")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	var res consent.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := consent.NewGenericMessage("Produce the following greeting text:\n> Hello, Alice!")
	if res.Ok == nil {
		t.Fatalf("expected Ok, got %+v", res.Err)
	}
	if diff := cmp.Diff(want, res.Ok.ConsentMessage); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}

	out, err = run(t, "", "preview", "Alice", "--line", "0x3", "--json")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Err == nil || !errors.Is(res.Err, consent.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %+v", res)
	}
}

func TestPreviewCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no argument", []string{"preview"}, "a name or --arg is required"},
		{"both arguments", []string{"preview", "Alice", "--arg", "AA=="}, "not both"},
		{"bad geometry", []string{"preview", "Alice", "--line", "20"}, "want CHARSxLINES"},
		{"geometry overflow", []string{"preview", "Alice", "--line", "70000x3"}, "characters per line"},
		{"unknown method", []string{"preview", "Alice", "--method", "transfer"}, "Only the 'greet' method is supported"},
		{"zero width", []string{"preview", "Alice", "--line", "0x3"}, "characters_per_line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStdioCmd(t *testing.T) {
	in := `{"jsonrpc":"2.0","id":7,"method":"icrc10_supported_standards"}` + "\n"
	out, err := run(t, in, "stdio", "--user", "tester", "--cache", "none", "--log-level", "error")
	if err != nil {
		t.Fatalf("stdio: %v", err)
	}
	var res jsonrpc.Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.ID.String() != "7" || res.Error != nil {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestServe(t *testing.T) {
	clearEnv(t)
	cfg := &Config{
		Addr:            "127.0.0.1:0",
		PublicURL:       "http://127.0.0.1/rpc",
		LogLevel:        "error",
		LogFormat:       "text",
		Cache:           "memory",
		CacheSize:       16,
		CacheTTL:        time.Minute,
		RedisAddr:       "localhost:6379",
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: time.Second,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, &bytes.Buffer{}, ready) }()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"icrc21_canister_call_consent_message","params":{"method":"greet","arg":"` +
		base64.StdEncoding.EncodeToString(candid.EncodeText("Alice")) +
		`","user_preferences":{"metadata":{"language":"en","utc_offset_minutes":null},"device_spec":null}}}`
	res, err := http.Post("http://"+addr.String()+"/rpc", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", res.StatusCode)
	}
	var rpc jsonrpc.Response
	if err := json.NewDecoder(res.Body).Decode(&rpc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(string(rpc.Result), "Hello, Alice!") {
		t.Fatalf("unexpected result %s", rpc.Result)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestCacheCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "flush all", args: []string{"cache", "flush"}, want: "flushed 1 method(s)"},
		{name: "flush named", args: []string{"cache", "flush", "greet", "transfer"}, want: "flushed 2 method(s)"},
		{name: "forget", args: []string{"cache", "forget", "Alice", "--line", "20x3"}, want: "forgot greet request"},
		{name: "forget bad geometry", args: []string{"cache", "forget", "Alice", "--line", "20"}, wantErr: "want CHARSxLINES"},
		{name: "no cache", args: []string{"cache", "flush", "--cache", "none"}, wantErr: "no cache configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestCacheTTLHelp(t *testing.T) {
	for _, name := range []string{"serve", "stdio"} {
		cmd, _, err := newRootCmd().Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		usage := cmd.Flags().Lookup("cache-ttl").Usage
		if strings.Contains(usage, "disables") || !strings.Contains(usage, "until evicted") {
			t.Fatalf("%s --cache-ttl usage misdescribes a zero TTL: %q", name, usage)
		}
	}
}
