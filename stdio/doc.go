// Package stdio serves the consent message JSON-RPC interface over a pair of
// byte streams, by default stdin and stdout. It suits running the service as
// a subprocess of a wallet or signer.
//
// Framing is newline-delimited: each input line holds one JSON-RPC request
// and each response is written as one line. Requests are handled in order.
// Notifications get no response; lines that are not valid JSON get a parse
// error with a null id. Blank lines are ignored.
//
//	h := stdio.NewHandler(consentservice.New())
//	if err := h.Serve(ctx); err != nil { log.Fatal(err) }
//
// Serve returns nil when the input reaches EOF and ctx.Err() when ctx is
// canceled.
package stdio
