package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ggoodman/consent-message-go/auth"
	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/ggoodman/consent-message-go/httpapi"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve consent messages as JSON-RPC over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFile, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, cmd.ErrOrStderr(), nil)
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "Listen address (default :8080)")
	f.String("public-url", "", "Public URL of the JSON-RPC endpoint; its path is the mount point")
	f.String("cache", "", "Response cache: none, memory or redis")
	f.Int("cache-size", 0, "Maximum entries held by the memory cache")
	f.Duration("cache-ttl", 0, "Lifetime of cached consent messages (0 keeps them until evicted; use --cache=none to disable)")
	f.String("redis-addr", "", "Redis address for --cache=redis")
	f.String("auth-issuer", "", "OAuth issuer; enables bearer authentication")
	f.String("auth-jwks-url", "", "JWKS URL; skips OIDC discovery")
	f.StringSlice("auth-audience", nil, "Accepted token audiences (default the public URL)")
	f.StringSlice("auth-scope", nil, "Scopes every token must carry")
	f.Bool("auth-any-scope", false, "Accept tokens carrying any one of --auth-scope")
	f.String("auth-realm", "", "Realm advertised in WWW-Authenticate challenges")
	f.Int64("max-body-bytes", 0, "Maximum request body size")
	return cmd
}

// serve runs the HTTP server until ctx is done, logging to logOut. When ready
// is non-nil it receives the bound address once the listener is open.
func serve(ctx context.Context, cfg *Config, logOut io.Writer, ready chan<- net.Addr) error {
	log := cfg.newLogger(logOut)

	svc, cleanup, err := newService(ctx, cfg, consentservice.WithLogger(log))
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []httpapi.Option{
		httpapi.WithLogger(log),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	}
	if cfg.AuthEnabled() {
		authn, err := auth.New(ctx, auth.Config{
			Issuer:         cfg.AuthIssuer,
			Audiences:      cfg.AuthAudiences,
			JWKSURL:        cfg.AuthJWKSURL,
			RequiredScopes: cfg.AuthScopes,
			AnyScope:       cfg.AuthAnyScope,
		})
		if err != nil {
			return fmt.Errorf("configure authentication: %w", err)
		}
		opts = append(opts, httpapi.WithAuthenticator(authn), httpapi.WithRealm(cfg.AuthRealm))
	}

	h, err := httpapi.New(cfg.PublicURL, svc, opts...)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.InfoContext(ctx, "consentd.serve.start",
		"addr", ln.Addr().String(),
		"public_url", cfg.PublicURL,
		"cache", cfg.Cache,
		"auth", cfg.AuthEnabled(),
	)
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	log.InfoContext(ctx, "consentd.serve.stop")
	return nil
}
