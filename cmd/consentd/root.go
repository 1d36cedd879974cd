package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ggoodman/consent-message-go/cache"
	"github.com/ggoodman/consent-message-go/cache/memory"
	"github.com/ggoodman/consent-message-go/cache/redis"
	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var envFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consentd <command> [flags]",
		Short: "ICRC-21 consent message service",
		Long: `consentd renders human-readable consent messages for canister calls.

  consentd serve                   # JSON-RPC over HTTP
  consentd stdio                   # JSON-RPC over stdin/stdout
  consentd preview Alice --line 20x3
  consentd schema --check`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before reading the environment")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	cmd.AddCommand(
		newServeCmd(),
		newStdioCmd(),
		newStandardsCmd(),
		newSchemaCmd(),
		newPreviewCmd(),
		newCacheCmd(),
	)
	return cmd
}

// newService builds the consent service with the cache selected by cfg. The
// returned cleanup releases the cache.
func newService(ctx context.Context, cfg *Config, opts ...consentservice.Option) (*consentservice.Service, func(), error) {
	c, err := openCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if c != nil {
		opts = append(opts, consentservice.WithCache(c, cfg.CacheTTL))
		cleanup = func() { _ = c.Close() }
	}
	return consentservice.New(opts...), cleanup, nil
}

func openCache(ctx context.Context, cfg *Config) (cache.Cache, error) {
	switch cfg.Cache {
	case "memory":
		c, err := memory.New(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		return c, nil
	case "redis":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c, err := redis.Dial(dialCtx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		return nil, nil
	}
}
