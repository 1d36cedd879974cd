package main

import (
	"fmt"

	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache <command>",
		Short: "Maintain the shared consent message cache",
		Long: `Drops cached consent messages from the configured backend. Only a
redis cache outlives this process, so these commands are meant to run
against the same REDIS_ADDR as a running consentd serve.`,
		Args: cobra.NoArgs,
	}
	pf := cmd.PersistentFlags()
	pf.String("cache", "", "Response cache: memory or redis")
	pf.String("redis-addr", "", "Redis address for --cache=redis")
	cmd.AddCommand(newCacheFlushCmd(), newCacheForgetCmd())
	return cmd
}

func newCacheFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush [method...]",
		Short: "Drop every cached message of the given methods (default all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := cacheService(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			methods := args
			if len(methods) == 0 {
				methods = svc.Methods()
			}
			if err := svc.FlushCache(cmd.Context(), methods...); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "flushed %d method(s)\n", len(methods))
			return err
		},
	}
}

func newCacheForgetCmd() *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   "forget [name...]",
		Short: "Drop the cached message of a single request",
		Long: `Takes the same request flags as preview and drops the cached reply to
exactly that request.

  consentd cache forget Alice --line 20x3 --cache redis`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request(args)
			if err != nil {
				return err
			}
			svc, cleanup, err := cacheService(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Forget(cmd.Context(), req); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "forgot %s request\n", req.Method)
			return err
		},
	}
	rf.register(cmd)
	return cmd
}

func cacheService(cmd *cobra.Command) (*consentservice.Service, func(), error) {
	cfg, err := loadConfig(envFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cache == "none" {
		return nil, nil, fmt.Errorf("%w: pass --cache or set CONSENTD_CACHE", consentservice.ErrNoCache)
	}
	return newService(cmd.Context(), cfg, consentservice.WithLogger(cfg.newLogger(cmd.ErrOrStderr())))
}
