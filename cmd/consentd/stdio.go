package main

import (
	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/ggoodman/consent-message-go/stdio"
	"github.com/spf13/cobra"
)

func newStdioCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Serve consent messages as newline-delimited JSON-RPC on stdin/stdout",
		Long: `Reads one JSON-RPC request per line from stdin and writes one response
per line to stdout. Logs go to stderr. Exits when stdin is closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFile, cmd.Flags())
			if err != nil {
				return err
			}
			log := cfg.newLogger(cmd.ErrOrStderr())

			svc, cleanup, err := newService(cmd.Context(), cfg, consentservice.WithLogger(log))
			if err != nil {
				return err
			}
			defer cleanup()

			opts := []stdio.Option{
				stdio.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
				stdio.WithLogger(log),
				stdio.WithMaxLineBytes(int(cfg.MaxBodyBytes)),
			}
			if user != "" {
				opts = append(opts, stdio.WithUserProvider(stdio.StaticUser(user)))
			}
			return stdio.NewHandler(svc, opts...).Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Subject recorded in logs (default the OS user)")
	cmd.Flags().String("cache", "", "Response cache: none, memory or redis")
	cmd.Flags().Duration("cache-ttl", 0, "Lifetime of cached consent messages (0 keeps them until evicted; use --cache=none to disable)")
	cmd.Flags().String("redis-addr", "", "Redis address for --cache=redis")
	cmd.Flags().Int64("max-body-bytes", 0, "Largest accepted request line in bytes")
	return cmd
}
