package main

import (
	"encoding/json"
	"fmt"

	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/ggoodman/consent-message-go/schema"
	"github.com/spf13/cobra"
)

func newStandardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standards",
		Short: "Print the supported standards as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(consentservice.New().SupportedStandards(cmd.Context()))
		},
	}
}

func newSchemaCmd() *cobra.Command {
	var check, published bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the interface",
		Long: `Prints the JSON Schema generated from the wire types. With --published
prints the document shipped with the binary instead. With --check compares the
two and fails on the first difference.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case check:
				if err := schema.Check(); err != nil {
					return err
				}
				_, err := fmt.Fprintln(out, "published schema matches generated schema")
				return err
			case published:
				_, err := out.Write(schema.Published())
				return err
			default:
				b, err := schema.JSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Compare the generated schema with the published one")
	cmd.Flags().BoolVar(&published, "published", false, "Print the published schema")
	cmd.MarkFlagsMutuallyExclusive("check", "published")
	return cmd
}
