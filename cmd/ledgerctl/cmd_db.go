package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ledgerctl migrate
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el esquema del libro (idempotente)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "esquema aplicado")
			return nil
		},
	}
}
