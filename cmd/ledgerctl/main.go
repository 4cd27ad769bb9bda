// ledgerctl herramienta de operación del libro de stock: migraciones, verificación, historial y reset.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operación del libro de stock encadenado",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("json", false, "salida en JSON")
	root.AddCommand(
		newMigrateCmd(),
		newVerifyCmd(),
		newVerifyAllCmd(),
		newResetCmd(),
		newHistoryCmd(),
		newSnapshotCmd(),
		newTokenCmd(),
	)
	return root
}

// boot carga la configuración del entorno y arma los servicios.
func boot(ctx context.Context) (*bootstrap.Services, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	svc, err := bootstrap.New(ctx, cfg, log, nil)
	if err != nil {
		return nil, nil, err
	}
	return svc, log, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
