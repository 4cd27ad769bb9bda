package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ledgerctl reset <product_id> --actor <user_id> --yes
func newResetCmd() *cobra.Command {
	var (
		actor   string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "reset <product_id>",
		Short: "Borra la cadena de un producto (irreversible; conserva el stock actual)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("operación irreversible: confirme con --yes")
			}
			if actor == "" {
				return errors.New("--actor es obligatorio (queda en el log de auditoría)")
			}
			svc, _, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			// Quien opera la CLI tiene acceso directo a la base: actúa como administrador.
			res, err := svc.Resetter.ResetProductLedger(cmd.Context(), args[0],
				entity.Actor{UserID: actor, Role: entity.RoleAdmin})
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), dto.ResetResponse{
					ProductID: res.ProductID, DeletedEntries: res.DeletedEntries,
					CarriedStock: res.CarriedStock, ResetAt: res.ResetAt,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cadena de %s reiniciada: %d eslabones eliminados, stock conservado %s\n",
				res.ProductID, res.DeletedEntries, res.CarriedStock)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "usuario que ejecuta el reset")
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirma el borrado")
	return cmd
}
