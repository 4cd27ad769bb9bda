package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// ledgerctl token --user <id> --role <rol>
// Emite un token firmado con JWT_SECRET para operar la API (integraciones y entornos de prueba).
func newTokenCmd() *cobra.Command {
	var userID, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un token JWT para la API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch role {
			case entity.RoleAdmin, entity.RoleBodeguero, entity.RoleCocinero:
			default:
				return fmt.Errorf("rol %q no reconocido", role)
			}
			if userID == "" {
				return errors.New("--user es obligatorio")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, userID, role, cfg.JWT.Issuer, cfg.JWT.Expiration)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user_id del token")
	cmd.Flags().StringVar(&role, "role", entity.RoleBodeguero, "admin | bodeguero | cocinero")
	return cmd
}
