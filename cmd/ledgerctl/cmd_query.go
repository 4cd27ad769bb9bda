package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// ledgerctl history <product_id>
func newHistoryCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history <product_id>",
		Short: "Muestra la cadena de un producto en orden",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			entries, err := svc.Queries.GetHistory(cmd.Context(), args[0], limit, offset)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), dto.ToLedgerEntryResponses(entries))
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tFECHA\tTIPO\tDELTA\tSTOCK\tHASH")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					e.SequenceNumber, e.Timestamp.Format("2006-01-02 15:04:05"), e.MovementType,
					e.QuantityDelta.StringFixed(3), e.ResultingStock.StringFixed(3), shortHash(e.CurrentHash))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "máximo de eslabones (0 = todos)")
	cmd.Flags().IntVar(&offset, "offset", 0, "desplazamiento")
	return cmd
}

// ledgerctl snapshot <product_id>
func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <product_id>",
		Short: "Muestra el snapshot (stock actual, cola y estado de integridad)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			snap, err := svc.Queries.GetSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			resp := dto.ToSnapshotResponse(snap)
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "producto\t%s\n", resp.ProductID)
			fmt.Fprintf(w, "stock actual\t%s\n", resp.CurrentStock)
			fmt.Fprintf(w, "saldo de partida\t%s\n", resp.OpeningStock)
			fmt.Fprintf(w, "última secuencia\t%d\n", resp.LastSequenceNumber)
			fmt.Fprintf(w, "último hash\t%s\n", resp.LastTransactionHash)
			fmt.Fprintf(w, "integridad\t%s\n", resp.IntegrityStatus)
			if resp.LastVerified != nil {
				fmt.Fprintf(w, "verificado\t%s\n", resp.LastVerified.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
