package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// errChainInvalid hace que el proceso termine con código distinto de cero.
var errChainInvalid = errors.New("hay cadenas corruptas")

// ledgerctl verify <product_id>
func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <product_id>",
		Short: "Verifica la cadena de un producto",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.Verifier.VerifyChainIntegrity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printReports(cmd, []*entity.IntegrityReport{report}); err != nil {
				return err
			}
			if !report.Valid {
				return errChainInvalid
			}
			return nil
		},
	}
}

// ledgerctl verify-all
func newVerifyAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-all",
		Short: "Verifica todas las cadenas con historial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			reports, err := svc.Verifier.VerifyAllChains(cmd.Context())
			if err != nil {
				return err
			}
			if err := printReports(cmd, reports); err != nil {
				return err
			}
			for _, r := range reports {
				if !r.Valid {
					return errChainInvalid
				}
			}
			return nil
		},
	}
}

func printReports(cmd *cobra.Command, reports []*entity.IntegrityReport) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return writeJSON(out, dto.ToVerifyAllResponse(reports))
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCTO\tESLABONES\tESTADO\tDETALLE")
	for _, r := range reports {
		state := "OK"
		if !r.Valid {
			state = "CORRUPTA"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.ProductID, r.EntriesChecked, state, r.Message)
		for _, d := range r.Errors {
			fmt.Fprintf(w, "\t#%d\t%s\tesperado=%s actual=%s\n", d.SequenceNumber, d.Field, d.Expected, d.Actual)
		}
	}
	fmt.Fprintf(w, "%d cadenas verificadas\n", len(reports))
	return w.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
