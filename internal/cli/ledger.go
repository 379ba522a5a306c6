package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agrovihan/agrovihan/internal/carbon"
	"github.com/agrovihan/agrovihan/internal/config"
	"github.com/agrovihan/agrovihan/internal/ledger"
	"github.com/agrovihan/agrovihan/internal/logging"
)

// openLedger resolves the owner email and opens the ledger for read commands.
func openLedger(email string) (*ledger.SQLite, string, error) {
	email, _ = resolveIdentity(email, "")
	if email == "" {
		return nil, "", errMissingEmail
	}
	l, err := ledger.OpenSQLite(config.GetGlobalConfig().Storage.LedgerPath)
	if err != nil {
		return nil, "", err
	}
	return l, email, nil
}

func resolveOutput(output string) (string, error) {
	if output == "" {
		output = config.GetDefaultOutputFormat()
	}
	if output != outputTable && output != outputJSON {
		return "", fmt.Errorf("unsupported output format: %s", output)
	}
	return output, nil
}

func encodeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// NewTotalsCmd shows a user's running totals.
func NewTotalsCmd() *cobra.Command {
	var email, output string

	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Show total credits and CO2 saved for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := resolveOutput(output)
			if err != nil {
				return err
			}
			l, owner, err := openLedger(email)
			if err != nil {
				return err
			}
			defer l.Close()

			totals, err := l.Totals(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if out == outputJSON {
				return encodeJSON(cmd, totals)
			}

			cmd.Printf("Totals for %s\n", totals.Email)
			cmd.Printf("  Calculations:   %d\n", totals.Documents)
			cmd.Printf("  Carbon credits: %s\n", carbon.FormatFloat(totals.CarbonCredits, 2))
			cmd.Printf("  CO2 saved:      %s kg\n", carbon.FormatFloat(totals.CO2Saved, 0))
			cmd.Printf("  Verified:       %d\n", totals.Verified)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner email (defaults to identity.email)")
	cmd.Flags().StringVar(&output, "output", "", "Output format: table, json")
	return cmd
}

// NewHistoryCmd lists a user's ledger documents.
func NewHistoryCmd() *cobra.Command {
	var email, output string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List ledger documents for a user, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := resolveOutput(output)
			if err != nil {
				return err
			}
			l, owner, err := openLedger(email)
			if err != nil {
				return err
			}
			defer l.Close()

			entries, err := l.History(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if out == outputJSON {
				if entries == nil {
					entries = []ledger.Entry{}
				}
				return encodeJSON(cmd, entries)
			}
			return renderHistoryTable(cmd, owner, entries)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner email (defaults to identity.email)")
	cmd.Flags().StringVar(&output, "output", "", "Output format: table, json")
	return cmd
}

func renderHistoryTable(cmd *cobra.Command, email string, entries []ledger.Entry) error {
	if len(entries) == 0 {
		cmd.Printf("No calculations recorded for %s.\n", email)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tCO2 (kg)\tCREDITS\tSCORE\tTOTAL CREDITS\tVERIFIED")
	fmt.Fprintln(tw, "---------\t--------\t-------\t-----\t-------------\t--------")
	for _, e := range entries {
		verified := ""
		switch {
		case e.VerificationRecord:
			verified = "record " + e.TxHash
		case e.BlockchainVerified:
			verified = e.TxHash
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			carbon.FormatFloat(e.CO2Saved, 0),
			carbon.FormatFloat(e.CarbonCredits, 2),
			e.CarbonScore,
			carbon.FormatFloat(e.TotalCredits, 2),
			verified,
		)
	}
	return tw.Flush()
}

// NewVerifyCmd records a blockchain verification for the latest calculation.
func NewVerifyCmd() *cobra.Command {
	var email, txHash, wallet string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Attach a blockchain transaction to the latest calculation",
		Long: `Marks the most recent calculation for the user as blockchain verified and
appends a verification record carrying that calculation's credits.`,
		Example: `  agrovihan verify --email farmer@example.com --tx 0xabc123 --wallet 0xfeed`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			l, owner, err := openLedger(email)
			if err != nil {
				return err
			}
			defer l.Close()

			rec, err := l.Verify(ctx, owner, ledger.Verification{TxHash: txHash, WalletAddress: wallet})
			if err != nil {
				return err
			}

			logging.FromContext(ctx).Info().
				Ctx(ctx).
				Str("component", "cli").
				Str("operation", "verify").
				Str("tx_hash", txHash).
				Str("doc_id", rec.DocID).
				Msg("verification recorded")

			cmd.Printf("Verified %s credits in transaction %s (record %s)\n",
				carbon.FormatFloat(rec.CarbonCredits, 2), rec.TxHash, rec.DocID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner email (defaults to identity.email)")
	cmd.Flags().StringVar(&txHash, "tx", "", "blockchain transaction hash")
	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet address that signed the transaction")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}
