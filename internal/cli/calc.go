package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agrovihan/agrovihan/internal/carbon"
	"github.com/agrovihan/agrovihan/internal/config"
	"github.com/agrovihan/agrovihan/internal/logging"
	"github.com/agrovihan/agrovihan/internal/syncer"
)

const tabPadding = 2

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// errMissingEmail is returned when neither --email nor identity.email is set.
var errMissingEmail = errors.New("--email is required (or set identity.email with 'agrovihan config set')")

// calcFlags holds the practice inputs of the calc command.
type calcFlags struct {
	practices carbon.Practices
	email     string
	username  string
	output    string
}

// NewCalcCmd creates the calc command that computes and records a calculation.
func NewCalcCmd() *cobra.Command {
	var flags calcFlags

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate CO2 savings and carbon credits",
		Long: `Calculates the CO2 saved by the given farming practices and the carbon
credits it earns (1 credit per 1000 kg).

The calculation is written to the ledger when online. When offline, or when
the ledger write fails, it is queued locally and uploaded by 'queue sync' or
by 'status --watch' once connectivity returns.`,
		Example: `  # Reference scenario: 2130 kg, 2.13 credits
  agrovihan calc --email farmer@example.com --trees 10 --organic-acres 2 --solar-pumps 1 --rainwater

  # JSON output
  agrovihan calc --email farmer@example.com --cows-reduced 3 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd, flags)
		},
	}

	p := &flags.practices
	cmd.Flags().Float64Var(&p.TreesPlanted, "trees", 0, "number of trees planted")
	cmd.Flags().Float64Var(&p.OrganicFertilizerAcres, "organic-acres", 0, "acres using organic fertilizer")
	cmd.Flags().Float64Var(&p.SolarPumps, "solar-pumps", 0, "number of solar pumps")
	cmd.Flags().Float64Var(&p.NoTillAcres, "no-till-acres", 0, "acres under no-till farming")
	cmd.Flags().Float64Var(&p.CoverCropAcres, "cover-crop-acres", 0, "acres with cover crops")
	cmd.Flags().Float64Var(&p.CowsReduced, "cows-reduced", 0, "reduction in number of cows")
	cmd.Flags().BoolVar(&p.RainwaterHarvesting, "rainwater", false, "rainwater harvesting adopted")
	cmd.Flags().Float64Var(&p.ElectricPumps, "electric-pumps", 0, "number of efficient electric pumps")
	cmd.Flags().StringVar(&flags.email, "email", "", "owner email (defaults to identity.email)")
	cmd.Flags().StringVar(&flags.username, "username", "", "owner display name (defaults to identity.username)")
	cmd.Flags().StringVar(&flags.output, "output", "", "Output format: table, json (defaults to output.default_format)")

	return cmd
}

func runCalc(cmd *cobra.Command, flags calcFlags) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	if err := flags.practices.Validate(); err != nil {
		return err
	}
	output := flags.output
	if output == "" {
		output = config.GetDefaultOutputFormat()
	}
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unsupported output format: %s", output)
	}

	email, username := resolveIdentity(flags.email, flags.username)
	if email == "" {
		return errMissingEmail
	}

	svc, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	out, err := svc.coordinator.Record(ctx, syncer.Owner{Email: email, Username: username}, flags.practices)
	if err != nil {
		return err
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "cli").
		Str("operation", "calc").
		Float64("co2_kg", out.Result.TotalCO2).
		Bool("saved", out.Saved()).
		Bool("queued", out.Queued()).
		Msg("calculation recorded")

	if output == outputJSON {
		return renderCalcJSON(cmd, email, username, flags.practices, out)
	}
	return renderCalcTable(cmd, out)
}

// calcJSONOutput is the JSON form of a recorded calculation.
type calcJSONOutput struct {
	Email       string           `json:"email"`
	Username    string           `json:"username,omitempty"`
	Practices   carbon.Practices `json:"practices"`
	Result      carbon.Result    `json:"result"`
	CarbonScore int              `json:"carbonScore"`
	Impact      []string         `json:"impact"`
	Status      string           `json:"status"`
	DocID       string           `json:"docId,omitempty"`
	QueuedID    string           `json:"queuedId,omitempty"`
	Warning     string           `json:"warning,omitempty"`
}

// persistenceStatus names where a calculation ended up.
func persistenceStatus(out syncer.Outcome) string {
	switch {
	case out.Saved():
		return "saved"
	case out.Queued():
		return "queued"
	default:
		return "unsaved"
	}
}

func renderCalcJSON(
	cmd *cobra.Command,
	email, username string,
	practices carbon.Practices,
	out syncer.Outcome,
) error {
	doc := calcJSONOutput{
		Email:       email,
		Username:    username,
		Practices:   practices,
		Result:      out.Result,
		CarbonScore: carbon.Score(out.Result.TotalCO2),
		Impact:      carbon.ImpactStatements(out.Result.TotalCO2),
		Status:      persistenceStatus(out),
		QueuedID:    out.QueuedID,
		Warning:     out.Warning,
	}
	if out.Entry != nil {
		doc.DocID = out.Entry.DocID
	}
	if doc.Impact == nil {
		doc.Impact = []string{}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding calculation JSON: %w", err)
	}
	return nil
}

func renderCalcTable(cmd *cobra.Command, out syncer.Outcome) error {
	b := out.Result.Breakdown
	rows := []struct {
		label string
		co2   float64
	}{
		{"Trees planted", b.TreesCO2},
		{"Organic fertilizer", b.OrganicFertCO2},
		{"Solar pumps", b.SolarPumpCO2},
		{"No-till farming", b.NoTillCO2},
		{"Cover crops", b.CoverCropCO2},
		{"Cow reduction", b.CowReductionCO2},
		{"Rainwater harvesting", b.RainwaterCO2},
		{"Electric pumps", b.ElectricPumpCO2},
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "PRACTICE\tCO2 SAVED (kg)")
	fmt.Fprintln(tw, "--------\t--------------")
	for _, r := range rows {
		if r.co2 == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.label, carbon.FormatFloat(r.co2, 0))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\n", carbon.FormatFloat(out.Result.TotalCO2, 0))
	if err := tw.Flush(); err != nil {
		return err
	}

	cmd.Printf("\nCarbon credits: %s\n", carbon.FormatFloat(out.Result.Credits, 2))
	cmd.Printf("Carbon score:   %d\n", carbon.Score(out.Result.TotalCO2))

	if impact := carbon.ImpactStatements(out.Result.TotalCO2); len(impact) > 0 {
		cmd.Println("\nEnvironmental impact:")
		for _, s := range impact {
			cmd.Printf("  - %s\n", s)
		}
	}

	cmd.Println()
	switch {
	case out.Saved():
		cmd.Printf("Saved to ledger (document %s)\n", out.Entry.DocID)
	case out.Queued():
		cmd.Printf("Saved offline (record %s). It will sync when you are back online.\n", out.QueuedID)
		if out.RemoteErr != nil {
			cmd.PrintErrf("Warning: %v\n", out.RemoteErr)
		}
	default:
		cmd.PrintErrf("Warning: %s\n", out.Warning)
	}
	return nil
}
