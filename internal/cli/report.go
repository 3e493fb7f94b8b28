package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch costs and send the daily report email",
	Long: `Fetch month-to-date spend, daily trend, top services, credits, forecast,
and week-over-week comparison, evaluate budget and anomaly alerts, and send
the report email.`,
	RunE: runReportCmd,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	runner, closer, err := buildRunner(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closer()

	resp := runner.Run(cmd.Context())
	printJSON(resp.Body)
	if resp.StatusCode != 200 {
		return fmt.Errorf("report run failed")
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
