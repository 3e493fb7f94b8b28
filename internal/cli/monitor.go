package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check month-to-date spend against the budget threshold",
	Long: `Compare gross month-to-date spend against the configured budget and send
a breach email. The alert fires at most once per calendar month; the
suppression marker is kept in SSM Parameter Store.`,
	RunE: runMonitorCmd,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitorCmd(cmd *cobra.Command, _ []string) error {
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

	resp := runner.Monitor(cmd.Context())
	printJSON(resp.Body)
	if resp.StatusCode != 200 {
		return fmt.Errorf("monitor run failed")
	}
	return nil
}
