package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/costwatch/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the local journal",
	RunE:  runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.New("run journal is not configured (set history.path)")
	}

	limit, _ := cmd.Flags().GetInt("limit")

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RUN AT\tFLOW\tSTATUS\tGROSS\tNET\tALERTS\tEMAIL\n")
	for _, r := range records {
		email := r.EmailMessage
		if r.EmailError != "" {
			email = "FAILED"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.RunAt.Format("2006-01-02 15:04"),
			r.Flow, r.Status, r.Gross, r.Net, r.AlertsFired, email,
		)
	}
	return w.Flush()
}
