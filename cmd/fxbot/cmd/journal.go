package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/fxbot/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the run journal",
	Long: `Query and display run and order records from the SQLite journal.

Subcommands:
  runs  - List runs started on a day (default today)
  run   - Show one run and its orders

Examples:
  fxbot journal runs
  fxbot journal runs 2024-01-15
  fxbot journal run <run-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs [YYYY-MM-DD]",
	Short: "List runs started on a day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a run and its orders",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path)")
}

func openSQLiteJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runID := args[0]
	rec, err := j.GetRun(runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	orders, err := j.ListOrdersByRun(runID)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	fmt.Println(journal.FormatRunOrg(rec, orders))
	return nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	loc := time.Local
	day := time.Now().In(loc).Format("2006-01-02")
	if len(args) == 1 {
		day = args[0]
	}
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	runs, err := j.ListRunsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	orders := make(map[string][]journal.OrderRecord, len(runs))
	for _, r := range runs {
		if orders[r.RunID], err = j.ListOrdersByRun(r.RunID); err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
	}

	if len(runs) == 0 {
		fmt.Printf("No runs on %s\n", day)
		return nil
	}
	fmt.Println(journal.FormatRunsOrg(runs, orders))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
