package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rustyeddy/fxbot/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the bot repeatedly on a cron schedule",
	Long: `Trigger one full run per cron tick until interrupted. Each run opens and
closes its own broker session. A tick that arrives while a run is still in
progress is skipped.

The schedule is a standard five-field cron expression or a descriptor such as
"@every 15m". It comes from --cron or schedule.cron in the config.

Examples:
  fxbot schedule --cron "*/15 8-17 * * 1-5"
  fxbot schedule --cron "@hourly" --now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var (
	scheduleCron string
	scheduleNow  bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron spec (overrides schedule.cron)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately before waiting for the first tick")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	spec := a.cfg.Schedule.Cron
	if scheduleCron != "" {
		spec = scheduleCron
	}
	if spec == "" {
		return fmt.Errorf("no schedule: set --cron or schedule.cron")
	}

	ctx, cancel := signalContext()
	defer cancel()

	job := func(ctx context.Context) error {
		rep, err := a.bot.Run(ctx)
		printReport(os.Stdout, rep)
		return err
	}
	s, err := scheduler.New(ctx, spec, job, a.log)
	if err != nil {
		return err
	}

	if scheduleNow {
		s.RunNow()
	}

	fmt.Printf("Scheduling %s on %s with %q (Ctrl+C to stop)\n", a.bot.Strategy().Name(), a.cfg.Strategy.Instrument, spec)
	s.Run(ctx)
	a.log.Info("schedule stopped", zap.Int("runs", s.Runs()))
	return nil
}
