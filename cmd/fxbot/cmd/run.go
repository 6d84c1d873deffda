package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/fxbot/bot"
	"github.com/rustyeddy/fxbot/strategies"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot once: login, fetch, signal, order",
	Long: `Perform one full run against the configured broker.

The run logs in, fetches bars for the configured instrument, computes the
SMA crossover and places a BUY or SELL order for the configured amount.
Each run is recorded in the journal.

Exit status is 1 when login fails or no market data is available.

Example:
  fxbot run --config fxbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	s := a.bot.Strategy()
	fmt.Printf("Running %s on %s (driver: %s, data: %s %s/%s)\n",
		s.Name(), a.cfg.Strategy.Instrument, a.cfg.Broker.Driver,
		a.cfg.Data.Source, a.cfg.Data.Period, a.cfg.Data.Interval)

	rep, err := a.bot.Run(ctx)
	printReport(os.Stdout, rep)
	return err
}

func printReport(w io.Writer, rep bot.Report) {
	fmt.Fprintf(w, "  Run: %s (%s, reached %s)\n", rep.RunID, rep.Finished.Sub(rep.Started).Round(time.Millisecond), rep.State)
	if rep.Bars > 0 {
		fmt.Fprintf(w, "  Bars: %d\n", rep.Bars)
	}
	d := rep.Decision
	if d.Signal != strategies.None {
		fmt.Fprintf(w, "  Signal: %s (short %.5f, long %.5f)\n", d.Signal, d.ShortAvg, d.LongAvg)
	}

	switch rep.Outcome {
	case bot.OutcomeOrderPlaced:
		fmt.Fprintf(w, "✓ Order placed: %s %s %s (order %s)\n",
			rep.Fill.Side, rep.Fill.Amount, rep.Fill.Instrument, rep.Fill.OrderID)
	case bot.OutcomeOrderFailed:
		fmt.Fprintf(w, "✗ Order failed: %v\n", rep.OrderErr)
	case bot.OutcomeInsufficientData:
		fmt.Fprintf(w, "- No valid trading signal; no order placed (%s)\n", d.Reason)
	default:
		fmt.Fprintln(w, "✗ Run aborted")
	}
}
