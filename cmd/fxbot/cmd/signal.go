package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Fetch bars and print the current signal without trading",
	Long: `Fetch market data and evaluate the SMA crossover. No broker is contacted
and nothing is journaled.

Example:
  fxbot signal --config fxbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runSignal,
}

func init() {
	rootCmd.AddCommand(signalCmd)
}

func runSignal(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	d, series, err := a.bot.Signal(ctx)
	if err != nil {
		return err
	}

	last, _ := series.Last()
	fmt.Printf("%s %s\n", a.bot.Strategy().Name(), series.Instrument)
	fmt.Printf("  Bars: %d (last %s close %.5f)\n", series.Len(), last.Time.Format("2006-01-02 15:04"), last.Close)
	fmt.Printf("  Short avg: %.5f\n", d.ShortAvg)
	fmt.Printf("  Long avg:  %.5f\n", d.LongAvg)
	fmt.Printf("  Signal: %s (%s)\n", d.Signal, d.Reason)
	return nil
}
