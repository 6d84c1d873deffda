package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fxbot",
	Short: "A moving-average crossover FX trading bot",
	Long: `fxbot logs into a broker's web portal, fetches recent FX bars, computes a
simple moving-average crossover signal and places a BUY or SELL order.

Every run walks the same states: LOGIN, FETCH, SIGNAL, ORDER, DONE.
Failed logins and missing market data abort the run. Too few bars for the
long average is not an error: no order is placed. A rejected order is
reported but does not fail the run.

Configuration comes from a YAML/JSON file (--config), an optional .env file
and FXBOT_* environment variables, in increasing order of precedence.

Examples:
  fxbot config init -o fxbot.yaml
  fxbot signal --config fxbot.yaml
  fxbot run --config fxbot.yaml
  fxbot schedule --cron "*/15 8-17 * * 1-5"
  fxbot journal runs`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var (
	cfgFile  string
	envFile  string
	logLevel string
	logFile  string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file with FXBOT_* variables (default ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this rotated file")
}
