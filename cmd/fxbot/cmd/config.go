package cmd

import (
	"fmt"

	"github.com/rustyeddy/fxbot/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, validate or show configuration",
	Long: `Manage fxbot configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate a configuration file with environment overrides applied
  show     - Print the effective configuration with secrets masked

Examples:
  fxbot config init -o fxbot.yaml
  fxbot config validate -f fxbot.yaml
  fxbot config show --config fxbot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Credentials are best kept out of the file; set FXBOT_USERNAME and
FXBOT_PASSWORD in the environment or in a .env file instead.

Example:
  fxbot config init -o fxbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check that a configuration file loads and is valid once .env and
FXBOT_* overrides are applied.

Example:
  fxbot config validate -f fxbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "fxbot.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (defaults to --config)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the broker URLs and selectors, then run with:")
	fmt.Printf("  fxbot run --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configValidatePath != "" {
		cfgFile = configValidatePath
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	name := cfgFile
	if name == "" {
		name = "(defaults)"
	}
	fmt.Printf("✓ Configuration valid: %s\n", name)
	fmt.Printf("  Broker: %s (%s)\n", cfg.Broker.Driver, cfg.Broker.LoginURL)
	fmt.Printf("  Strategy: %s SMA(%d)/SMA(%d), amount %s\n",
		cfg.Strategy.Instrument, cfg.Strategy.ShortWindow, cfg.Strategy.LongWindow, cfg.Strategy.Amount)
	fmt.Printf("  Data: %s %s (period %s, interval %s)\n", cfg.Data.Source, cfg.DataSymbol(), cfg.Data.Period, cfg.Data.Interval)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	if cfg.Broker.Username == "" || cfg.Broker.Password == "" {
		fmt.Println("  ! broker credentials are not set; login will fail")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
