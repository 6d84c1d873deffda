// Package config loads the bot configuration from a YAML or JSON file,
// an optional .env file and FXBOT_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/broker/browser"
	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/market/data"
	"github.com/rustyeddy/fxbot/strategies"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete bot configuration
type Config struct {
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
}

// BrokerConfig describes how to reach the broker portal
type BrokerConfig struct {
	Driver    string            `json:"driver" yaml:"driver"` // "browser" or "paper"
	LoginURL  string            `json:"login_url" yaml:"login_url"`
	OrderURL  string            `json:"order_url" yaml:"order_url"`
	Username  string            `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string            `json:"password,omitempty" yaml:"password,omitempty"`
	Selectors browser.Selectors `json:"selectors" yaml:"selectors"`
	Browser   BrowserConfig     `json:"browser" yaml:"browser"`
}

// BrowserConfig contains Chrome launch parameters
type BrowserConfig struct {
	Headless     bool   `json:"headless" yaml:"headless"`
	ExecPath     string `json:"exec_path,omitempty" yaml:"exec_path,omitempty"`
	Timeout      string `json:"timeout" yaml:"timeout"` // per page step, e.g. "30s"
	WindowWidth  int    `json:"window_width,omitempty" yaml:"window_width,omitempty"`
	WindowHeight int    `json:"window_height,omitempty" yaml:"window_height,omitempty"`
}

// StrategyConfig contains strategy parameters
type StrategyConfig struct {
	Instrument  string          `json:"instrument" yaml:"instrument"`
	ShortWindow int             `json:"short_window" yaml:"short_window"`
	LongWindow  int             `json:"long_window" yaml:"long_window"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
}

// DataConfig selects the market data source
type DataConfig struct {
	Source   string       `json:"source" yaml:"source"`                     // "yahoo", "oanda" or "csv"
	Symbol   string       `json:"symbol,omitempty" yaml:"symbol,omitempty"` // defaults to the instrument
	Period   string       `json:"period" yaml:"period"`
	Interval string       `json:"interval" yaml:"interval"`
	Yahoo    YahooConfig  `json:"yahoo" yaml:"yahoo"`
	OANDA    OANDAConfig  `json:"oanda" yaml:"oanda"`
	CSV      CSVSrcConfig `json:"csv" yaml:"csv"`
}

type YahooConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Proxy   string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

type OANDAConfig struct {
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
	Practice bool   `json:"practice" yaml:"practice"`
}

type CSVSrcConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	RunsFile   string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	OrdersFile string `json:"orders_file,omitempty" yaml:"orders_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

type ScheduleConfig struct {
	Cron string `json:"cron,omitempty" yaml:"cron,omitempty"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Driver:    "browser",
			LoginURL:  "https://www.examplebroker.com/login",
			OrderURL:  "https://www.examplebroker.com/order",
			Selectors: browser.DefaultSelectors(),
			Browser: BrowserConfig{
				Timeout: "30s",
			},
		},
		Strategy: StrategyConfig{
			Instrument:  "EUR_USD",
			ShortWindow: 5,
			LongWindow:  20,
			Amount:      decimal.NewFromInt(1000),
		},
		Data: DataConfig{
			Source:   "yahoo",
			Period:   "1d",
			Interval: "1m",
			OANDA:    OANDAConfig{Practice: true},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./fxbot.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromFile reads a YAML or JSON file over the defaults. It does not
// validate; apply environment overrides first, then call Validate.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the file at
// path (if any), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process
// environment without overriding variables that are already set. When
// path is empty ./.env is tried and silently skipped if absent.
func LoadDotEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. lookup is
// usually os.LookupEnv. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("FXBOT_BROKER_DRIVER", &c.Broker.Driver)
	str("FXBOT_LOGIN_URL", &c.Broker.LoginURL)
	str("FXBOT_ORDER_URL", &c.Broker.OrderURL)
	str("FXBOT_USERNAME", &c.Broker.Username)
	str("FXBOT_PASSWORD", &c.Broker.Password)
	str("FXBOT_INSTRUMENT", &c.Strategy.Instrument)
	str("FXBOT_DATA_SOURCE", &c.Data.Source)
	str("OANDA_TOKEN", &c.Data.OANDA.Token)
	str("FXBOT_DB_PATH", &c.Journal.DBPath)
	str("FXBOT_LOG_LEVEL", &c.Log.Level)
	str("FXBOT_SCHEDULE", &c.Schedule.Cron)

	for _, kv := range []struct {
		key string
		dst *int
	}{
		{"FXBOT_SHORT_WINDOW", &c.Strategy.ShortWindow},
		{"FXBOT_LONG_WINDOW", &c.Strategy.LongWindow},
	} {
		v, ok := lookup(kv.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", kv.key, err)
		}
		*kv.dst = n
	}

	if v, ok := lookup("FXBOT_TRADE_AMOUNT"); ok && v != "" {
		amt, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("FXBOT_TRADE_AMOUNT: %w", err)
		}
		c.Strategy.Amount = amt
	}
	if v, ok := lookup("FXBOT_HEADLESS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FXBOT_HEADLESS: %w", err)
		}
		c.Broker.Browser.Headless = b
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Broker.Password != "" {
		out.Broker.Password = "****"
	}
	if out.Data.OANDA.Token != "" {
		out.Data.OANDA.Token = "****"
	}
	return &out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Broker.Driver {
	case "browser":
		opts, err := c.BrowserOptions()
		if err != nil {
			return err
		}
		if err := opts.Validate(); err != nil {
			return err
		}
	case "paper":
	default:
		return fmt.Errorf("broker.driver must be 'browser' or 'paper'")
	}

	if c.Strategy.Instrument == "" {
		return fmt.Errorf("strategy.instrument is required")
	}
	if _, err := market.LookupInstrument(c.Strategy.Instrument); err != nil {
		return err
	}
	if err := strategies.NewMACross(c.Strategy.ShortWindow, c.Strategy.LongWindow).Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if !c.Strategy.Amount.IsPositive() {
		return fmt.Errorf("strategy.amount must be positive")
	}

	if c.Data.Period == "" || c.Data.Interval == "" {
		return fmt.Errorf("data.period and data.interval are required")
	}
	switch c.Data.Source {
	case "yahoo":
	case "oanda":
		if c.Data.OANDA.Token == "" {
			return fmt.Errorf("data.oanda.token (or OANDA_TOKEN) required for OANDA source")
		}
		if _, err := data.ParseSpan(c.Data.Interval); err != nil {
			return fmt.Errorf("data.interval: %w", err)
		}
		if _, err := data.ParseSpan(c.Data.Period); err != nil {
			return fmt.Errorf("data.period: %w", err)
		}
	case "csv":
		if c.Data.CSV.Path == "" {
			return fmt.Errorf("data.csv.path required for CSV source")
		}
	default:
		return fmt.Errorf("data.source must be 'yahoo', 'oanda' or 'csv'")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.RunsFile == "" || c.Journal.OrdersFile == "" {
			return fmt.Errorf("journal runs_file and orders_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Log.Format != "" && c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	return nil
}

// Credentials returns the broker login.
func (c *Config) Credentials() broker.Credentials {
	return broker.Credentials{Username: c.Broker.Username, Password: c.Broker.Password}
}

// BrowserOptions converts the broker section to browser driver options.
func (c *Config) BrowserOptions() (browser.Options, error) {
	var timeout time.Duration
	if c.Broker.Browser.Timeout != "" {
		d, err := time.ParseDuration(c.Broker.Browser.Timeout)
		if err != nil || d <= 0 {
			return browser.Options{}, fmt.Errorf("broker.browser.timeout: invalid duration %q", c.Broker.Browser.Timeout)
		}
		timeout = d
	}
	return browser.Options{
		LoginURL:     c.Broker.LoginURL,
		OrderURL:     c.Broker.OrderURL,
		Selectors:    c.Broker.Selectors,
		Headless:     c.Broker.Browser.Headless,
		ExecPath:     c.Broker.Browser.ExecPath,
		WindowWidth:  c.Broker.Browser.WindowWidth,
		WindowHeight: c.Broker.Browser.WindowHeight,
		StepTimeout:  timeout,
	}, nil
}

// DataSymbol is the symbol handed to the data source.
func (c *Config) DataSymbol() string {
	if c.Data.Symbol != "" {
		return c.Data.Symbol
	}
	return c.Strategy.Instrument
}
