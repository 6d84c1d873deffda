package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/fxbot/bot"
	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/broker/browser"
	"github.com/rustyeddy/fxbot/broker/paper"
	"github.com/rustyeddy/fxbot/config"
	"github.com/rustyeddy/fxbot/internal/logging"
	"github.com/rustyeddy/fxbot/journal"
	"github.com/rustyeddy/fxbot/market/data"
	"github.com/rustyeddy/fxbot/oanda"
	"go.uber.org/zap"
)

// loadConfig resolves the effective configuration for a command.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  10,
		MaxBackups: 5,
	})
}

func newSource(cfg *config.Config, log *zap.Logger) (data.Source, error) {
	switch cfg.Data.Source {
	case "yahoo":
		return data.NewYahoo(cfg.Data.Yahoo.BaseURL, cfg.Data.Yahoo.Proxy, log)
	case "oanda":
		return data.NewOANDA(oanda.NewClient(cfg.Data.OANDA.Token, cfg.Data.OANDA.Practice)), nil
	case "csv":
		return data.NewCSVFile(cfg.Data.CSV.Path), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

func newOpener(cfg *config.Config, log *zap.Logger) (broker.Opener, error) {
	switch cfg.Broker.Driver {
	case "paper":
		return paper.Opener(log), nil
	case "browser":
		opts, err := cfg.BrowserOptions()
		if err != nil {
			return nil, err
		}
		return browser.Opener(opts, log), nil
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	j, err := journal.Open(journal.Options{
		Type:       cfg.Journal.Type,
		RunsFile:   cfg.Journal.RunsFile,
		OrdersFile: cfg.Journal.OrdersFile,
		DBPath:     cfg.Journal.DBPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	return j, nil
}

func botConfig(cfg *config.Config) bot.Config {
	return bot.Config{
		Instrument:  cfg.Strategy.Instrument,
		Symbol:      cfg.DataSymbol(),
		Credentials: cfg.Credentials(),
		Period:      cfg.Data.Period,
		Interval:    cfg.Data.Interval,
		ShortWindow: cfg.Strategy.ShortWindow,
		LongWindow:  cfg.Strategy.LongWindow,
		Amount:      cfg.Strategy.Amount,
	}
}

// app bundles what a trading command needs. Call close when done.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	bot     *bot.Bot
	journal journal.Journal
}

// newApp wires a bot from cfg. withBroker=false leaves the bot without a
// broker, for commands that only compute signals.
func newApp(withBroker bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	src, err := newSource(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, journal: journal.Noop{}}
	var open broker.Opener
	if withBroker {
		if open, err = newOpener(cfg, log); err != nil {
			return nil, err
		}
		if a.journal, err = openJournal(cfg); err != nil {
			return nil, err
		}
	}

	a.bot, err = bot.New(botConfig(cfg), open, src, a.journal, log)
	if err != nil {
		_ = a.journal.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if err := a.journal.Close(); err != nil {
		a.log.Warn("close journal", zap.Error(err))
	}
	_ = a.log.Sync()
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
