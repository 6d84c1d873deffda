// Package bot runs one pass of the trading state machine:
// LOGIN, FETCH, SIGNAL, ORDER, DONE.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/journal"
	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/market/data"
	"github.com/rustyeddy/fxbot/pkg/id"
	"github.com/rustyeddy/fxbot/strategies"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrSessionUnavailable means no broker session could be opened.
var ErrSessionUnavailable = errors.New("broker session unavailable")

type State string

const (
	StateLogin  State = "LOGIN"
	StateFetch  State = "FETCH"
	StateSignal State = "SIGNAL"
	StateOrder  State = "ORDER"
	StateDone   State = "DONE"
)

type Outcome string

const (
	OutcomeOrderPlaced      Outcome = "ORDER_PLACED"
	OutcomeInsufficientData Outcome = "INSUFFICIENT_DATA"
	OutcomeOrderFailed      Outcome = "ORDER_FAILED"
	OutcomeAborted          Outcome = "ABORTED"
)

// Config is everything a run needs besides its collaborators.
type Config struct {
	Instrument  string // canonical, e.g. EUR_USD
	Symbol      string // data source symbol; empty means Instrument
	Credentials broker.Credentials
	Period      string
	Interval    string
	ShortWindow int
	LongWindow  int
	Amount      decimal.Decimal
}

func (c Config) Validate() error {
	if _, err := market.LookupInstrument(c.Instrument); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	if err := strategies.NewMACross(c.ShortWindow, c.LongWindow).Validate(); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	if !c.Amount.IsPositive() {
		return fmt.Errorf("bot: amount must be positive, got %s", c.Amount)
	}
	if c.Period == "" || c.Interval == "" {
		return fmt.Errorf("bot: period and interval are required")
	}
	return nil
}

// Report describes how a run ended. State is the last state entered.
type Report struct {
	RunID      string
	Instrument string
	Started    time.Time
	Finished   time.Time
	State      State
	Outcome    Outcome
	Decision   strategies.Decision
	Bars       int
	Fill       *broker.OrderFill
	OrderErr   error
}

type Bot struct {
	cfg        Config
	instrument market.Instrument
	strategy   strategies.MACross
	open       broker.Opener
	source     data.Source
	journal    journal.Journal
	log        *zap.Logger
	now        func() time.Time
}

// New validates cfg and wires the collaborators. open may be nil for a
// bot that only computes signals. j and log may be nil.
func New(cfg Config, open broker.Opener, src data.Source, j journal.Journal, log *zap.Logger) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("bot: data source is required")
	}
	if j == nil {
		j = journal.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	in, _ := market.LookupInstrument(cfg.Instrument)
	if cfg.Symbol == "" {
		cfg.Symbol = in.Name
	}
	return &Bot{
		cfg:        cfg,
		instrument: in,
		strategy:   strategies.NewMACross(cfg.ShortWindow, cfg.LongWindow),
		open:       open,
		source:     src,
		journal:    j,
		log:        log.Named("bot"),
		now:        time.Now,
	}, nil
}

func (b *Bot) Strategy() strategies.MACross { return b.strategy }

// Fetch retrieves bars from the data source. An error or an empty series
// is reported as data.ErrDataUnavailable.
func (b *Bot) Fetch(ctx context.Context) (market.Series, error) {
	s, err := b.source.Fetch(ctx, b.cfg.Symbol, b.cfg.Period, b.cfg.Interval)
	if err != nil {
		return s, fmt.Errorf("%w: %s: %w", data.ErrDataUnavailable, b.source.Name(), err)
	}
	if s.Empty() {
		return s, fmt.Errorf("%w: %s returned no bars for %s (period=%s interval=%s)",
			data.ErrDataUnavailable, b.source.Name(), b.cfg.Symbol, b.cfg.Period, b.cfg.Interval)
	}
	return s, nil
}

// Signal fetches bars and evaluates the crossover without a broker.
func (b *Bot) Signal(ctx context.Context) (strategies.Decision, market.Series, error) {
	s, err := b.Fetch(ctx)
	if err != nil {
		return strategies.Decision{}, s, err
	}
	return b.strategy.Evaluate(s), s, nil
}

// Run performs one full pass. The returned error is non-nil only for fatal
// outcomes: no session, failed login or no market data. An order the
// broker rejects is reported in Report.OrderErr and Run returns nil. The
// session is closed on every path and the run is journaled.
func (b *Bot) Run(ctx context.Context) (rep Report, err error) {
	rep = Report{
		RunID:      id.New(),
		Instrument: b.cfg.Instrument,
		Started:    b.now().UTC(),
		State:      StateLogin,
		Outcome:    OutcomeAborted,
	}
	log := b.log.With(zap.String("run_id", rep.RunID), zap.String("instrument", b.cfg.Instrument))

	defer func() {
		rep.Finished = b.now().UTC()
		b.recordRun(log, rep, err)
	}()

	// LOGIN
	if b.open == nil {
		return rep, fmt.Errorf("%w: no broker configured", ErrSessionUnavailable)
	}
	sess, err := b.open(ctx)
	if err != nil {
		log.Error("open broker session", zap.Error(err))
		return rep, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("close broker session", zap.Error(cerr))
		}
	}()

	log.Info("logging in", zap.Stringer("credentials", b.cfg.Credentials))
	if err := sess.Authenticate(ctx, b.cfg.Credentials); err != nil {
		if !errors.Is(err, broker.ErrAuthentication) {
			err = fmt.Errorf("%w: %w", broker.ErrAuthentication, err)
		}
		log.Error("login failed", zap.Error(err))
		return rep, err
	}

	// FETCH
	rep.State = StateFetch
	log.Info("fetching market data",
		zap.String("source", b.source.Name()),
		zap.String("symbol", b.cfg.Symbol),
		zap.String("period", b.cfg.Period),
		zap.String("interval", b.cfg.Interval),
	)
	series, err := b.Fetch(ctx)
	rep.Bars = series.Len()
	if err != nil {
		log.Error("market data not available; aborting", zap.Error(err))
		return rep, err
	}

	// SIGNAL
	rep.State = StateSignal
	rep.Decision = b.strategy.Evaluate(series)
	if rep.Decision.Signal == strategies.None {
		rep.Outcome = OutcomeInsufficientData
		log.Warn("no valid trading signal; no order placed",
			zap.String("reason", rep.Decision.Reason),
			zap.Int("bars", rep.Bars),
		)
		return rep, nil
	}
	log.Info("generated signal",
		zap.Stringer("signal", rep.Decision.Signal),
		zap.Float64("short_avg", rep.Decision.ShortAvg),
		zap.Float64("long_avg", rep.Decision.LongAvg),
	)

	// ORDER
	rep.State = StateOrder
	last, _ := series.Last()
	req := broker.OrderRequest{
		Instrument: b.instrument.Name,
		Display:    b.instrument.Display,
		Amount:     b.cfg.Amount,
		Side:       sideFor(rep.Decision.Signal),
		Price:      last.Close,
	}
	fill, oerr := sess.PlaceOrder(ctx, req)
	if oerr != nil {
		rep.OrderErr = oerr
		rep.Outcome = OutcomeOrderFailed
		log.Error("error during order placement", zap.Error(oerr))
		b.recordOrder(log, rep.RunID, req, broker.OrderFill{OrderID: id.New(), Time: b.now().UTC()}, oerr)
	} else {
		rep.Fill = &fill
		rep.Outcome = OutcomeOrderPlaced
		log.Info("order placed",
			zap.String("order_id", fill.OrderID),
			zap.Stringer("side", fill.Side),
			zap.String("amount", fill.Amount.String()),
		)
		b.recordOrder(log, rep.RunID, req, fill, nil)
	}

	rep.State = StateDone
	return rep, nil
}

func sideFor(s strategies.Signal) broker.Side {
	if s == strategies.Buy {
		return broker.SideBuy
	}
	return broker.SideSell
}

func (b *Bot) recordRun(log *zap.Logger, rep Report, runErr error) {
	rec := journal.RunRecord{
		RunID:      rep.RunID,
		Instrument: rep.Instrument,
		Strategy:   b.strategy.Name(),
		Started:    rep.Started,
		Finished:   rep.Finished,
		State:      string(rep.State),
		Outcome:    string(rep.Outcome),
		Signal:     rep.Decision.Signal.String(),
		ShortAvg:   rep.Decision.ShortAvg,
		LongAvg:    rep.Decision.LongAvg,
		Bars:       rep.Bars,
	}
	switch {
	case runErr != nil:
		rec.Error = runErr.Error()
	case rep.OrderErr != nil:
		rec.Error = rep.OrderErr.Error()
	}
	if err := b.journal.RecordRun(rec); err != nil {
		log.Warn("journal run", zap.Error(err))
	}
}

func (b *Bot) recordOrder(log *zap.Logger, runID string, req broker.OrderRequest, fill broker.OrderFill, orderErr error) {
	rec := journal.OrderRecord{
		OrderID:    fill.OrderID,
		RunID:      runID,
		Instrument: req.Instrument,
		Side:       req.Side.String(),
		Amount:     req.Amount.String(),
		Price:      req.Price,
		PlacedAt:   fill.Time,
		Status:     journal.StatusFilled,
	}
	if orderErr != nil {
		rec.Status = journal.StatusRejected
		rec.Error = orderErr.Error()
	}
	if err := b.journal.RecordOrder(rec); err != nil {
		log.Warn("journal order", zap.Error(err))
	}
}
