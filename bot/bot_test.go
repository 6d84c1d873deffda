package bot

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/broker/paper"
	"github.com/rustyeddy/fxbot/journal"
	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/market/data"
	"github.com/rustyeddy/fxbot/strategies"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession records calls and can be told to fail.
type fakeSession struct {
	authErr  error
	orderErr error

	authCalls  int
	orderCalls int
	closeCalls int
	lastOrder  broker.OrderRequest
}

func (f *fakeSession) Authenticate(ctx context.Context, c broker.Credentials) error {
	f.authCalls++
	return f.authErr
}

func (f *fakeSession) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderFill, error) {
	f.orderCalls++
	f.lastOrder = req
	if f.orderErr != nil {
		return broker.OrderFill{}, f.orderErr
	}
	return broker.OrderFill{OrderID: "FILL1", Instrument: req.Instrument, Side: req.Side, Amount: req.Amount, Price: req.Price, Time: time.Now()}, nil
}

func (f *fakeSession) Close() error {
	f.closeCalls++
	return nil
}

func (f *fakeSession) opener() broker.Opener {
	return func(context.Context) (broker.Session, error) { return f, nil }
}

type fakeSource struct {
	series market.Series
	err    error
	calls  int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, symbol, period, interval string) (market.Series, error) {
	f.calls++
	return f.series, f.err
}

// memJournal keeps records in memory.
type memJournal struct {
	runs   []journal.RunRecord
	orders []journal.OrderRecord
	err    error
}

func (m *memJournal) RecordRun(r journal.RunRecord) error {
	m.runs = append(m.runs, r)
	return m.err
}

func (m *memJournal) RecordOrder(o journal.OrderRecord) error {
	m.orders = append(m.orders, o)
	return m.err
}

func (m *memJournal) Close() error { return nil }

func closes(vs ...float64) market.Series {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	cs := make([]market.Candle, len(vs))
	for i, v := range vs {
		cs[i] = market.Candle{Open: v, High: v, Low: v, Close: v, Time: start.Add(time.Duration(i) * time.Minute)}
	}
	return market.NewSeries("EUR_USD", cs)
}

func ramp(n int, step float64) market.Series {
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = 1.1 + float64(i)*step
	}
	return closes(vs...)
}

func testConfig() Config {
	return Config{
		Instrument:  "EUR_USD",
		Credentials: broker.Credentials{Username: "u", Password: "p"},
		Period:      "1d",
		Interval:    "1m",
		ShortWindow: 5,
		LongWindow:  20,
		Amount:      decimal.NewFromInt(1000),
	}
}

func newTestBot(t *testing.T, sess *fakeSession, src *fakeSource, j journal.Journal) *Bot {
	t.Helper()
	var open broker.Opener
	if sess != nil {
		open = sess.opener()
	}
	b, err := New(testConfig(), open, src, j, nil)
	require.NoError(t, err)
	return b
}

func TestRun_BuyOrderPlaced(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{}
	src := &fakeSource{series: ramp(20, 0.001)}
	j := &memJournal{}

	rep, err := newTestBot(t, sess, src, j).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, rep.State)
	assert.Equal(t, OutcomeOrderPlaced, rep.Outcome)
	assert.Equal(t, strategies.Buy, rep.Decision.Signal)
	assert.Equal(t, 20, rep.Bars)
	require.NotNil(t, rep.Fill)
	assert.Equal(t, "FILL1", rep.Fill.OrderID)
	assert.NotEmpty(t, rep.RunID)
	assert.False(t, rep.Finished.Before(rep.Started))

	assert.Equal(t, 1, sess.authCalls)
	assert.Equal(t, 1, sess.orderCalls)
	assert.Equal(t, 1, sess.closeCalls)
	assert.Equal(t, broker.SideBuy, sess.lastOrder.Side)
	assert.Equal(t, "EUR_USD", sess.lastOrder.Instrument)
	assert.Equal(t, "EUR/USD", sess.lastOrder.Display)
	assert.True(t, sess.lastOrder.Amount.Equal(decimal.NewFromInt(1000)))
	assert.InDelta(t, 1.119, sess.lastOrder.Price, 1e-9)

	require.Len(t, j.runs, 1)
	assert.Equal(t, rep.RunID, j.runs[0].RunID)
	assert.Equal(t, "ORDER_PLACED", j.runs[0].Outcome)
	assert.Equal(t, "BUY", j.runs[0].Signal)
	assert.Equal(t, "SMA(5)/SMA(20)", j.runs[0].Strategy)
	require.Len(t, j.orders, 1)
	assert.Equal(t, journal.StatusFilled, j.orders[0].Status)
	assert.Equal(t, "1000", j.orders[0].Amount)
	assert.Equal(t, rep.RunID, j.orders[0].RunID)
}

func TestRun_SellOrderPlaced(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{}
	rep, err := newTestBot(t, sess, &fakeSource{series: ramp(30, -0.001)}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strategies.Sell, rep.Decision.Signal)
	assert.Equal(t, broker.SideSell, sess.lastOrder.Side)
	assert.Equal(t, OutcomeOrderPlaced, rep.Outcome)
}

func TestRun_EqualAveragesSell(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{}
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 1.25
	}
	rep, err := newTestBot(t, sess, &fakeSource{series: closes(flat...)}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strategies.Sell, rep.Decision.Signal)
	assert.Equal(t, broker.SideSell, sess.lastOrder.Side)
}

func TestRun_AuthenticationFailure(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{authErr: errors.New("bad password")}
	src := &fakeSource{series: ramp(20, 0.001)}
	j := &memJournal{}

	rep, err := newTestBot(t, sess, src, j).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, broker.ErrAuthentication)
	assert.Contains(t, err.Error(), "bad password")

	assert.Equal(t, StateLogin, rep.State)
	assert.Equal(t, OutcomeAborted, rep.Outcome)
	assert.Equal(t, 0, src.calls, "no fetch after failed login")
	assert.Equal(t, 0, sess.orderCalls)
	assert.Equal(t, 1, sess.closeCalls)

	require.Len(t, j.runs, 1)
	assert.Equal(t, "LOGIN", j.runs[0].State)
	assert.Contains(t, j.runs[0].Error, "bad password")
	assert.Empty(t, j.orders)
}

func TestRun_AuthenticationSentinelKept(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{authErr: broker.ErrAuthentication}
	_, err := newTestBot(t, sess, &fakeSource{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, broker.ErrAuthentication)
	assert.Equal(t, broker.ErrAuthentication.Error(), err.Error())
}

func TestRun_DataUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  *fakeSource
	}{
		{"empty series", &fakeSource{series: market.Series{Instrument: "EUR_USD"}}},
		{"fetch error", &fakeSource{err: errors.New("connection refused")}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := &fakeSession{}
			rep, err := newTestBot(t, sess, tt.src, nil).Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, data.ErrDataUnavailable)
			assert.Equal(t, StateFetch, rep.State)
			assert.Equal(t, OutcomeAborted, rep.Outcome)
			assert.Equal(t, strategies.None, rep.Decision.Signal)
			assert.Equal(t, 0, sess.orderCalls)
			assert.Equal(t, 1, sess.closeCalls)
		})
	}
}

func TestRun_InsufficientData(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 4, 19} {
		sess := &fakeSession{}
		j := &memJournal{}
		rep, err := newTestBot(t, sess, &fakeSource{series: ramp(n, 0.001)}, j).Run(context.Background())
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, OutcomeInsufficientData, rep.Outcome)
		assert.Equal(t, StateSignal, rep.State)
		assert.Equal(t, strategies.None, rep.Decision.Signal)
		assert.Equal(t, n, rep.Bars)
		assert.Equal(t, 0, sess.orderCalls)
		assert.Equal(t, 1, sess.closeCalls)
		assert.Empty(t, j.orders)
		require.Len(t, j.runs, 1)
		assert.Equal(t, "NONE", j.runs[0].Signal)
		assert.Empty(t, j.runs[0].Error)
	}
}

func TestRun_NaNCloseNoOrder(t *testing.T) {
	t.Parallel()

	series := ramp(20, 0.001)
	series.Candles[19].Close = math.NaN()
	sess := &fakeSession{}
	j := &memJournal{}

	rep, err := newTestBot(t, sess, &fakeSource{series: series}, j).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInsufficientData, rep.Outcome)
	assert.Equal(t, strategies.None, rep.Decision.Signal)
	assert.Equal(t, 0, sess.orderCalls)
	assert.Equal(t, 1, sess.closeCalls)
	assert.Empty(t, j.orders)
}

func TestRun_OrderFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{orderErr: errors.New("button not found")}
	j := &memJournal{}
	rep, err := newTestBot(t, sess, &fakeSource{series: ramp(20, 0.001)}, j).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, rep.State)
	assert.Equal(t, OutcomeOrderFailed, rep.Outcome)
	assert.Nil(t, rep.Fill)
	require.Error(t, rep.OrderErr)
	assert.Contains(t, rep.OrderErr.Error(), "button not found")
	assert.Equal(t, 1, sess.closeCalls)

	require.Len(t, j.orders, 1)
	assert.Equal(t, journal.StatusRejected, j.orders[0].Status)
	assert.NotEmpty(t, j.orders[0].OrderID)
	assert.Equal(t, "button not found", j.orders[0].Error)
	require.Len(t, j.runs, 1)
	assert.Equal(t, "ORDER_FAILED", j.runs[0].Outcome)
}

func TestRun_SessionUnavailable(t *testing.T) {
	t.Parallel()

	src := &fakeSource{series: ramp(20, 0.001)}
	failing := func(context.Context) (broker.Session, error) { return nil, errors.New("chrome not found") }

	b, err := New(testConfig(), failing, src, nil, nil)
	require.NoError(t, err)
	rep, err := b.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionUnavailable)
	assert.Contains(t, err.Error(), "chrome not found")
	assert.Equal(t, OutcomeAborted, rep.Outcome)
	assert.Equal(t, 0, src.calls)

	b, err = New(testConfig(), nil, src, nil, nil)
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionUnavailable)
}

func TestRun_JournalFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	j := &memJournal{err: errors.New("disk full")}
	rep, err := newTestBot(t, &fakeSession{}, &fakeSource{series: ramp(20, 0.001)}, j).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderPlaced, rep.Outcome)
	assert.Len(t, j.runs, 1)
}

func TestRun_PaperSession(t *testing.T) {
	t.Parallel()

	b, err := New(testConfig(), paper.Opener(nil), &fakeSource{series: ramp(25, 0.0005)}, nil, nil)
	require.NoError(t, err)

	rep, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderPlaced, rep.Outcome)
	require.NotNil(t, rep.Fill)
	assert.Len(t, rep.Fill.OrderID, 26)
	assert.Equal(t, broker.SideBuy, rep.Fill.Side)
}

func TestRun_PaperRejectsEmptyCredentials(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Credentials = broker.Credentials{}
	b, err := New(cfg, paper.Opener(nil), &fakeSource{series: ramp(25, 0.0005)}, nil, nil)
	require.NoError(t, err)

	_, err = b.Run(context.Background())
	assert.ErrorIs(t, err, broker.ErrAuthentication)
}

func TestSignal(t *testing.T) {
	t.Parallel()

	b := newTestBot(t, nil, &fakeSource{series: ramp(20, 0.001)}, nil)
	d, s, err := b.Signal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strategies.Buy, d.Signal)
	assert.Equal(t, 20, s.Len())
	assert.InDelta(t, 1.117, d.ShortAvg, 1e-9)
	assert.InDelta(t, 1.1095, d.LongAvg, 1e-9)

	b = newTestBot(t, nil, &fakeSource{}, nil)
	_, _, err = b.Signal(context.Background())
	assert.ErrorIs(t, err, data.ErrDataUnavailable)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown instrument", func(c *Config) { c.Instrument = "XXX" }, "unknown instrument"},
		{"bad windows", func(c *Config) { c.ShortWindow = 30 }, "must be less than"},
		{"zero amount", func(c *Config) { c.Amount = decimal.Zero }, "amount must be positive"},
		{"negative amount", func(c *Config) { c.Amount = decimal.NewFromInt(-5) }, "amount must be positive"},
		{"no interval", func(c *Config) { c.Interval = "" }, "period and interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, nil, &fakeSource{}, nil, nil)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}

	_, err := New(testConfig(), nil, nil, nil, nil)
	assert.ErrorContains(t, err, "data source is required")
}
