// Package browser drives a broker's web portal with a Chrome instance.
//
// Element selectors are CSS queries and are broker specific. Every page
// step waits for the element it needs to become visible instead of
// sleeping a fixed amount, and each step is bounded by Options.StepTimeout.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/pkg/id"
	"go.uber.org/zap"
)

const (
	DefaultStepTimeout = 30 * time.Second
	pollInterval       = 250 * time.Millisecond
)

type Selectors struct {
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	LoginReady string `json:"login_ready,omitempty" yaml:"login_ready,omitempty"` // visible once logged in
	LoginError string `json:"login_error,omitempty" yaml:"login_error,omitempty"` // visible when the portal rejects the login
	Instrument string `json:"instrument" yaml:"instrument"`
	Amount     string `json:"amount" yaml:"amount"`
	Buy        string `json:"buy" yaml:"buy"`
	Sell       string `json:"sell" yaml:"sell"`
	OrderReady string `json:"order_ready,omitempty" yaml:"order_ready,omitempty"` // visible once the order is accepted
}

func DefaultSelectors() Selectors {
	return Selectors{
		Username:   "#username",
		Password:   "#password",
		Instrument: "#instrument",
		Amount:     "#trade_amount",
		Buy:        "#buy_button",
		Sell:       "#sell_button",
	}
}

type Options struct {
	LoginURL     string
	OrderURL     string
	Selectors    Selectors
	Headless     bool
	ExecPath     string
	WindowWidth  int
	WindowHeight int
	StepTimeout  time.Duration
}

func (o Options) Validate() error {
	for _, f := range []struct{ name, raw string }{
		{"login url", o.LoginURL},
		{"order url", o.OrderURL},
	} {
		if f.raw == "" {
			return fmt.Errorf("browser: missing %s", f.name)
		}
		u, err := url.Parse(f.raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("browser: invalid %s %q", f.name, f.raw)
		}
	}
	s := o.Selectors
	for _, f := range []struct{ name, sel string }{
		{"username", s.Username},
		{"password", s.Password},
		{"instrument", s.Instrument},
		{"amount", s.Amount},
		{"buy", s.Buy},
		{"sell", s.Sell},
	} {
		if f.sel == "" {
			return fmt.Errorf("browser: missing %s selector", f.name)
		}
	}
	return nil
}

type runFunc func(ctx context.Context, actions ...chromedp.Action) error

// visibleFunc reports whether the element matching sel is currently shown.
type visibleFunc func(ctx context.Context, sel string) (bool, error)

type Session struct {
	opts Options
	log  *zap.Logger

	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	run           runFunc
	visible       visibleFunc
	poll          time.Duration
	authenticated bool
	closed        bool
}

// New starts a browser and returns a session bound to it. The browser
// lives until Close or until ctx is cancelled.
func New(ctx context.Context, opts Options, log *zap.Logger) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("browser")

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(log.Sugar().Errorf))

	// An empty Run launches the browser so a missing Chrome fails here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser: start chrome: %w", err)
	}
	log.Info("browser started", zap.Bool("headless", opts.Headless))

	return &Session{
		opts: opts,
		log:  log,
		ctx:  browserCtx,
		cancel: func() {
			if err := chromedp.Cancel(browserCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("close browser", zap.Error(err))
			}
			browserCancel()
			allocCancel()
		},
		run:     chromedp.Run,
		visible: isVisible,
		poll:    pollInterval,
	}, nil
}

// Opener returns a broker.Opener that starts a fresh browser per session.
func Opener(opts Options, log *zap.Logger) broker.Opener {
	return func(ctx context.Context) (broker.Session, error) {
		return New(ctx, opts, log)
	}
}

// step runs tasks under the step timeout. Cancelling ctx aborts the step.
func (s *Session) step(ctx context.Context, tasks chromedp.Tasks) error {
	stepCtx, cancel := context.WithTimeout(s.ctx, s.opts.StepTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := s.run(stepCtx, tasks); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *Session) Authenticate(ctx context.Context, creds broker.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("browser: session closed")
	}
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("%w: missing username or password", broker.ErrAuthentication)
	}

	sel := s.opts.Selectors
	tasks := chromedp.Tasks{
		chromedp.Navigate(s.opts.LoginURL),
		chromedp.WaitVisible(sel.Username, chromedp.ByQuery),
		chromedp.Clear(sel.Username, chromedp.ByQuery),
		chromedp.SendKeys(sel.Username, creds.Username, chromedp.ByQuery),
		chromedp.WaitVisible(sel.Password, chromedp.ByQuery),
		chromedp.Clear(sel.Password, chromedp.ByQuery),
		chromedp.SendKeys(sel.Password, creds.Password, chromedp.ByQuery),
		chromedp.SendKeys(sel.Password, kb.Enter, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(s.awaitLogin),
	}

	s.log.Info("navigating to broker login page", zap.String("url", s.opts.LoginURL))
	if err := s.step(ctx, tasks); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrAuthentication, err)
	}

	s.authenticated = true
	s.log.Info("logged in", zap.String("user", creds.Username))
	return nil
}

// awaitLogin polls the page after the login form is submitted until the
// outcome is known. LoginError showing means the login was rejected.
// LoginReady showing means success; without it, the password field
// disappearing is taken as success. Errors while the page navigates
// are treated as "not yet" and polling continues until ctx ends.
func (s *Session) awaitLogin(ctx context.Context) error {
	sel := s.opts.Selectors
	visible := s.visible
	if visible == nil {
		visible = isVisible
	}
	every := s.poll
	if every <= 0 {
		every = pollInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if sel.LoginError != "" {
			if ok, _ := visible(ctx, sel.LoginError); ok {
				return fmt.Errorf("login rejected: %s is visible", sel.LoginError)
			}
		}
		if sel.LoginReady != "" {
			if ok, _ := visible(ctx, sel.LoginReady); ok {
				return nil
			}
		} else if ok, err := visible(ctx, sel.Password); err == nil && !ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("login not confirmed: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// isVisible evaluates a visibility check for sel in the current page.
func isVisible(ctx context.Context, sel string) (bool, error) {
	q, err := json.Marshal(sel)
	if err != nil {
		return false, err
	}
	js := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})()`, q)

	var ok bool
	if err := chromedp.Evaluate(js, &ok).Do(ctx); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Session) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderFill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return broker.OrderFill{}, errors.New("browser: session closed")
	}
	if !s.authenticated {
		return broker.OrderFill{}, broker.ErrNotAuthenticated
	}
	if err := req.Validate(); err != nil {
		return broker.OrderFill{}, fmt.Errorf("%w: %v", broker.ErrOrderRejected, err)
	}

	sel := s.opts.Selectors
	button := sel.Buy
	if req.Side == broker.SideSell {
		button = sel.Sell
	}
	display := req.Display
	if display == "" {
		display = req.Instrument
	}

	tasks := chromedp.Tasks{
		chromedp.Navigate(s.opts.OrderURL),
		chromedp.WaitVisible(sel.Instrument, chromedp.ByQuery),
		chromedp.Clear(sel.Instrument, chromedp.ByQuery),
		chromedp.SendKeys(sel.Instrument, display, chromedp.ByQuery),
		chromedp.WaitVisible(sel.Amount, chromedp.ByQuery),
		chromedp.Clear(sel.Amount, chromedp.ByQuery),
		chromedp.SendKeys(sel.Amount, req.Amount.String(), chromedp.ByQuery),
		chromedp.WaitVisible(button, chromedp.ByQuery),
		chromedp.Click(button, chromedp.ByQuery, chromedp.NodeVisible),
	}
	if sel.OrderReady != "" {
		tasks = append(tasks, chromedp.WaitVisible(sel.OrderReady, chromedp.ByQuery))
	}

	s.log.Info("navigating to broker order page", zap.String("url", s.opts.OrderURL))
	if err := s.step(ctx, tasks); err != nil {
		return broker.OrderFill{}, fmt.Errorf("%w: %v", broker.ErrOrderRejected, err)
	}

	fill := broker.OrderFill{
		OrderID:    id.New(),
		Instrument: req.Instrument,
		Side:       req.Side,
		Amount:     req.Amount,
		Price:      req.Price,
		Time:       time.Now().UTC(),
	}
	s.log.Info("order placed",
		zap.Stringer("side", req.Side),
		zap.String("amount", req.Amount.String()),
		zap.String("instrument", display),
	)
	return fill, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("browser closed")
	return nil
}
