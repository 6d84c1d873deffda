// Package paper is an in-process broker portal used for dry runs. It never
// talks to a real broker.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/pkg/id"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errClosed = errors.New("paper: session closed")

type Session struct {
	mu            sync.Mutex
	log           *zap.Logger
	authenticated bool
	closed        bool
	user          string
	fills         []broker.OrderFill
	now           func() time.Time
}

func New(log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{log: log.Named("paper"), now: time.Now}
}

// Opener returns a broker.Opener that hands out fresh paper sessions.
func Opener(log *zap.Logger) broker.Opener {
	return func(ctx context.Context) (broker.Session, error) {
		return New(log), nil
	}
}

func (s *Session) Authenticate(ctx context.Context, creds broker.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("%w: missing username or password", broker.ErrAuthentication)
	}

	s.authenticated = true
	s.user = creds.Username
	s.log.Info("paper login accepted", zap.String("user", creds.Username))
	return nil
}

func (s *Session) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderFill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return broker.OrderFill{}, errClosed
	}
	if !s.authenticated {
		return broker.OrderFill{}, broker.ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return broker.OrderFill{}, err
	}
	if err := req.Validate(); err != nil {
		return broker.OrderFill{}, fmt.Errorf("%w: %v", broker.ErrOrderRejected, err)
	}

	fill := broker.OrderFill{
		OrderID:    id.New(),
		Instrument: req.Instrument,
		Side:       req.Side,
		Amount:     req.Amount,
		Price:      req.Price,
		Time:       s.now().UTC(),
	}
	s.fills = append(s.fills, fill)

	notional := req.Amount.Mul(decimal.NewFromFloat(req.Price)).Round(2)
	s.log.Info("paper order filled",
		zap.String("order_id", fill.OrderID),
		zap.String("instrument", req.Instrument),
		zap.Stringer("side", req.Side),
		zap.String("amount", req.Amount.String()),
		zap.Float64("price", req.Price),
		zap.String("notional", notional.StringFixed(2)),
	)
	return fill, nil
}

// Fills returns a copy of the orders filled so far.
func (s *Session) Fills() []broker.OrderFill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]broker.OrderFill, len(s.fills))
	copy(out, s.fills)
	return out
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.log.Debug("paper session closed", zap.Int("fills", len(s.fills)))
	}
	return nil
}
