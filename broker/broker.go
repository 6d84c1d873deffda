package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAuthentication means the portal did not accept the login.
	ErrAuthentication = errors.New("broker: authentication failed")
	// ErrNotAuthenticated means an order was attempted before a successful login.
	ErrNotAuthenticated = errors.New("broker: session not authenticated")
	// ErrOrderRejected means the order form could not be submitted.
	ErrOrderRejected = errors.New("broker: order submission failed")
)

// Session is an authenticated conversation with a broker portal.
// A session is owned by one caller and must be closed when done.
type Session interface {
	Authenticate(ctx context.Context, creds Credentials) error
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderFill, error)
	Close() error
}

// Opener acquires a new Session.
type Opener func(ctx context.Context) (Session, error)

type Credentials struct {
	Username string
	Password string
}

// String never prints the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s:****", c.Username)
}

type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("unknown side %q (want BUY|SELL)", s)
	}
}

type OrderRequest struct {
	Instrument string          // canonical, e.g. EUR_USD
	Display    string          // as typed into the form, e.g. EUR/USD
	Amount     decimal.Decimal // trade amount in units of the base currency
	Side       Side
	Price      float64 // reference price (last close); informational
}

func (r OrderRequest) Validate() error {
	if r.Instrument == "" {
		return fmt.Errorf("order: missing instrument")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("order: amount must be positive, got %s", r.Amount)
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("order: invalid side %d", r.Side)
	}
	return nil
}

type OrderFill struct {
	OrderID    string
	Instrument string
	Side       Side
	Amount     decimal.Decimal
	Price      float64
	Time       time.Time
}
