// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"
	"time"

	"ibkr-terminal/internal/models"
)

// Broker defines the interface for broker operations. Contract
// qualification, order transmission, and the trading calendar live behind
// the broker connection; this terminal only plans against them.
type Broker interface {
	// Positions
	Portfolio(ctx context.Context) ([]models.Position, error)

	// Contract resolution
	Qualify(ctx context.Context, contract models.Contract) (models.Contract, error)

	// Orders
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)

	// Market calendar: trading days within the next n calendar days.
	TradingDays(ctx context.Context, n int) ([]time.Time, error)

	// Option chain data: expirations and strikes for the given YYYYMM
	// month buckets. Subject to upstream pacing, so callers carry a
	// generous timeout.
	FetchExpirations(ctx context.Context, contract models.Contract, months []string) (models.ExpirationMap, error)
}

// QuoteFeed defines the interface for the live quote subscription state.
type QuoteFeed interface {
	// Subscribe requests a live quote stream for the contract. Greeks for
	// option subscriptions populate with a small, variable lag.
	Subscribe(contract models.Contract) error

	// Subscribed reports whether a subscription already exists.
	Subscribed(key string) bool

	// Quote returns the current quote state for a subscription key.
	Quote(key string) (models.Quote, bool)
}

// OrderRequest describes one closing order hand-off to the broker.
type OrderRequest struct {
	Contract models.Contract
	Quantity float64 // signed; negation of the held quantity
	Algo     string
	Preview  bool // construct without transmitting
}

// OrderResult represents the result of an order submission.
type OrderResult struct {
	OrderID string
	Status  string
}
