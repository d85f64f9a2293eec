package trading

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ibkr-terminal/internal/broker"
	"ibkr-terminal/internal/errors"
	"ibkr-terminal/internal/models"
)

// GreeksGate waits for a contract's live delta to populate before a
// delta-based filter can be applied. Greeks trail the base quote
// subscription by a small, variable amount, so the wait polls on a short
// interval under a deadline: a feed that never populates
// (market closed, unsupported instrument) must surface as an error, not
// an infinite loop.
type GreeksGate struct {
	feed     broker.QuoteFeed
	timeout  time.Duration
	interval time.Duration
	log      zerolog.Logger
}

// NewGreeksGate creates a gate polling every interval, bounded by timeout.
func NewGreeksGate(feed broker.QuoteFeed, timeout, interval time.Duration, log zerolog.Logger) *GreeksGate {
	return &GreeksGate{feed: feed, timeout: timeout, interval: interval, log: log}
}

// Delta returns the contract's live delta, subscribing the quote first
// if no subscription exists yet. Returns ErrGreeksTimeout if delta never
// populates within the bound.
func (g *GreeksGate) Delta(ctx context.Context, contract models.Contract) (float64, error) {
	key := contract.QuoteKey()

	if !g.feed.Subscribed(key) {
		g.log.Info().Str("quote", key).Msg("quote not subscribed, adding now")
		if err := g.feed.Subscribe(contract); err != nil {
			return 0, errors.Wrapf(err, "subscribe %s", key)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if quote, ok := g.feed.Quote(key); ok && quote.Delta != nil {
			return *quote.Delta, nil
		}
		select {
		case <-ctx.Done():
			return 0, errors.Wrapf(errors.ErrGreeksTimeout, "%s after %s", key, g.timeout)
		case <-ticker.C:
		}
	}
}
