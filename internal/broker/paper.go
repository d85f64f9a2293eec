// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ibkr-terminal/internal/errors"
	"ibkr-terminal/internal/models"
	"ibkr-terminal/pkg/utils"
)

// PaperBroker implements the Broker interface against in-memory state.
// It backs offline mode and tests: positions, chains, and submissions are
// all deterministic and inspectable.
type PaperBroker struct {
	mu         sync.RWMutex
	positions  []models.Position
	chains     map[string]models.ExpirationMap // keyed by symbol, split per month on fetch
	submitted  []OrderRequest
	fetchCalls int
	nextConID  int64
	orderSeq   int

	// FetchErr, when set, fails every FetchExpirations call.
	FetchErr error
}

// NewPaperBroker creates a new paper broker with empty state.
func NewPaperBroker() *PaperBroker {
	return &PaperBroker{
		chains:    make(map[string]models.ExpirationMap),
		nextConID: 9000,
	}
}

// SetPositions replaces the simulated portfolio.
func (p *PaperBroker) SetPositions(positions []models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = positions
}

// SetChain installs chain data for a symbol.
func (p *PaperBroker) SetChain(symbol string, chain models.ExpirationMap) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chains[symbol] = chain
}

// Submitted returns a copy of every order handed off so far.
func (p *PaperBroker) Submitted() []OrderRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]OrderRequest, len(p.submitted))
	copy(out, p.submitted)
	return out
}

// FetchCalls returns how many upstream chain fetches have been issued.
func (p *PaperBroker) FetchCalls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetchCalls
}

// Portfolio returns a snapshot of the simulated positions.
func (p *PaperBroker) Portfolio(ctx context.Context) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Position, len(p.positions))
	copy(out, p.positions)
	return out, nil
}

// Qualify assigns a synthetic instrument id if the contract has none.
func (p *PaperBroker) Qualify(ctx context.Context, contract models.Contract) (models.Contract, error) {
	if contract.Qualified() {
		return contract, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextConID++
	contract.ConID = p.nextConID
	return contract, nil
}

// SubmitOrder records the order and fills it immediately.
func (p *PaperBroker) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, req)
	p.orderSeq++
	status := "FILLED"
	if req.Preview {
		status = "PREVIEW"
	}
	return &OrderResult{OrderID: fmt.Sprintf("paper-%d", p.orderSeq), Status: status}, nil
}

// TradingDays returns weekdays within the next n calendar days.
func (p *PaperBroker) TradingDays(ctx context.Context, n int) ([]time.Time, error) {
	return utils.WeekdaysAhead(time.Now().In(utils.EasternLocation), n), nil
}

// FetchExpirations returns installed chain data filtered to the requested
// month buckets.
func (p *PaperBroker) FetchExpirations(ctx context.Context, contract models.Contract, months []string) (models.ExpirationMap, error) {
	p.mu.Lock()
	p.fetchCalls++
	ferr := p.FetchErr
	chain := p.chains[contract.Symbol]
	p.mu.Unlock()

	if ferr != nil {
		return nil, ferr
	}
	if chain == nil {
		return nil, errors.Wrapf(errors.ErrUpstreamFetch, "no chain data for %s", contract.Symbol)
	}

	wanted := make(map[string]bool, len(months))
	for _, m := range months {
		wanted[m] = true
	}

	out := make(models.ExpirationMap)
	for date, strikes := range chain {
		if len(date) >= 6 && wanted[date[:6]] {
			out[date] = strikes
		}
	}
	return out, nil
}

// PaperFeed implements QuoteFeed with directly settable quote state.
type PaperFeed struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote

	// GreeksLag delays delta population after Subscribe, mimicking the
	// live feed where greeks trail the base quote.
	GreeksLag      time.Duration
	pendingDeltas  map[string]float64
	subscribed     map[string]bool
	subscribeCount int
}

// NewPaperFeed creates a new in-memory quote feed.
func NewPaperFeed() *PaperFeed {
	return &PaperFeed{
		quotes:        make(map[string]models.Quote),
		pendingDeltas: make(map[string]float64),
		subscribed:    make(map[string]bool),
	}
}

// SetQuote installs quote state for a key. It does not mark the key
// subscribed; staged greeks only publish once Subscribe runs.
func (f *PaperFeed) SetQuote(key string, quote models.Quote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[key] = quote
}

// StageDelta installs a delta that only becomes visible after Subscribe
// plus the configured greeks lag.
func (f *PaperFeed) StageDelta(key string, delta float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingDeltas[key] = delta
}

// SubscribeCount returns how many subscriptions were requested.
func (f *PaperFeed) SubscribeCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.subscribeCount
}

// Subscribe marks the contract subscribed and schedules staged greeks.
func (f *PaperFeed) Subscribe(contract models.Contract) error {
	key := contract.QuoteKey()
	f.mu.Lock()
	f.subscribeCount++
	f.subscribed[key] = true
	delta, staged := f.pendingDeltas[key]
	lag := f.GreeksLag
	f.mu.Unlock()

	if !staged {
		return nil
	}
	publish := func() {
		f.mu.Lock()
		q := f.quotes[key]
		d := delta
		q.Delta = &d
		f.quotes[key] = q
		f.mu.Unlock()
	}
	if lag > 0 {
		time.AfterFunc(lag, publish)
	} else {
		publish()
	}
	return nil
}

// Subscribed reports whether a subscription exists for the key.
func (f *PaperFeed) Subscribed(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.subscribed[key]
}

// Quote returns the current quote state for the key.
func (f *PaperFeed) Quote(key string) (models.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	q, ok := f.quotes[key]
	return q, ok
}

// Ensure implementations satisfy the interfaces at compile time.
var (
	_ Broker    = (*PaperBroker)(nil)
	_ QuoteFeed = (*PaperFeed)(nil)
)
