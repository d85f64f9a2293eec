package trading

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibkr-terminal/internal/broker"
	"ibkr-terminal/internal/errors"
	"ibkr-terminal/internal/models"
)

func newTestPlanner(t *testing.T, b *broker.PaperBroker, feed *broker.PaperFeed) *Planner {
	t.Helper()
	gate := NewGreeksGate(feed, 100*time.Millisecond, time.Millisecond, zerolog.Nop())
	return NewPlanner(b, feed, gate, zerolog.Nop())
}

func TestPlanEvictionPercentage(t *testing.T) {
	// Held AAPL +200, evict 50% -> closing order of exactly -100.
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{pos("AAPL", "", models.SecStock, 200)})
	feed.SetQuote("AAPL", models.Quote{Bid: 99, Ask: 101})

	req, err := NewEvictionRequest("AAPL", "50%", 0, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSubmitted, outcomes[0].Status)
	assert.Equal(t, -100.0, outcomes[0].Quantity)
	assert.Equal(t, AlgoMidprice, outcomes[0].Algo)
	assert.NotEmpty(t, outcomes[0].OrderID)

	submitted := b.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, -100.0, submitted[0].Quantity)
}

func TestPlanEvictionShortFuture(t *testing.T) {
	// Held MES future -3 -> PRTMKT closing order of +3.
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{pos("MES", "MESU2", models.SecFuture, -3)})
	feed.SetQuote("MESU2", models.Quote{Bid: 5000, Ask: 5001})

	req, err := NewEvictionRequest("MES*", "-1", 0, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSubmitted, outcomes[0].Status)
	assert.Equal(t, 3.0, outcomes[0].Quantity)
	assert.Equal(t, AlgoProtectedMkt, outcomes[0].Algo)
	assert.True(t, outcomes[0].Contract.Qualified())
}

func TestPlanEvictionNoMatch(t *testing.T) {
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()

	req, err := NewEvictionRequest("TSLA", "-1", 0, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	assert.True(t, errors.Is(err, errors.ErrNoMatch))
	assert.Empty(t, outcomes)
	assert.Empty(t, b.Submitted())
}

func TestPlanEvictionQuoteUnavailable(t *testing.T) {
	// One contract has no two-sided market; the other still submits.
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{
		pos("AAPL", "", models.SecStock, 100),
		pos("AMD", "", models.SecStock, 50),
	})
	feed.SetQuote("AAPL", models.Quote{Bid: 99})             // one-sided
	feed.SetQuote("AMD", models.Quote{Bid: 150, Ask: 150.5}) // fine

	req, err := NewEvictionRequest("*", "-1", 0, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	byStatus := map[OutcomeStatus]ContractOutcome{}
	for _, o := range outcomes {
		byStatus[o.Status] = o
	}
	assert.True(t, errors.Is(byStatus[OutcomeFailed].Err, errors.ErrQuoteUnavailable))
	assert.Equal(t, "AMD", byStatus[OutcomeSubmitted].Contract.Symbol)
}

func optPos(symbol string, strike, qty float64) models.Position {
	return models.Position{
		Contract: models.Contract{
			Symbol:      symbol,
			LocalSymbol: fmt.Sprintf("%s 261218 %g", symbol, strike),
			SecType:     models.SecOption,
			Strike:      strike,
			Expiration:  "20261218",
		},
		Quantity: qty,
	}
}

func TestPlanEvictionDeltaFilter(t *testing.T) {
	// abs(delta) >= threshold keeps; below skips.
	deep := optPos("XYZ", 80, 2)
	far := optPos("XYZ", 180, 2)

	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{deep, far})

	deepDelta, farDelta := 0.92, 0.15
	feed.SetQuote(deep.Contract.QuoteKey(), models.Quote{Bid: 20, Ask: 20.4, Delta: &deepDelta})
	feed.SetQuote(far.Contract.QuoteKey(), models.Quote{Bid: 0.1, Ask: 0.2, Delta: &farDelta})

	req, err := NewEvictionRequest("XYZ", "-1", 0.8, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	byStrike := map[float64]ContractOutcome{}
	for _, o := range outcomes {
		byStrike[o.Contract.Strike] = o
	}
	assert.Equal(t, OutcomeSubmitted, byStrike[80].Status)
	assert.Equal(t, AlgoAdaptiveFast, byStrike[80].Algo)
	assert.Equal(t, OutcomeSkipped, byStrike[180].Status)
	assert.Empty(t, byStrike[180].OrderID)
}

func TestPlanEvictionDeltaSignAgnostic(t *testing.T) {
	// Puts carry negative deltas; the threshold compares magnitudes.
	put := optPos("XYZ", 120, -1)
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{put})

	putDelta := -0.85
	feed.SetQuote(put.Contract.QuoteKey(), models.Quote{Bid: 18, Ask: 18.6, Delta: &putDelta})

	req, err := NewEvictionRequest("XYZ", "-1", 0.8, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSubmitted, outcomes[0].Status)
	assert.Equal(t, 1.0, outcomes[0].Quantity)
}

func TestPlanEvictionGreeksLag(t *testing.T) {
	// Delta populates shortly after subscription; the gate waits it out.
	opt := optPos("XYZ", 100, 1)
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	feed.GreeksLag = 10 * time.Millisecond
	b.SetPositions([]models.Position{opt})

	key := opt.Contract.QuoteKey()
	feed.SetQuote(key, models.Quote{Bid: 5, Ask: 5.2})
	feed.StageDelta(key, 0.9)

	req, err := NewEvictionRequest("XYZ", "-1", 0.5, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSubmitted, outcomes[0].Status)
}

func TestPlanEvictionGreeksTimeout(t *testing.T) {
	// Delta never populates; the contract is skipped with a reason
	// instead of hanging the run.
	opt := optPos("XYZ", 100, 1)
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{opt})
	feed.SetQuote(opt.Contract.QuoteKey(), models.Quote{Bid: 5, Ask: 5.2})

	gate := NewGreeksGate(feed, 20*time.Millisecond, time.Millisecond, zerolog.Nop())
	planner := NewPlanner(b, feed, gate, zerolog.Nop())

	req, err := NewEvictionRequest("XYZ", "-1", 0.5, nil)
	require.NoError(t, err)

	outcomes, err := planner.PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
	assert.True(t, errors.Is(outcomes[0].Err, errors.ErrGreeksTimeout))
	assert.Empty(t, b.Submitted())
}

func TestPlanEvictionZeroDeltaSkipsGate(t *testing.T) {
	// threshold=0 keeps everything without requiring delta at all.
	opt := optPos("XYZ", 100, 1)
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{opt})
	feed.SetQuote(opt.Contract.QuoteKey(), models.Quote{Bid: 5, Ask: 5.2}) // no delta

	req, err := NewEvictionRequest("XYZ", "-1", 0, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSubmitted, outcomes[0].Status)
	assert.Zero(t, feed.SubscribeCount())
}

func TestPlanEvictionRejectsCombos(t *testing.T) {
	bag := models.Position{
		Contract: models.Contract{Symbol: "XYZ", SecType: models.SecBag},
		Quantity: 1,
	}
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{bag})

	req, err := NewEvictionRequest("XYZ", "-1", 0, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.True(t, errors.Is(outcomes[0].Err, errors.ErrUnsupportedStructure))
}

func TestPlanEvictionAlgoOverridePreview(t *testing.T) {
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{pos("AAPL", "", models.SecStock, 10)})
	feed.SetQuote("AAPL", models.Quote{Bid: 99, Ask: 101})

	req, err := NewEvictionRequest("AAPL", "-1", 0, []string{"MKT", "preview"})
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "MKT", outcomes[0].Algo)

	submitted := b.Submitted()
	require.Len(t, submitted, 1)
	assert.True(t, submitted[0].Preview)
}

func TestPlanEvictionCancelledContext(t *testing.T) {
	// Cancellation stops issuing further contract plans.
	b := broker.NewPaperBroker()
	feed := broker.NewPaperFeed()
	b.SetPositions([]models.Position{
		pos("AAPL", "", models.SecStock, 10),
		pos("AMD", "", models.SecStock, 10),
	})
	feed.SetQuote("AAPL", models.Quote{Bid: 99, Ask: 101})
	feed.SetQuote("AMD", models.Quote{Bid: 150, Ask: 150.5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := NewEvictionRequest("*", "-1", 0, nil)
	require.NoError(t, err)

	outcomes, err := newTestPlanner(t, b, feed).PlanEviction(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Empty(t, b.Submitted())
}

func TestValidationAtRequestBoundary(t *testing.T) {
	_, err := NewEvictionRequest("AAPL", "0", 0, nil)
	assert.Error(t, err)

	_, err = NewEvictionRequest("AAPL", "-1", 1.5, nil)
	assert.Error(t, err)

	_, err = NewEvictionRequest("", "-1", 0, nil)
	assert.Error(t, err)
}
