package trading

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ibkr-terminal/internal/broker"
	"ibkr-terminal/internal/errors"
	"ibkr-terminal/internal/logging"
	"ibkr-terminal/internal/models"
)

// Planner orchestrates position eviction: matching, quantity resolution,
// price discovery, greeks gating, qualification, algorithm selection,
// and concurrent closing-order submission.
type Planner struct {
	broker broker.Broker
	feed   broker.QuoteFeed
	gate   *GreeksGate
	log    zerolog.Logger
}

// NewPlanner creates a new eviction planner.
func NewPlanner(b broker.Broker, feed broker.QuoteFeed, gate *GreeksGate, log zerolog.Logger) *Planner {
	return &Planner{broker: b, feed: feed, gate: gate, log: log}
}

// plannedOrder is one contract that survived filtering and is ready to
// submit.
type plannedOrder struct {
	contract models.Contract
	quantity float64 // signed closing-order quantity
	price    float64 // mid reference, for reporting
	algo     string
	preview  bool
}

// PlanEviction resolves the request against the current portfolio and
// submits closing orders for every surviving contract. Each matched
// contract produces exactly one outcome; per-contract failures never
// abort the run. Returns ErrNoMatch (with zero outcomes) when the symbol
// pattern matches nothing.
func (p *Planner) PlanEviction(ctx context.Context, req EvictionRequest) ([]ContractOutcome, error) {
	log := logging.WithRun(logging.WithSymbol(p.log, req.Symbol), uuid.NewString())

	positions, err := p.broker.Portfolio(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "portfolio snapshot")
	}

	matches := MatchPositions(positions, req.Symbol)
	if len(matches) == 0 {
		return nil, errors.Wrapf(errors.ErrNoMatch, "%s", req.Symbol)
	}

	totalAbs := TotalAbsQuantity(matches)
	qty := req.Quantity.Resolve(totalAbs)
	if req.Quantity.Kind == models.QuantityPercentage {
		log.Info().
			Float64("total_position", totalAbs).
			Float64("evicting", qty).
			Str("requested", req.Quantity.String()).
			Msg("resolved percentage eviction")
	}

	var outcomes []ContractOutcome
	var planned []plannedOrder

	for _, alloc := range allocate(matches, qty, req.Quantity.Entire()) {
		// Cancellation stops issuing further contract plans. Orders
		// already handed off are not recalled.
		if ctx.Err() != nil {
			break
		}
		order, outcome := p.planContract(ctx, req, alloc, log)
		if outcome != nil {
			outcomes = append(outcomes, *outcome)
			continue
		}
		planned = append(planned, *order)
	}

	outcomes = append(outcomes, p.submitAll(ctx, planned, log)...)
	return outcomes, nil
}

// planContract walks one contract through pricing, greeks gating,
// qualification, and algorithm selection. It returns either an order
// ready for submission or a terminal outcome.
func (p *Planner) planContract(ctx context.Context, req EvictionRequest, alloc allocation, log zerolog.Logger) (*plannedOrder, *ContractOutcome) {
	contract := alloc.position.Contract

	// Pre-built combos carry no per-leg intent; a generic "close this
	// underlying" request cannot infer leg ratios.
	if contract.SecType == models.SecBag {
		return nil, &ContractOutcome{
			Status:   OutcomeFailed,
			Contract: contract,
			Reason:   "multi-leg combo positions must be closed as an explicit spread order",
			Err:      errors.ErrUnsupportedStructure,
		}
	}

	// Pricing requires a live two-sided market.
	quote, ok := p.feed.Quote(contract.QuoteKey())
	if !ok || !quote.TwoSided() {
		return nil, &ContractOutcome{
			Status:   OutcomeFailed,
			Contract: contract,
			Reason:   "no two-sided quote for " + contract.QuoteKey(),
			Err:      errors.ErrQuoteUnavailable,
		}
	}
	price := quote.Mid()

	if req.Delta > 0 && contract.IsOption() {
		delta, err := p.gate.Delta(ctx, contract)
		if err != nil {
			return nil, &ContractOutcome{
				Status:   OutcomeSkipped,
				Contract: contract,
				Reason:   "greeks unavailable",
				Err:      err,
			}
		}
		// Sign-agnostic: 0.80 keeps calls with delta >= 0.80 and puts
		// with delta <= -0.80.
		if math.Abs(delta) < req.Delta {
			return nil, &ContractOutcome{
				Status:   OutcomeSkipped,
				Contract: contract,
				Reason:   "abs(delta) below threshold",
			}
		}
	}

	if !contract.Qualified() {
		qualified, err := p.broker.Qualify(ctx, contract)
		if err != nil {
			return nil, &ContractOutcome{
				Status:   OutcomeFailed,
				Contract: contract,
				Reason:   "qualification failed",
				Err:      err,
			}
		}
		contract = qualified
	}

	algo, preview := SelectAlgo(contract.SecType, req.Algo)

	// Closing inverts the held sign: +N long closes with -N, -M short
	// closes with +M.
	closing := -math.Copysign(alloc.take, alloc.position.Quantity)

	log.Info().
		Str("contract", contract.String()).
		Float64("quantity", closing).
		Float64("price", price).
		Str("algo", algo).
		Msg("planned closing order")

	return &plannedOrder{
		contract: contract,
		quantity: closing,
		price:    price,
		algo:     algo,
		preview:  preview,
	}, nil
}

// submitAll fans out order submissions concurrently and joins on every
// one of them, success or failure, before reporting.
func (p *Planner) submitAll(ctx context.Context, planned []plannedOrder, log zerolog.Logger) []ContractOutcome {
	outcomes := make([]ContractOutcome, len(planned))

	var g errgroup.Group
	for i, order := range planned {
		i, order := i, order
		g.Go(func() error {
			result, err := p.broker.SubmitOrder(ctx, broker.OrderRequest{
				Contract: order.contract,
				Quantity: order.quantity,
				Algo:     order.algo,
				Preview:  order.preview,
			})
			if err != nil {
				log.Error().Err(err).Str("contract", order.contract.String()).Msg("submission failed")
				outcomes[i] = ContractOutcome{
					Status:   OutcomeFailed,
					Contract: order.contract,
					Reason:   "submission failed",
					Err:      errors.NewOrderError(order.contract.Symbol, "submit", err),
				}
				return nil
			}
			outcomes[i] = ContractOutcome{
				Status:   OutcomeSubmitted,
				Contract: order.contract,
				Quantity: order.quantity,
				Algo:     order.algo,
				OrderID:  result.OrderID,
			}
			return nil
		})
	}
	// Closures record outcomes instead of returning errors, so Wait is
	// a pure join.
	_ = g.Wait()
	return outcomes
}
