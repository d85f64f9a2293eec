// Package trading provides position-eviction planning and spread detection.
package trading

import (
	"strings"

	"ibkr-terminal/internal/errors"
	"ibkr-terminal/internal/models"
)

// EvictionRequest describes one position-closing run. It is validated at
// construction and immutable afterwards.
type EvictionRequest struct {
	// Symbol may contain '*' wildcards. Futures carry the expiration
	// month in the local symbol ("MESU2"), so evicting futures reliably
	// uses a wildcard like MES*.
	Symbol string

	// Quantity is the amount to evict across all matched contracts.
	Quantity models.QuantitySpec

	// Delta keeps only option contracts with abs(delta) >= Delta.
	// Zero keeps everything and skips the greeks wait entirely.
	Delta float64

	// Algo optionally overrides the per-contract-type algorithm choice
	// for every contract in the run. The literal "preview" argument
	// flips preview mode and is not part of the algorithm name.
	Algo []string
}

// NewEvictionRequest validates raw command input into a request.
func NewEvictionRequest(symbol, qtyToken string, delta float64, algo []string) (EvictionRequest, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return EvictionRequest{}, errors.NewValidationError("symbol", symbol, "symbol is required")
	}
	qty, err := models.ParseQuantity(qtyToken)
	if err != nil {
		return EvictionRequest{}, err
	}
	if delta < 0 || delta > 1 {
		return EvictionRequest{}, errors.NewValidationError("delta", delta, "delta threshold must be in [0, 1]")
	}
	return EvictionRequest{Symbol: symbol, Quantity: qty, Delta: delta, Algo: algo}, nil
}

// OutcomeStatus is the terminal state of one contract's eviction plan.
type OutcomeStatus string

const (
	// OutcomeSubmitted means a closing order was handed to the broker.
	OutcomeSubmitted OutcomeStatus = "SUBMITTED"
	// OutcomeSkipped means the contract was filtered out, with a reason.
	OutcomeSkipped OutcomeStatus = "SKIPPED"
	// OutcomeFailed means this contract's plan failed; others proceed.
	OutcomeFailed OutcomeStatus = "FAILED"
)

// ContractOutcome reports how one matched contract fared. Every matched
// contract produces exactly one outcome; nothing fails silently.
type ContractOutcome struct {
	Status   OutcomeStatus
	Contract models.Contract
	Quantity float64 // signed closing-order quantity, zero unless submitted
	Algo     string
	OrderID  string
	Reason   string
	Err      error
}
