package models

import (
	"math"
	"strconv"
	"strings"

	"ibkr-terminal/internal/errors"
)

// QuantityKind discriminates the variants of a QuantitySpec.
type QuantityKind int

const (
	// QuantityExact evicts an exact contract count.
	QuantityExact QuantityKind = iota
	// QuantityEntirePosition evicts everything matched.
	QuantityEntirePosition
	// QuantityPercentage evicts a percentage of the aggregate position.
	QuantityPercentage
)

// entireSentinel is the numeric token meaning "the whole position".
const entireSentinel = -1

// QuantitySpec is a tagged quantity: an exact count, the entire-position
// sentinel, or a percentage of current exposure. Exactly one variant is
// active; the variant is decided once at the input boundary.
type QuantitySpec struct {
	Kind  QuantityKind
	Value float64 // count for Exact, percent in (0,100] for Percentage
}

// ParseQuantity parses a raw quantity token. A trailing '%' marks a
// percentage in (0,100]. Plain numbers must be positive or the -1
// entire-position sentinel; zero and other negatives are rejected.
func ParseQuantity(token string) (QuantitySpec, error) {
	token = strings.TrimSpace(token)

	if pct, ok := strings.CutSuffix(token, "%"); ok {
		p, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return QuantitySpec{}, errors.NewValidationError("qty", token, "percentage is not a number")
		}
		if p <= 0 || p > 100 {
			return QuantitySpec{}, errors.NewValidationError("qty", token, "percentage must be in (0, 100]")
		}
		return QuantitySpec{Kind: QuantityPercentage, Value: p}, nil
	}

	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return QuantitySpec{}, errors.NewValidationError("qty", token, "quantity is not a number")
	}
	switch {
	case n == entireSentinel:
		return QuantitySpec{Kind: QuantityEntirePosition}, nil
	case n <= 0 || math.IsNaN(n) || math.IsInf(n, 0):
		return QuantitySpec{}, errors.NewValidationError("qty", token, "quantity must be positive or -1 for the entire position")
	default:
		return QuantitySpec{Kind: QuantityExact, Value: n}, nil
	}
}

// Entire reports whether the quantity means "close everything matched".
func (q QuantitySpec) Entire() bool {
	return q.Kind == QuantityEntirePosition
}

// Resolve converts the quantity into a concrete amount to evict given the
// aggregate absolute quantity held across all matched contracts. The
// entire-position sentinel resolves to totalAbs itself.
func (q QuantitySpec) Resolve(totalAbs float64) float64 {
	switch q.Kind {
	case QuantityPercentage:
		return totalAbs * q.Value / 100
	case QuantityEntirePosition:
		return totalAbs
	default:
		return q.Value
	}
}

func (q QuantitySpec) String() string {
	switch q.Kind {
	case QuantityPercentage:
		return strconv.FormatFloat(q.Value, 'f', -1, 64) + "%"
	case QuantityEntirePosition:
		return "all"
	default:
		return strconv.FormatFloat(q.Value, 'f', -1, 64)
	}
}
