package trading

import (
	"math"
	"path"
	"strings"

	"ibkr-terminal/internal/models"
)

// MatchPositions returns the held positions whose symbol matches the
// pattern. Patterns may contain '*' wildcards and are tried against both
// the underlying symbol and the local symbol, so "MES*" matches a future
// held as "MESU2".
func MatchPositions(positions []models.Position, pattern string) []models.Position {
	pattern = strings.ToUpper(pattern)
	var out []models.Position
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		if symbolMatches(pattern, pos.Contract.Symbol) || symbolMatches(pattern, pos.Contract.LocalSymbol) {
			out = append(out, pos)
		}
	}
	return out
}

func symbolMatches(pattern, symbol string) bool {
	if symbol == "" {
		return false
	}
	symbol = strings.ToUpper(symbol)
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == symbol
	}
	ok, err := path.Match(pattern, symbol)
	return err == nil && ok
}

// TotalAbsQuantity sums the absolute per-contract quantities, the base
// for percentage quantity resolution.
func TotalAbsQuantity(positions []models.Position) float64 {
	var total float64
	for _, pos := range positions {
		total += math.Abs(pos.Quantity)
	}
	return total
}

// allocation pairs a matched position with the absolute quantity of it
// to close in this run.
type allocation struct {
	position models.Position
	take     float64
}

// allocate distributes the requested eviction quantity across matched
// positions in portfolio order, capping each take at the held size.
// entire=true takes everything.
func allocate(positions []models.Position, qty float64, entire bool) []allocation {
	var out []allocation
	remaining := qty
	for _, pos := range positions {
		held := math.Abs(pos.Quantity)
		take := held
		if !entire {
			if remaining <= 0 {
				break
			}
			take = math.Min(held, remaining)
			remaining -= take
		}
		if take > 0 {
			out = append(out, allocation{position: pos, take: take})
		}
	}
	return out
}
