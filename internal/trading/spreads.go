package trading

import (
	"math"
	"sort"

	"ibkr-terminal/internal/broker"
	"ibkr-terminal/internal/models"
)

// DetectSpreads groups held option and future-option positions by
// (underlying, expiration); any group with more than one member is a
// candidate spread. Groups are derived on every pass, sorted by
// underlying then expiration, and never persisted. This is an inference
// for display and closing convenience, not a record of originally
// intended multi-leg trades: two verticals on the same expiration are
// indistinguishable from one condor here.
func DetectSpreads(positions []models.Position) []models.SpreadGroup {
	type key struct {
		symbol     string
		expiration string
	}
	grouped := make(map[key][]models.Position)
	for _, pos := range positions {
		if !pos.Contract.IsOption() || pos.Quantity == 0 {
			continue
		}
		k := key{symbol: pos.Contract.Symbol, expiration: pos.Contract.Expiration}
		grouped[k] = append(grouped[k], pos)
	}

	var out []models.SpreadGroup
	for k, members := range grouped {
		if len(members) < 2 {
			continue
		}
		group := models.SpreadGroup{
			Underlying: k.symbol,
			Expiration: k.expiration,
			Members:    members,
		}
		for _, m := range members {
			group.NetQuantity += m.Quantity
			group.TotalCost += m.AvgCost
		}
		// Closing side is the negation of the net. A group netting to
		// exactly zero still has legs to close, so the first member's
		// quantity stands in as the representative size; butterflies
		// and other unequal-ratio structures are not sized correctly
		// by this rule.
		if group.NetQuantity == 0 {
			group.ClosingQuantity = -members[0].Quantity
		} else {
			group.ClosingQuantity = -group.NetQuantity
		}
		out = append(out, group)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Underlying != out[j].Underlying {
			return out[i].Underlying < out[j].Underlying
		}
		return out[i].Expiration < out[j].Expiration
	})
	return out
}

// SpreadClosePrice computes the combined per-unit closing price of a
// spread group from live mid quotes: each leg contributes its mid scaled
// by the leg's ratio against the representative closing size. Legs
// without a two-sided quote contribute nothing and are reported false.
func SpreadClosePrice(feed broker.QuoteFeed, group models.SpreadGroup) (float64, bool) {
	rep := math.Abs(group.ClosingQuantity)
	if rep == 0 {
		return 0, false
	}
	var price float64
	complete := true
	for _, m := range group.Members {
		quote, ok := feed.Quote(m.Contract.QuoteKey())
		if !ok || !quote.TwoSided() {
			complete = false
			continue
		}
		price += quote.Mid() * (m.Quantity / rep)
	}
	return price, complete
}
