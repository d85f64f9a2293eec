// Package models provides domain models for the trading terminal.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SecType represents the security type of a contract.
type SecType string

const (
	SecStock        SecType = "STK"
	SecOption       SecType = "OPT"
	SecFutureOption SecType = "FOP"
	SecFuture       SecType = "FUT"
	SecIndex        SecType = "IND"
	SecBag          SecType = "BAG" // pre-built multi-leg combo
)

// OptionRight represents the right of an option contract.
type OptionRight string

const (
	RightCall OptionRight = "C"
	RightPut  OptionRight = "P"
)

// Contract identifies a tradable instrument. ConID is zero until the
// contract has been qualified by the broker.
type Contract struct {
	Symbol      string
	LocalSymbol string
	SecType     SecType
	ConID       int64
	Multiplier  float64
	Strike      float64
	Right       OptionRight
	Expiration  string // YYYYMMDD, options and futures only
}

// IsOption returns true for option and future-option contracts.
func (c Contract) IsOption() bool {
	return c.SecType == SecOption || c.SecType == SecFutureOption
}

// Qualified returns true once the broker has assigned an instrument id.
func (c Contract) Qualified() bool {
	return c.ConID != 0
}

// QuoteKey returns the key used to address this contract in the quote feed.
func (c Contract) QuoteKey() string {
	if c.LocalSymbol != "" {
		return c.LocalSymbol
	}
	return c.Symbol
}

// EffectiveMultiplier returns the contract multiplier, defaulting to 1.
func (c Contract) EffectiveMultiplier() float64 {
	if c.Multiplier <= 0 {
		return 1
	}
	return c.Multiplier
}

func (c Contract) String() string {
	if c.IsOption() {
		return fmt.Sprintf("%s %s %s %.2f%s", c.Symbol, c.SecType, c.Expiration, c.Strike, c.Right)
	}
	return fmt.Sprintf("%s %s", c.Symbol, c.SecType)
}

// occPattern matches OCC-style option symbols: SPY241220C00600000.
var occPattern = regexp.MustCompile(`^([A-Z]{1,6})(\d{6})([CP])(\d{8})$`)

// ParseSymbol resolves a user-supplied symbol into a contract shell.
// OCC-style symbols become exact option contracts, a leading slash marks
// a future, everything else is treated as an equity underlying.
func ParseSymbol(symbol string) Contract {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if m := occPattern.FindStringSubmatch(symbol); m != nil {
		strike, _ := strconv.ParseFloat(m[4], 64)
		return Contract{
			Symbol:      m[1],
			LocalSymbol: symbol,
			SecType:     SecOption,
			Expiration:  "20" + m[2],
			Right:       OptionRight(m[3]),
			Strike:      strike / 1000,
		}
	}

	if rest, ok := strings.CutPrefix(symbol, "/"); ok {
		return Contract{Symbol: rest, SecType: SecFuture}
	}

	return Contract{Symbol: symbol, SecType: SecStock}
}

// Position represents a held position. Quantity sign encodes direction:
// positive for long, negative for short.
type Position struct {
	Contract      Contract
	Quantity      float64
	AvgCost       float64
	MarketValue   float64
	UnrealizedPNL float64
}

// Quote represents the live quote state for one contract. Delta is nil
// until the greeks feed has populated for the subscription.
type Quote struct {
	Bid   float64
	Ask   float64
	Last  float64
	Close float64
	Delta *float64
}

// TwoSided returns true if both best bid and best ask exist.
func (q Quote) TwoSided() bool {
	return q.Bid > 0 && q.Ask > 0
}

// Mid returns the midpoint of the current best bid/ask.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// ExpirationMap maps expiration dates (YYYYMMDD) to ascending strike lists.
type ExpirationMap map[string][]float64

// Complete returns true if the map is non-empty and every expiration
// carries at least one strike.
func (m ExpirationMap) Complete() bool {
	if len(m) == 0 {
		return false
	}
	for _, strikes := range m {
		if len(strikes) == 0 {
			return false
		}
	}
	return true
}

// Merge copies every expiration from other into m, replacing existing keys.
func (m ExpirationMap) Merge(other ExpirationMap) {
	for date, strikes := range other {
		m[date] = strikes
	}
}

// SpreadGroup is a set of option positions on the same underlying and
// expiration, treated as one logical structure for display and closing.
// It is derived on every pass and never persisted.
type SpreadGroup struct {
	Underlying  string
	Expiration  string
	Members     []Position
	NetQuantity float64
	TotalCost   float64

	// ClosingQuantity is the representative size of the closing order.
	// When the group nets to zero the first member's quantity stands in,
	// which is wrong for unequal-ratio structures like butterflies.
	ClosingQuantity float64
}
