package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ibkr-terminal/internal/models"
)

func pos(symbol, local string, sec models.SecType, qty float64) models.Position {
	return models.Position{
		Contract: models.Contract{Symbol: symbol, LocalSymbol: local, SecType: sec},
		Quantity: qty,
	}
}

func TestMatchPositions(t *testing.T) {
	held := []models.Position{
		pos("AAPL", "", models.SecStock, 200),
		pos("MES", "MESU2", models.SecFuture, -3),
		pos("SPY", "", models.SecStock, 0), // flat, never matched
	}

	t.Run("exact", func(t *testing.T) {
		got := MatchPositions(held, "AAPL")
		assert.Len(t, got, 1)
		assert.Equal(t, "AAPL", got[0].Contract.Symbol)
	})

	t.Run("wildcard matches local symbol", func(t *testing.T) {
		got := MatchPositions(held, "MES*")
		assert.Len(t, got, 1)
		assert.Equal(t, "MESU2", got[0].Contract.LocalSymbol)
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Len(t, MatchPositions(held, "aapl"), 1)
	})

	t.Run("flat positions excluded", func(t *testing.T) {
		assert.Empty(t, MatchPositions(held, "SPY"))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, MatchPositions(held, "TSLA"))
	})

	t.Run("star matches everything held", func(t *testing.T) {
		assert.Len(t, MatchPositions(held, "*"), 2)
	})
}

func TestTotalAbsQuantity(t *testing.T) {
	held := []models.Position{
		pos("A", "", models.SecStock, 150),
		pos("B", "", models.SecStock, -40),
	}
	assert.Equal(t, 190.0, TotalAbsQuantity(held))
}

func TestAllocate(t *testing.T) {
	held := []models.Position{
		pos("A", "", models.SecStock, 100),
		pos("B", "", models.SecStock, -50),
	}

	t.Run("entire", func(t *testing.T) {
		allocs := allocate(held, 0, true)
		assert.Len(t, allocs, 2)
		assert.Equal(t, 100.0, allocs[0].take)
		assert.Equal(t, 50.0, allocs[1].take)
	})

	t.Run("partial caps at held size", func(t *testing.T) {
		allocs := allocate(held, 120, false)
		assert.Len(t, allocs, 2)
		assert.Equal(t, 100.0, allocs[0].take)
		assert.Equal(t, 20.0, allocs[1].take)
	})

	t.Run("partial stops when satisfied", func(t *testing.T) {
		allocs := allocate(held, 60, false)
		assert.Len(t, allocs, 1)
		assert.Equal(t, 60.0, allocs[0].take)
	})
}
