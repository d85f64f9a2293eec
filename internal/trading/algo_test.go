package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ibkr-terminal/internal/models"
)

func TestSelectAlgoDefaults(t *testing.T) {
	tests := []struct {
		secType models.SecType
		want    string
	}{
		{models.SecStock, AlgoMidprice},
		{models.SecIndex, AlgoMidprice},
		{models.SecOption, AlgoAdaptiveFast},
		{models.SecFutureOption, AlgoAdaptiveFast},
		{models.SecFuture, AlgoProtectedMkt},
	}
	for _, tt := range tests {
		t.Run(string(tt.secType), func(t *testing.T) {
			algo, preview := SelectAlgo(tt.secType, nil)
			assert.Equal(t, tt.want, algo)
			assert.False(t, preview)
		})
	}
}

func TestSelectAlgoOverride(t *testing.T) {
	// An override replaces the table result regardless of category.
	for _, sec := range []models.SecType{models.SecStock, models.SecOption, models.SecFuture} {
		algo, preview := SelectAlgo(sec, []string{"MKT"})
		assert.Equal(t, "MKT", algo)
		assert.False(t, preview)
	}
}

func TestSelectAlgoPreviewModifier(t *testing.T) {
	algo, preview := SelectAlgo(models.SecStock, []string{"MIDPRICE", "preview"})
	assert.Equal(t, "MIDPRICE", algo)
	assert.True(t, preview)

	// The modifier is stripped, never used as the algorithm name.
	algo, preview = SelectAlgo(models.SecOption, []string{"preview"})
	assert.Equal(t, AlgoAdaptiveFast, algo)
	assert.True(t, preview)

	algo, preview = SelectAlgo(models.SecStock, []string{"preview", "mkt"})
	assert.Equal(t, "MKT", algo)
	assert.True(t, preview)
}
