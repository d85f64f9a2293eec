package trading

import (
	"strings"

	"ibkr-terminal/internal/models"
)

// Execution algorithm labels. These select venue-side algorithms; the
// venue implements them.
const (
	AlgoMidprice     = "MIDPRICE"
	AlgoAdaptiveFast = "AF"
	AlgoProtectedMkt = "PRTMKT"

	// previewModifier marks orders as construct-only, stripped from the
	// override argument list before it is read as an algorithm name.
	previewModifier = "preview"
)

// SelectAlgo picks the closing execution algorithm for a contract type:
// MIDPRICE for equities and anything uncategorized, adaptive-fast for
// options and future-options, PRTMKT for futures. A caller override
// replaces the table result unconditionally for every contract.
func SelectAlgo(secType models.SecType, override []string) (algo string, preview bool) {
	switch secType {
	case models.SecOption, models.SecFutureOption:
		algo = AlgoAdaptiveFast
	case models.SecFuture:
		algo = AlgoProtectedMkt
	default:
		algo = AlgoMidprice
	}

	var named []string
	for _, arg := range override {
		if strings.EqualFold(arg, previewModifier) {
			preview = true
			continue
		}
		named = append(named, arg)
	}
	if len(named) > 0 {
		algo = strings.ToUpper(named[0])
	}
	return algo, preview
}
