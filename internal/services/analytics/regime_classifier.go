package analytics

import (
	"MarketRegime/internal/domain/models"
	domsvc "MarketRegime/internal/domain/service"
)

// RegimeClassifier labels each row from its own close and moving averages.
// There is no smoothing across rows.
type RegimeClassifier struct{}

var _ domsvc.RegimeClassifier = (*RegimeClassifier)(nil)

func NewRegimeClassifier() *RegimeClassifier { return &RegimeClassifier{} }

func (c *RegimeClassifier) Classify(rows []models.FeatureRow) []models.RegimeRow {
	out := make([]models.RegimeRow, len(rows))
	for i, r := range rows {
		out[i] = models.RegimeRow{
			FeatureRow:   r,
			MarketRegime: ClassifyRegime(r.Close, r.SMA10, r.SMA20, r.SMA50),
		}
	}
	return out
}

// ClassifyRegime returns Bullish when close > sma50 and sma10 > sma20 > sma50,
// Bearish for the mirror image, and Sideways otherwise, including when any
// average is undefined.
func ClassifyRegime(close float64, sma10, sma20, sma50 *float64) models.Regime {
	if sma10 == nil || sma20 == nil || sma50 == nil {
		return models.RegimeSideways
	}
	s10, s20, s50 := *sma10, *sma20, *sma50
	switch {
	case close > s50 && s10 > s20 && s20 > s50:
		return models.RegimeBullish
	case close < s50 && s10 < s20 && s20 < s50:
		return models.RegimeBearish
	default:
		return models.RegimeSideways
	}
}
