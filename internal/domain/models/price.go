package models

import "time"

// PriceRow is one end-of-day OHLCV bar. Date is a UTC calendar day.
type PriceRow struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open" validate:"gt=0"`
	High   float64   `json:"high" validate:"gt=0"`
	Low    float64   `json:"low" validate:"gt=0"`
	Close  float64   `json:"close" validate:"gt=0"`
	Volume float64   `json:"volume" validate:"gte=0"`
}

// FeatureRow extends a price row with trend and volatility features.
// Nil pointers mark features that lack enough history.
type FeatureRow struct {
	PriceRow
	DailyReturn  *float64 `json:"daily_return"`
	LogReturn    *float64 `json:"log_return"`
	SMA10        *float64 `json:"sma_10"`
	SMA20        *float64 `json:"sma_20"`
	SMA50        *float64 `json:"sma_50"`
	Volatility20 *float64 `json:"volatility_20"`
}

// RegimeRow extends a feature row with the day's market regime.
type RegimeRow struct {
	FeatureRow
	MarketRegime Regime `json:"market_regime"`
}

// SignalRow extends a regime row with the directional call.
type SignalRow struct {
	RegimeRow
	SignalLabel     SignalLabel `json:"signal_label"`
	SignalStrength  Strength    `json:"signal_strength"`
	ConfidenceScore int         `json:"confidence_score"`
	ExpectedMovePct *float64    `json:"expected_move_pct"`
	RiskLevel       RiskLevel   `json:"risk_level"`
}

// Float returns a pointer to v, for building optional feature values.
func Float(v float64) *float64 { return &v }

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
