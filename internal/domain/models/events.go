package models

import "time"

// SignalEvent is published once per symbol after a successful run.
type SignalEvent struct {
	RunID           string      `json:"run_id"`
	Symbol          string      `json:"symbol"`
	Date            time.Time   `json:"date"`
	Close           float64     `json:"close"`
	MarketRegime    Regime      `json:"market_regime"`
	SignalLabel     SignalLabel `json:"signal_label"`
	SignalStrength  Strength    `json:"signal_strength"`
	ConfidenceScore int         `json:"confidence_score"`
	ExpectedMovePct *float64    `json:"expected_move_pct,omitempty"`
	RiskLevel       RiskLevel   `json:"risk_level"`
	EmittedAt       time.Time   `json:"emitted_at"`
}

// NewSignalEvent builds the event for the latest row of a series.
func NewSignalEvent(runID, symbol string, row SignalRow, now time.Time) SignalEvent {
	return SignalEvent{
		RunID:           runID,
		Symbol:          symbol,
		Date:            row.Date,
		Close:           row.Close,
		MarketRegime:    row.MarketRegime,
		SignalLabel:     row.SignalLabel,
		SignalStrength:  row.SignalStrength,
		ConfidenceScore: row.ConfidenceScore,
		ExpectedMovePct: row.ExpectedMovePct,
		RiskLevel:       row.RiskLevel,
		EmittedAt:       now,
	}
}

// RunRequest asks a running service to recompute a set of symbols.
// An empty Symbols list means the whole configured universe.
type RunRequest struct {
	Symbols     []string `json:"symbols" query:"symbols" validate:"omitempty,max=100,dive,required"`
	SkipFetch   bool     `json:"skip_fetch" query:"skip_fetch"`
	RequestedBy string   `json:"requested_by" default:"api"`
}
