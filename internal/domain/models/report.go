package models

import "time"

// OverviewRow is the latest state of one stock for the market overview.
type OverviewRow struct {
	Stock           string      `json:"stock"`
	Symbol          string      `json:"symbol"`
	Date            time.Time   `json:"date"`
	MarketRegime    Regime      `json:"market_regime"`
	Signal          SignalLabel `json:"signal"`
	Strength        Strength    `json:"strength"`
	ConfidenceScore int         `json:"confidence_score"`
	RiskLevel       RiskLevel   `json:"risk_level"`
	ExpectedMovePct *float64    `json:"expected_move_pct"`
}

// StockReport is the detail view for one stock.
type StockReport struct {
	Stock         string         `json:"stock"`
	Symbol        string         `json:"symbol"`
	AsOf          time.Time      `json:"as_of"`
	Latest        SignalRow      `json:"latest"`
	News          []NewsItem     `json:"news"`
	Tally         SentimentTally `json:"tally"`
	Impact        string         `json:"impact"`
	Alignment     Alignment      `json:"alignment"`
	PricePosition string         `json:"price_position"`
}

// Outcome is the per-symbol result of a pipeline run.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// SymbolResult records how far one symbol got through a run.
type SymbolResult struct {
	Symbol  string  `json:"symbol"`
	Outcome Outcome `json:"outcome"`
	Stage   string  `json:"stage,omitempty"`
	Rows    int     `json:"rows"`
	Error   string  `json:"error,omitempty"`
}

// RunSummary aggregates a whole pipeline run.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []SymbolResult `json:"results"`
	OK         int            `json:"ok"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
}

// Add records a symbol result and updates the counters.
func (s *RunSummary) Add(r SymbolResult) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeOK:
		s.OK++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}
