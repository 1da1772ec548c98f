package analytics

import (
	"math"

	"MarketRegime/internal/domain/models"
	domsvc "MarketRegime/internal/domain/service"

	"github.com/shopspring/decimal"
)

// Scoring holds the additive confidence policy.
type Scoring struct {
	Base           int
	ConditionBonus int
	TrendBonus     int
	LowRiskAt      int // confidence >= LowRiskAt is Low risk
	HighRiskBelow  int // confidence < HighRiskBelow is High risk
}

// DefaultScoring is base 50, +20 on a confirmed condition, +15 on trend side.
func DefaultScoring() Scoring {
	return Scoring{Base: 50, ConditionBonus: 20, TrendBonus: 15, LowRiskAt: 70, HighRiskBelow: 40}
}

type SignalOption func(*SignalGenerator)

// WithScoring overrides the confidence policy.
func WithScoring(s Scoring) SignalOption {
	return func(g *SignalGenerator) { g.scoring = s }
}

// SignalGenerator turns regime rows into directional signals.
type SignalGenerator struct {
	horizon int
	scoring Scoring
}

var _ domsvc.SignalGenerator = (*SignalGenerator)(nil)

// NewSignalGenerator returns a generator projecting moves over horizonDays.
func NewSignalGenerator(horizonDays int, opts ...SignalOption) *SignalGenerator {
	if horizonDays <= 0 {
		horizonDays = 5
	}
	g := &SignalGenerator{horizon: horizonDays, scoring: DefaultScoring()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SignalGenerator) Generate(rows []models.RegimeRow) []models.SignalRow {
	out := make([]models.SignalRow, len(rows))
	for i, r := range rows {
		out[i] = g.signal(r)
	}
	return out
}

func (g *SignalGenerator) signal(r models.RegimeRow) models.SignalRow {
	bullish := r.MarketRegime == models.RegimeBullish && r.SMA20 != nil && r.Close > *r.SMA20
	bearish := r.MarketRegime == models.RegimeBearish && r.SMA20 != nil && r.Close < *r.SMA20

	label := models.SignalNeutral
	strength := models.StrengthWeak
	switch {
	case bullish:
		label, strength = models.SignalBullish, models.StrengthStrong
	case bearish:
		label, strength = models.SignalBearish, models.StrengthStrong
	}

	score := g.scoring.Base
	if bullish || bearish {
		score += g.scoring.ConditionBonus
	}
	// trend bonus applies on either side of sma_50, whatever the label
	if r.SMA50 != nil && (r.Close > *r.SMA50 || r.Close < *r.SMA50) {
		score += g.scoring.TrendBonus
	}
	score = ClampConfidence(score)

	return models.SignalRow{
		RegimeRow:       r,
		SignalLabel:     label,
		SignalStrength:  strength,
		ConfidenceScore: score,
		ExpectedMovePct: ExpectedMove(r.Volatility20, g.horizon, label),
		RiskLevel:       g.risk(score),
	}
}

func (g *SignalGenerator) risk(score int) models.RiskLevel {
	switch {
	case score >= g.scoring.LowRiskAt:
		return models.RiskLow
	case score < g.scoring.HighRiskBelow:
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

// ClampConfidence bounds a score to [0, 100].
func ClampConfidence(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ExpectedMove projects daily log volatility over horizon days as a
// percentage rounded to 2 decimals. Only Bearish signals are negated.
// Undefined volatility gives an undefined move.
func ExpectedMove(vol *float64, horizon int, label models.SignalLabel) *float64 {
	if vol == nil {
		return nil
	}
	raw := *vol * math.Sqrt(float64(horizon)) * 100
	move, _ := decimal.NewFromFloat(raw).Round(2).Float64()
	if label == models.SignalBearish {
		move = -move
	}
	return models.Float(move)
}
