package analytics

import (
	"math"
	"testing"
	"time"

	"MarketRegime/internal/domain/models"
	"MarketRegime/internal/services/features"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regimeRow(close float64, regime models.Regime, sma20, sma50, vol *float64) models.RegimeRow {
	return models.RegimeRow{
		FeatureRow: models.FeatureRow{
			PriceRow:     models.PriceRow{Close: close},
			SMA20:        sma20,
			SMA50:        sma50,
			Volatility20: vol,
		},
		MarketRegime: regime,
	}
}

func pipeline(closes []float64) []models.SignalRow {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.PriceRow, len(closes))
	for i, c := range closes {
		rows[i] = models.PriceRow{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 10}
	}
	feats := features.NewBuilder(models.DefaultWindows()).Build(rows)
	return NewSignalGenerator(5).Generate(NewRegimeClassifier().Classify(feats))
}

func TestGenerateRules(t *testing.T) {
	g := NewSignalGenerator(5)
	f := models.Float

	t.Run("confirmed bullish row is strong with full confidence", func(t *testing.T) {
		out := g.Generate([]models.RegimeRow{regimeRow(110, models.RegimeBullish, f(105), f(100), f(0.01))})[0]
		assert.Equal(t, models.SignalBullish, out.SignalLabel)
		assert.Equal(t, models.StrengthStrong, out.SignalStrength)
		assert.Equal(t, 85, out.ConfidenceScore)
		assert.Equal(t, models.RiskLow, out.RiskLevel)
	})

	t.Run("bullish regime below sma20 stays neutral but keeps trend bonus", func(t *testing.T) {
		out := g.Generate([]models.RegimeRow{regimeRow(104, models.RegimeBullish, f(105), f(100), nil)})[0]
		assert.Equal(t, models.SignalNeutral, out.SignalLabel)
		assert.Equal(t, models.StrengthWeak, out.SignalStrength)
		assert.Equal(t, 65, out.ConfidenceScore)
		assert.Equal(t, models.RiskMedium, out.RiskLevel)
	})

	t.Run("confirmed bearish row is strong", func(t *testing.T) {
		out := g.Generate([]models.RegimeRow{regimeRow(90, models.RegimeBearish, f(95), f(100), f(0.02))})[0]
		assert.Equal(t, models.SignalBearish, out.SignalLabel)
		assert.Equal(t, models.StrengthStrong, out.SignalStrength)
		assert.Equal(t, 85, out.ConfidenceScore)
	})

	t.Run("sideways row away from sma50 still earns the trend bonus", func(t *testing.T) {
		out := g.Generate([]models.RegimeRow{regimeRow(120, models.RegimeSideways, f(125), f(100), nil)})[0]
		assert.Equal(t, models.SignalNeutral, out.SignalLabel)
		assert.Equal(t, 65, out.ConfidenceScore)
	})

	t.Run("row without sma50 scores the base", func(t *testing.T) {
		out := g.Generate([]models.RegimeRow{regimeRow(120, models.RegimeSideways, nil, nil, nil)})[0]
		assert.Equal(t, 50, out.ConfidenceScore)
		assert.Equal(t, models.RiskMedium, out.RiskLevel)
		assert.Nil(t, out.ExpectedMovePct)
	})
}

func TestConfidenceIsClamped(t *testing.T) {
	f := models.Float
	high := NewSignalGenerator(5, WithScoring(Scoring{Base: 90, ConditionBonus: 20, TrendBonus: 15, LowRiskAt: 70, HighRiskBelow: 40}))
	out := high.Generate([]models.RegimeRow{regimeRow(110, models.RegimeBullish, f(105), f(100), nil)})[0]
	assert.Equal(t, 100, out.ConfidenceScore)

	low := NewSignalGenerator(5, WithScoring(Scoring{Base: -30, ConditionBonus: 0, TrendBonus: 0, LowRiskAt: 70, HighRiskBelow: 40}))
	out = low.Generate([]models.RegimeRow{regimeRow(110, models.RegimeSideways, nil, nil, nil)})[0]
	assert.Equal(t, 0, out.ConfidenceScore)
	assert.Equal(t, models.RiskHigh, out.RiskLevel)
}

func TestExpectedMoveSign(t *testing.T) {
	v := 0.0123
	want, _ := decimal.NewFromFloat(v * math.Sqrt(5) * 100).Round(2).Float64()

	bear := ExpectedMove(&v, 5, models.SignalBearish)
	require.NotNil(t, bear)
	assert.Equal(t, -want, *bear)

	for _, label := range []models.SignalLabel{models.SignalBullish, models.SignalNeutral} {
		got := ExpectedMove(&v, 5, label)
		require.NotNil(t, got)
		assert.Equal(t, want, *got, label)
	}

	assert.Nil(t, ExpectedMove(nil, 5, models.SignalBearish))
}

func TestConstantSeriesIsNeutral(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	last := pipeline(closes)[59]

	assert.Equal(t, models.RegimeSideways, last.MarketRegime)
	assert.Equal(t, models.SignalNeutral, last.SignalLabel)
	assert.Equal(t, 50, last.ConfidenceScore)
	require.NotNil(t, last.ExpectedMovePct)
	assert.Equal(t, 0.0, *last.ExpectedMovePct)
}

func TestSteadyUptrendIsStrongBullish(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := pipeline(closes)

	for _, day := range []int{50, 59} {
		r := out[day]
		assert.Equal(t, models.RegimeBullish, r.MarketRegime)
		assert.Equal(t, models.SignalBullish, r.SignalLabel)
		assert.Equal(t, models.StrengthStrong, r.SignalStrength)
		assert.Equal(t, 85, r.ConfidenceScore)
		assert.Equal(t, models.RiskLow, r.RiskLevel)
		require.NotNil(t, r.ExpectedMovePct)
		assert.Greater(t, *r.ExpectedMovePct, 0.0)
	}
}
