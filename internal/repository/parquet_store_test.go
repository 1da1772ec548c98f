package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	applogger "MarketRegime/pkg/logger"
)

func newStore(t *testing.T) *ParquetStore {
	t.Helper()
	s, err := NewParquetStore(t.TempDir(), applogger.NewNop())
	require.NoError(t, err)
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParquetStore_MissingSeries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.LoadPriceSeries(ctx, "TCS.NS")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	assert.True(t, domrepo.IsMissing(err))

	require.NoError(t, s.StorePriceSeries(ctx, "TCS.NS", nil))
	_, err = s.LoadPriceSeries(ctx, "TCS.NS")
	assert.ErrorIs(t, err, domrepo.ErrEmptySeries)
}

func TestParquetStore_SignalRoundTripKeepsNils(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rows := []models.SignalRow{
		{
			RegimeRow: models.RegimeRow{
				FeatureRow: models.FeatureRow{
					PriceRow: models.PriceRow{Date: day(2024, 1, 2), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000},
				},
				MarketRegime: models.RegimeSideways,
			},
			SignalLabel:     models.SignalNeutral,
			SignalStrength:  models.StrengthWeak,
			ConfidenceScore: 50,
			RiskLevel:       models.RiskMedium,
		},
		{
			RegimeRow: models.RegimeRow{
				FeatureRow: models.FeatureRow{
					PriceRow:     models.PriceRow{Date: day(2024, 1, 3), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 0},
					DailyReturn:  models.Float(0.0952),
					LogReturn:    models.Float(0.0909),
					SMA10:        models.Float(11),
					SMA20:        models.Float(10.8),
					SMA50:        models.Float(10.2),
					Volatility20: models.Float(0.012),
				},
				MarketRegime: models.RegimeBullish,
			},
			SignalLabel:     models.SignalBullish,
			SignalStrength:  models.StrengthStrong,
			ConfidenceScore: 85,
			ExpectedMovePct: models.Float(2.68),
			RiskLevel:       models.RiskLow,
		},
	}
	require.NoError(t, s.StoreSignalSeries(ctx, "TCS.NS", rows))

	got, err := s.LoadSignalSeries(ctx, "TCS.NS")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].Date.Equal(rows[0].Date))
	assert.Nil(t, got[0].SMA10)
	assert.Nil(t, got[0].DailyReturn)
	assert.Nil(t, got[0].ExpectedMovePct)
	assert.Equal(t, models.SignalNeutral, got[0].SignalLabel)

	require.NotNil(t, got[1].SMA50)
	assert.InDelta(t, 10.2, *got[1].SMA50, 1e-9)
	require.NotNil(t, got[1].ExpectedMovePct)
	assert.InDelta(t, 2.68, *got[1].ExpectedMovePct, 1e-9)
	assert.Equal(t, 85, got[1].ConfidenceScore)
	assert.Equal(t, models.RiskLow, got[1].RiskLevel)
	assert.Equal(t, models.RegimeBullish, got[1].MarketRegime)
}

func TestParquetStore_StoreReplacesWholeSeries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := []models.PriceRow{
		{Date: day(2024, 1, 2), Open: 1, High: 1, Low: 1, Close: 1},
		{Date: day(2024, 1, 3), Open: 2, High: 2, Low: 2, Close: 2},
	}
	require.NoError(t, s.StorePriceSeries(ctx, "INFY.NS", first))
	require.NoError(t, s.StorePriceSeries(ctx, "INFY.NS", first[:1]))

	got, err := s.LoadPriceSeries(ctx, "INFY.NS")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	entries, err := os.ReadDir(filepath.Join(s.root, DatasetPrices))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestParquetStore_ListSignalSymbolsSorted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	row := models.SignalRow{RegimeRow: models.RegimeRow{FeatureRow: models.FeatureRow{
		PriceRow: models.PriceRow{Date: day(2024, 1, 2), Open: 1, High: 1, Low: 1, Close: 1},
	}}}
	for _, sym := range []string{"TCS.NS", "HDFCBANK.NS", "INFY.NS"} {
		require.NoError(t, s.StoreSignalSeries(ctx, sym, []models.SignalRow{row}))
	}

	got, err := s.ListSignalSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"HDFCBANK.NS", "INFY.NS", "TCS.NS"}, got)
}

func TestParquetStore_NewsWindow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	items := []models.NewsItem{
		{Date: now.Add(-10 * 24 * time.Hour), Stock: "TCS", Headline: "old", Sentiment: models.SentimentNeutral},
		{Date: now.Add(-2 * 24 * time.Hour), Stock: "TCS", Headline: "older", Sentiment: models.SentimentPositive, Confidence: 70},
		{Date: now.Add(-1 * time.Hour), Stock: "TCS", Headline: "newest", Sentiment: models.SentimentNegative, Confidence: 60},
	}
	require.NoError(t, s.StoreNews(ctx, "TCS.NS", items))

	// keyed by stock code, so the bare code reads the same file
	got, err := s.LoadNewsWindow(ctx, "TCS", now, 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newest", got[0].Headline)
	assert.Equal(t, "older", got[1].Headline)
	assert.Equal(t, models.SentimentPositive, got[1].Sentiment)
	assert.InDelta(t, 70, got[1].Confidence, 1e-9)
}
