package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	"MarketRegime/internal/services/analytics"
	"MarketRegime/pkg/cache"
	applogger "MarketRegime/pkg/logger"
)

func latestRow(d time.Time, label models.SignalLabel, close float64, sma20 *float64) models.SignalRow {
	return models.SignalRow{
		RegimeRow: models.RegimeRow{
			FeatureRow: models.FeatureRow{
				PriceRow: models.PriceRow{Date: d, Open: close, High: close, Low: close, Close: close},
				SMA20:    sma20,
			},
			MarketRegime: models.RegimeBullish,
		},
		SignalLabel:     label,
		SignalStrength:  models.StrengthStrong,
		ConfidenceScore: 85,
		RiskLevel:       models.RiskLow,
	}
}

func dashboardFixture(t *testing.T) (*memStore, *DashboardUseCase, time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	d1, d2 := now.AddDate(0, 0, -2), now.AddDate(0, 0, -1)

	store := newMemStore()
	store.signals["TCS.NS"] = []models.SignalRow{
		latestRow(d1, models.SignalNeutral, 100, nil),
		latestRow(d2, models.SignalBullish, 110, models.Float(105)),
	}
	store.signals["INFY.NS"] = []models.SignalRow{latestRow(d2, models.SignalBearish, 90, models.Float(95))}
	store.signals["EMPTY.NS"] = []models.SignalRow{}

	var items []models.NewsItem
	for i := 0; i < 6; i++ {
		items = append(items, models.NewsItem{Date: now.Add(-time.Duration(i+1) * time.Hour), Stock: "TCS", Headline: "h", Sentiment: models.SentimentPositive, Confidence: 40})
	}
	items = append(items, models.NewsItem{Date: now.Add(-48 * time.Hour), Stock: "TCS", Sentiment: models.SentimentNegative})
	store.news["TCS"] = items

	d := NewDashboardUseCase(store, analytics.NewImpactNarrator(), applogger.NewNop())
	d.now = func() time.Time { return now }
	return store, d, now
}

func TestDashboard_OverviewSortedByStock(t *testing.T) {
	_, d, _ := dashboardFixture(t)

	rows, err := d.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "INFY", rows[0].Stock)
	assert.Equal(t, "TCS", rows[1].Stock)
	assert.Equal(t, models.SignalBullish, rows[1].Signal)
	assert.Equal(t, 85, rows[1].ConfidenceScore)
}

func TestDashboard_StockReport(t *testing.T) {
	_, d, _ := dashboardFixture(t)

	rep, err := d.StockReport(context.Background(), "tcs")
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", rep.Symbol)
	assert.Equal(t, models.SignalBullish, rep.Latest.SignalLabel)
	assert.Len(t, rep.News, 5)
	assert.Equal(t, models.SentimentTally{Positive: 6, Negative: 1}, rep.Tally)
	assert.Equal(t, analytics.ImpactReinforcesBullish, rep.Impact)
	assert.Equal(t, models.AlignmentAligned, rep.Alignment)
	assert.Equal(t, positionAbove, rep.PricePosition)
}

func TestDashboard_StockReportWithoutNews(t *testing.T) {
	_, d, _ := dashboardFixture(t)

	rep, err := d.StockReport(context.Background(), "INFY.NS")
	require.NoError(t, err)
	assert.Empty(t, rep.News)
	assert.Equal(t, analytics.ImpactMixed, rep.Impact)
	assert.Equal(t, models.AlignmentConflict, rep.Alignment)
	assert.Equal(t, positionBelow, rep.PricePosition)
}

func TestDashboard_StockReportUnknownSymbol(t *testing.T) {
	_, d, _ := dashboardFixture(t)

	_, err := d.StockReport(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestDashboard_SignalHistoryTrailing(t *testing.T) {
	_, d, _ := dashboardFixture(t)

	rows, err := d.SignalHistory(context.Background(), "TCS.NS", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SignalBullish, rows[0].SignalLabel)

	all, err := d.SignalHistory(context.Background(), "TCS.NS", 100)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDashboard_CachesUntilInvalidated(t *testing.T) {
	store, d, _ := dashboardFixture(t)
	mem := cache.NewMemoryCache()
	defer mem.Close()
	WithDashboardCache(mem, time.Hour)(d)
	ctx := context.Background()

	first, err := d.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	store.signals["SBIN.NS"] = []models.SignalRow{latestRow(time.Now(), models.SignalNeutral, 1, nil)}
	cached, err := d.Overview(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	require.NoError(t, mem.DeleteByPattern(ctx, cache.BuildPattern(DashboardCachePrefix)))
	fresh, err := d.Overview(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}
