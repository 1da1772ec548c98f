package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
	applogger "MarketRegime/pkg/logger"
)

func TestIngestor_Prices(t *testing.T) {
	store := newMemStore()
	unsorted := risingSeries(3)
	unsorted[0], unsorted[2] = unsorted[2], unsorted[0]
	dup := risingSeries(3)
	dup[2].Date = dup[1].Date

	prices := &fakePrices{
		series: map[string][]models.PriceRow{"TCS.NS": unsorted, "DUP.NS": dup},
		err:    map[string]error{"DOWN.NS": errors.New("503 from provider")},
	}
	m := newFakeMetrics()
	in := NewIngestor(prices, nil, fixedScorer{}, store, m, applogger.NewNop(), IngestOptions{Workers: 2})

	results := in.IngestPrices(context.Background(), []string{"TCS.NS", "GONE.NS", "DUP.NS", "DOWN.NS"})
	require.Len(t, results, 4)

	assert.Equal(t, models.OutcomeOK, results[0].Outcome)
	assert.Equal(t, 3, results[0].Rows)
	stored := store.prices["TCS.NS"]
	require.Len(t, stored, 3)
	assert.True(t, stored[0].Date.Before(stored[1].Date), "normalised into ascending order")

	assert.Equal(t, models.OutcomeSkipped, results[1].Outcome)
	assert.Equal(t, models.OutcomeFailed, results[2].Outcome)
	assert.NotContains(t, store.prices, "DUP.NS")
	assert.Equal(t, models.OutcomeFailed, results[3].Outcome)
	assert.Equal(t, 2, m.errors[StageFetchPrices])
}

func TestIngestor_NewsScoresHeadlines(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	news := &fakeNews{items: map[string][]models.NewsItem{
		"TCS.NS": {
			{Date: now.Add(-time.Hour), Stock: "TCS", Headline: "good"},
			{Date: now.Add(-2 * time.Hour), Stock: "TCS", Headline: "bad"},
		},
	}}
	in := NewIngestor(&fakePrices{}, news, fixedScorer{}, store, newFakeMetrics(), applogger.NewNop(), IngestOptions{})
	in.now = func() time.Time { return now }

	results := in.IngestNews(context.Background(), []string{"TCS.NS", "ITC.NS"})
	require.Len(t, results, 2)
	assert.Equal(t, models.OutcomeOK, results[0].Outcome)

	tcs := store.news["TCS"]
	require.Len(t, tcs, 2)
	assert.Equal(t, models.SentimentPositive, tcs[0].Sentiment)
	assert.InDelta(t, 60, tcs[0].Confidence, 1e-9)
	assert.Equal(t, models.SentimentNegative, tcs[1].Sentiment)

	itc := store.news["ITC"]
	require.Len(t, itc, 1)
	assert.Equal(t, models.NoNewsHeadline, itc[0].Headline)
	assert.Equal(t, "N/A", itc[0].Source)
	assert.Equal(t, models.SentimentNeutral, itc[0].Sentiment)
	assert.Zero(t, itc[0].Confidence)
	assert.True(t, itc[0].Date.Equal(now))
}

func TestIngestor_NewsProviderFailureStoresPlaceholder(t *testing.T) {
	store := newMemStore()
	m := newFakeMetrics()
	in := NewIngestor(&fakePrices{}, &fakeNews{err: errors.New("rate limited")}, fixedScorer{}, store, m, applogger.NewNop(), IngestOptions{})

	results := in.IngestNews(context.Background(), []string{"SBIN.NS"})
	require.Len(t, results, 1)
	assert.Equal(t, models.OutcomeOK, results[0].Outcome)
	require.Len(t, store.news["SBIN"], 1)
	assert.Equal(t, models.NoNewsHeadline, store.news["SBIN"][0].Headline)
	assert.Equal(t, 1, m.errors[StageFetchNews])
}
