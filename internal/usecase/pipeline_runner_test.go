package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
	"MarketRegime/pkg/cache"
	"MarketRegime/pkg/config"
	applogger "MarketRegime/pkg/logger"
)

func pipelineConfig(universe ...string) config.PipelineConfig {
	return config.PipelineConfig{
		Universe:    universe,
		Windows:     models.DefaultWindows(),
		HorizonDays: 5,
		Workers:     4,
		RunTimeout:  time.Minute,
	}
}

func TestPipelineRunner_RisingSeriesEndsBullish(t *testing.T) {
	store := newMemStore()
	store.prices["TCS.NS"] = risingSeries(60)
	m := newFakeMetrics()
	pub := &recordingPublisher{}
	mirror := &recordingMirror{}

	r := NewPipelineRunner(pipelineConfig("TCS.NS"), store, m, applogger.NewNop(),
		WithPublisher(pub), WithSignalMirror(mirror))
	summary := r.Run(context.Background(), pipelineConfig("TCS.NS"))

	require.Equal(t, 1, summary.OK)
	assert.NotEmpty(t, summary.RunID)

	signals := store.signals["TCS.NS"]
	require.Len(t, signals, 60)
	last := signals[50]
	assert.Equal(t, models.RegimeBullish, last.MarketRegime)
	assert.Equal(t, models.SignalBullish, last.SignalLabel)
	assert.Equal(t, models.StrengthStrong, last.SignalStrength)
	assert.Equal(t, 85, last.ConfidenceScore)
	assert.Equal(t, models.RiskLow, last.RiskLevel)

	assert.Len(t, store.features["TCS.NS"], 60)
	assert.Len(t, store.regimes["TCS.NS"], 60)
	assert.Equal(t, 60, mirror.got["TCS.NS"])
	require.Len(t, pub.events, 1)
	assert.Equal(t, summary.RunID, pub.events[0].RunID)
	assert.True(t, pub.events[0].Date.Equal(signals[59].Date))

	assert.Equal(t, []string{"ok"}, m.runs)
	assert.False(t, m.lastRun.IsZero())
}

func TestPipelineRunner_IsolatesSymbols(t *testing.T) {
	store := newMemStore()
	store.prices["GOOD.NS"] = risingSeries(30)
	store.prices["EMPTY.NS"] = []models.PriceRow{}
	bad := risingSeries(5)
	bad[2].Close = -1
	store.prices["BAD.NS"] = bad
	store.prices["STOREFAIL.NS"] = risingSeries(5)
	store.failOn["features:STOREFAIL.NS"] = errors.New("disk full")

	m := newFakeMetrics()
	r := NewPipelineRunner(pipelineConfig(), store, m, applogger.NewNop())
	summary := r.Run(context.Background(), pipelineConfig("GOOD.NS", "MISSING.NS", "EMPTY.NS", "BAD.NS", "STOREFAIL.NS"))

	assert.Equal(t, 1, summary.OK)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 5)

	byName := map[string]models.SymbolResult{}
	for _, res := range summary.Results {
		byName[res.Symbol] = res
	}
	assert.Equal(t, models.OutcomeSkipped, byName["MISSING.NS"].Outcome)
	assert.Equal(t, StagePrices, byName["MISSING.NS"].Stage)
	assert.Equal(t, models.OutcomeFailed, byName["BAD.NS"].Outcome)
	assert.Equal(t, StagePrices, byName["BAD.NS"].Stage)
	assert.NotEmpty(t, byName["BAD.NS"].Error)
	assert.Equal(t, StageFeatures, byName["STOREFAIL.NS"].Stage)
	assert.Equal(t, 30, byName["GOOD.NS"].Rows)

	// results keep universe order
	assert.Equal(t, "GOOD.NS", summary.Results[0].Symbol)
	assert.Equal(t, []string{"partial"}, m.runs)
	assert.True(t, m.lastRun.IsZero())
}

func TestPipelineRunner_ShortSeriesPropagatesAbsence(t *testing.T) {
	store := newMemStore()
	store.prices["NEW.NS"] = risingSeries(8)

	r := NewPipelineRunner(pipelineConfig(), store, newFakeMetrics(), applogger.NewNop())
	summary := r.Run(context.Background(), pipelineConfig("NEW.NS"))
	require.Equal(t, 1, summary.OK)

	for _, row := range store.signals["NEW.NS"] {
		assert.Nil(t, row.SMA10)
		assert.Nil(t, row.ExpectedMovePct)
		assert.Equal(t, models.RegimeSideways, row.MarketRegime)
	}
}

func TestPipelineRunner_RunNowIngestsAndNotifies(t *testing.T) {
	store := newMemStore()
	prices := &fakePrices{series: map[string][]models.PriceRow{"INFY.NS": risingSeries(25)}}
	news := &fakeNews{}
	m := newFakeMetrics()
	in := NewIngestor(prices, news, fixedScorer{}, store, m, applogger.NewNop(), IngestOptions{Workers: 2})

	mem := cache.NewMemoryCache()
	defer mem.Close()
	require.NoError(t, mem.Set(context.Background(), DashboardCachePrefix+"overview", "stale", time.Hour))

	sink := &summarySink{}
	r := NewPipelineRunner(pipelineConfig("TCS.NS"), store, m, applogger.NewNop(),
		WithIngestor(in), WithRunLock(mem, time.Minute))
	r.Subscribe(sink)

	summary, err := r.RunNow(context.Background(), models.RunRequest{Symbols: []string{"infy"}, RequestedBy: "test"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OK)
	assert.Len(t, store.prices["INFY.NS"], 25)
	require.Len(t, store.news["INFY"], 1)
	assert.Equal(t, models.NoNewsHeadline, store.news["INFY"][0].Headline)
	assert.Equal(t, 1, sink.count())

	var s string
	assert.ErrorIs(t, mem.Get(context.Background(), DashboardCachePrefix+"overview", &s), cache.ErrCacheMiss)

	// lock released after the run
	ok, err := mem.TryLock(context.Background(), runLockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPipelineRunner_RejectsConcurrentRun(t *testing.T) {
	store := newMemStore()
	mem := cache.NewMemoryCache()
	defer mem.Close()

	r := NewPipelineRunner(pipelineConfig("TCS.NS"), store, newFakeMetrics(), applogger.NewNop(),
		WithRunLock(mem, time.Minute))

	// another process holds the shared lock
	ok, err := mem.TryLock(context.Background(), runLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = r.RunNow(context.Background(), models.RunRequest{SkipFetch: true})
	assert.ErrorIs(t, err, ErrRunInProgress)
	_, err = r.Launch(models.RunRequest{SkipFetch: true})
	assert.ErrorIs(t, err, ErrRunInProgress)

	require.NoError(t, mem.Unlock(context.Background(), runLockKey))
	runID, err := r.Launch(models.RunRequest{SkipFetch: true})
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	require.NoError(t, r.Wait(context.Background()))
}

func TestPipelineRunner_CancelledContextFailsUndispatched(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewPipelineRunner(pipelineConfig(), store, newFakeMetrics(), applogger.NewNop())
	summary := r.Run(ctx, pipelineConfig("A.NS", "B.NS", "C.NS"))

	assert.Len(t, summary.Results, 3)
	assert.Equal(t, 0, summary.OK)
}
