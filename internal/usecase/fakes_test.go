package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	"MarketRegime/pkg/util"
)

// memStore is an in-memory SeriesStore with the same missing/empty rules
// as the parquet store.
type memStore struct {
	mu       sync.Mutex
	prices   map[string][]models.PriceRow
	features map[string][]models.FeatureRow
	regimes  map[string][]models.RegimeRow
	signals  map[string][]models.SignalRow
	news     map[string][]models.NewsItem
	failOn   map[string]error // "stage:symbol" -> error
}

func newMemStore() *memStore {
	return &memStore{
		prices:   map[string][]models.PriceRow{},
		features: map[string][]models.FeatureRow{},
		regimes:  map[string][]models.RegimeRow{},
		signals:  map[string][]models.SignalRow{},
		news:     map[string][]models.NewsItem{},
		failOn:   map[string]error{},
	}
}

var _ domrepo.SeriesStore = (*memStore)(nil)

func load[T any](m map[string][]T, key string) ([]T, error) {
	rows, ok := m[key]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	if len(rows) == 0 {
		return nil, domrepo.ErrEmptySeries
	}
	return append([]T(nil), rows...), nil
}

func (s *memStore) injected(op, symbol string) error {
	return s.failOn[op+":"+symbol]
}

func (s *memStore) LoadPriceSeries(_ context.Context, symbol string) ([]models.PriceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(s.prices, symbol)
}

func (s *memStore) StorePriceSeries(_ context.Context, symbol string, rows []models.PriceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = rows
	return nil
}

func (s *memStore) LoadFeatureSeries(_ context.Context, symbol string) ([]models.FeatureRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(s.features, symbol)
}

func (s *memStore) StoreFeatureSeries(_ context.Context, symbol string, rows []models.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("features", symbol); err != nil {
		return err
	}
	s.features[symbol] = rows
	return nil
}

func (s *memStore) LoadRegimeSeries(_ context.Context, symbol string) ([]models.RegimeRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(s.regimes, symbol)
}

func (s *memStore) StoreRegimeSeries(_ context.Context, symbol string, rows []models.RegimeRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regimes[symbol] = rows
	return nil
}

func (s *memStore) LoadSignalSeries(_ context.Context, symbol string) ([]models.SignalRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(s.signals, symbol)
}

func (s *memStore) StoreSignalSeries(_ context.Context, symbol string, rows []models.SignalRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[symbol] = rows
	return nil
}

func (s *memStore) ListSignalSymbols(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.signals))
	for k := range s.signals {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) LoadNewsWindow(_ context.Context, symbol string, now time.Time, lookback time.Duration) ([]models.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := load(s.news, util.StockCode(symbol))
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if !it.Date.Before(now.Add(-lookback)) && !it.Date.After(now) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *memStore) StoreNews(_ context.Context, symbol string, items []models.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news[util.StockCode(symbol)] = items
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	runs     []string
	symbols  map[string]int
	errors   map[string]int
	lastRun  time.Time
	stageHit map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{symbols: map[string]int{}, errors: map[string]int{}, stageHit: map[string]int{}}
}

func (m *fakeMetrics) RecordRun(outcome string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, outcome)
}

func (m *fakeMetrics) RecordSymbol(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[outcome]++
}

func (m *fakeMetrics) RecordStage(stage string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageHit[stage]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLastRun(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = t
}

type fakePrices struct {
	series map[string][]models.PriceRow
	err    map[string]error
}

func (f *fakePrices) FetchDaily(_ context.Context, symbol string, _, _ time.Time) ([]models.PriceRow, error) {
	if err := f.err[symbol]; err != nil {
		return nil, err
	}
	rows, ok := f.series[symbol]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return rows, nil
}

type fakeNews struct {
	items map[string][]models.NewsItem
	err   error
}

func (f *fakeNews) FetchNews(_ context.Context, symbol string, _, _ time.Time) ([]models.NewsItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.NewsItem(nil), f.items[symbol]...), nil
}

type fixedScorer struct{}

func (fixedScorer) Score(text string) (models.Sentiment, float64) {
	switch text {
	case "good":
		return models.SentimentPositive, 60
	case "bad":
		return models.SentimentNegative, 55
	}
	return models.SentimentNeutral, 0
}

type recordingMirror struct {
	mu   sync.Mutex
	got  map[string]int
	fail error
}

func (m *recordingMirror) ReplaceSignals(_ context.Context, _, symbol string, rows []models.SignalRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if m.got == nil {
		m.got = map[string]int{}
	}
	m.got[symbol] = len(rows)
	return nil
}

func (m *recordingMirror) LatestSignals(context.Context, int) ([]models.SignalEvent, error) {
	return nil, errors.New("not used")
}

func (m *recordingMirror) Health(context.Context) error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SignalEvent
}

func (p *recordingPublisher) PublishSignal(ctx context.Context, ev models.SignalEvent) error {
	return p.PublishSignals(ctx, []models.SignalEvent{ev})
}

func (p *recordingPublisher) PublishSignals(_ context.Context, evs []models.SignalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type summarySink struct {
	mu  sync.Mutex
	got []models.RunSummary
}

func (s *summarySink) BroadcastSummary(sum models.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, sum)
}

func (s *summarySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

// risingSeries returns n daily rows with close = 100 + i.
func risingSeries(n int) []models.PriceRow {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.PriceRow, n)
	for i := range rows {
		c := 100 + float64(i)
		rows[i] = models.PriceRow{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return rows
}
