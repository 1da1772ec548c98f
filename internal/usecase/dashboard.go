package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	domsvc "MarketRegime/internal/domain/service"
	"MarketRegime/pkg/cache"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"
)

// DashboardCachePrefix prefixes every cached read-model key.
const DashboardCachePrefix = "dashboard:"

const (
	positionAbove   = "above"
	positionBelow   = "below"
	positionUnknown = "n/a"
)

// DashboardStore is what the read model needs from the stores.
type DashboardStore interface {
	domrepo.SignalStore
	domrepo.NewsStore
}

// DashboardUseCase is the read side: it only reads stored signal series and
// news windows and never runs a transform itself.
type DashboardUseCase struct {
	store     DashboardStore
	narrator  domsvc.ImpactNarrator
	cache     cache.Service
	ttl       time.Duration
	lookback  time.Duration
	newsLimit int
	l         *applogger.Logger
	now       func() time.Time
}

type DashboardOption func(*DashboardUseCase)

// WithDashboardCache caches views for ttl. The runner drops them after each run.
func WithDashboardCache(c cache.Service, ttl time.Duration) DashboardOption {
	return func(d *DashboardUseCase) {
		d.cache = c
		d.ttl = ttl
	}
}

func WithNewsLookback(lookback time.Duration) DashboardOption {
	return func(d *DashboardUseCase) {
		if lookback > 0 {
			d.lookback = lookback
		}
	}
}

func NewDashboardUseCase(store DashboardStore, narrator domsvc.ImpactNarrator, l *applogger.Logger, opts ...DashboardOption) *DashboardUseCase {
	d := &DashboardUseCase{
		store:     store,
		narrator:  narrator,
		ttl:       10 * time.Minute,
		lookback:  7 * 24 * time.Hour,
		newsLimit: 5,
		l:         l,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Overview returns the latest state of every stored symbol, sorted by stock code.
func (d *DashboardUseCase) Overview(ctx context.Context) ([]models.OverviewRow, error) {
	var out []models.OverviewRow
	err := d.cached(ctx, DashboardCachePrefix+"overview", &out, func() error {
		symbols, err := d.store.ListSignalSymbols(ctx)
		if err != nil {
			return fmt.Errorf("list symbols: %w", err)
		}
		rows := make([]models.OverviewRow, 0, len(symbols))
		for _, sym := range symbols {
			latest, err := d.latest(ctx, sym)
			if err != nil {
				if domrepo.IsMissing(err) {
					continue
				}
				return err
			}
			rows = append(rows, models.OverviewRow{
				Stock:           util.StockCode(sym),
				Symbol:          sym,
				Date:            latest.Date,
				MarketRegime:    latest.MarketRegime,
				Signal:          latest.SignalLabel,
				Strength:        latest.SignalStrength,
				ConfidenceScore: latest.ConfidenceScore,
				RiskLevel:       latest.RiskLevel,
				ExpectedMovePct: latest.ExpectedMovePct,
			})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Stock < rows[j].Stock })
		out = rows
		return nil
	})
	return out, err
}

// StockReport builds the detail view: latest signal, recent news, impact
// explanation and alignment. A symbol with no stored signals is ErrNotFound.
func (d *DashboardUseCase) StockReport(ctx context.Context, symbol string) (*models.StockReport, error) {
	symbol = util.NormalizeSymbol(symbol)
	var out models.StockReport
	err := d.cached(ctx, cache.GenerateKey(DashboardCachePrefix+"report", symbol), &out, func() error {
		latest, err := d.latest(ctx, symbol)
		if err != nil {
			return err
		}
		news, err := d.window(ctx, symbol)
		if err != nil {
			return err
		}

		sentiment, confidence := models.SentimentNeutral, 0.0
		if len(news) > 0 {
			sentiment, confidence = news[0].Sentiment, news[0].Confidence
		}
		tally := models.Tally(news)
		if len(news) > d.newsLimit {
			news = news[:d.newsLimit]
		}

		out = models.StockReport{
			Stock:         util.StockCode(symbol),
			Symbol:        symbol,
			AsOf:          latest.Date,
			Latest:        latest,
			News:          news,
			Tally:         tally,
			Impact:        d.narrator.Explain(sentiment, confidence, latest.MarketRegime, latest.SignalLabel),
			Alignment:     d.narrator.Align(latest.SignalLabel, tally),
			PricePosition: pricePosition(latest),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SignalHistory returns the trailing limit signal rows, oldest first.
func (d *DashboardUseCase) SignalHistory(ctx context.Context, symbol string, limit int) ([]models.SignalRow, error) {
	symbol = util.NormalizeSymbol(symbol)
	var out []models.SignalRow
	key := cache.GenerateKeyWithParams(DashboardCachePrefix+"history", symbol, limit)
	err := d.cached(ctx, key, &out, func() error {
		rows, err := d.store.LoadSignalSeries(ctx, symbol)
		if err != nil {
			return fmt.Errorf("signals %s: %w", symbol, err)
		}
		if limit > 0 && len(rows) > limit {
			rows = rows[len(rows)-limit:]
		}
		out = rows
		return nil
	})
	return out, err
}

// News returns up to limit items of the symbol's news window, most recent first.
func (d *DashboardUseCase) News(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	items, err := d.window(ctx, util.NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (d *DashboardUseCase) latest(ctx context.Context, symbol string) (models.SignalRow, error) {
	rows, err := d.store.LoadSignalSeries(ctx, symbol)
	if err != nil {
		return models.SignalRow{}, fmt.Errorf("signals %s: %w", symbol, err)
	}
	return rows[len(rows)-1], nil
}

// window returns the news window, empty when nothing was ingested.
func (d *DashboardUseCase) window(ctx context.Context, symbol string) ([]models.NewsItem, error) {
	items, err := d.store.LoadNewsWindow(ctx, symbol, d.now(), d.lookback)
	if err != nil {
		if domrepo.IsMissing(err) {
			return []models.NewsItem{}, nil
		}
		return nil, fmt.Errorf("news %s: %w", symbol, err)
	}
	return items, nil
}

// cached serves dest from the cache or fills it with load and stores it.
// Cache failures only cost a reload.
func (d *DashboardUseCase) cached(ctx context.Context, key string, dest interface{}, load func() error) error {
	if d.cache != nil {
		err := d.cache.Get(ctx, key, dest)
		if err == nil {
			return nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			d.l.Warn("dashboard cache read failed", applogger.String("key", key), applogger.Error(err))
		}
	}

	if err := load(); err != nil {
		return err
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, dest, d.ttl); err != nil {
			d.l.Warn("dashboard cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return nil
}

func pricePosition(r models.SignalRow) string {
	switch {
	case r.SMA20 == nil:
		return positionUnknown
	case r.Close > *r.SMA20:
		return positionAbove
	default:
		return positionBelow
	}
}
