package usecase

import (
	"context"
	"errors"
	"time"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	domsvc "MarketRegime/internal/domain/service"
	"MarketRegime/internal/services/validation"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"
)

const (
	StageFetchPrices = "fetch_prices"
	StageFetchNews   = "fetch_news"
)

// IngestStore is the part of the series store ingestion writes to.
type IngestStore interface {
	domrepo.PriceStore
	domrepo.NewsStore
}

type IngestOptions struct {
	PriceStart time.Time
	Lookback   time.Duration
	Workers    int
}

// Ingestor pulls raw prices and headlines from the providers, cleans or
// scores them and replaces the stored series.
type Ingestor struct {
	prices  domsvc.PriceFetcher
	news    domsvc.NewsFetcher
	scorer  domsvc.SentimentScorer
	store   IngestStore
	metrics domrepo.Metrics
	l       *applogger.Logger
	opts    IngestOptions
	now     func() time.Time
}

func NewIngestor(
	prices domsvc.PriceFetcher,
	news domsvc.NewsFetcher,
	scorer domsvc.SentimentScorer,
	store IngestStore,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	opts IngestOptions,
) *Ingestor {
	if opts.Lookback <= 0 {
		opts.Lookback = 7 * 24 * time.Hour
	}
	return &Ingestor{
		prices:  prices,
		news:    news,
		scorer:  scorer,
		store:   store,
		metrics: metrics,
		l:       l,
		opts:    opts,
		now:     time.Now,
	}
}

// IngestPrices fetches, normalises, validates and stores the daily series of
// every symbol. A symbol the provider does not know is skipped and keeps
// whatever series was stored before.
func (in *Ingestor) IngestPrices(ctx context.Context, symbols []string) []models.SymbolResult {
	return forEachSymbol(ctx, symbols, in.opts.Workers, in.ingestPrices)
}

func (in *Ingestor) ingestPrices(ctx context.Context, symbol string) models.SymbolResult {
	res := models.SymbolResult{Symbol: symbol, Stage: StageFetchPrices}
	start := time.Now()
	defer func() { in.metrics.RecordStage(StageFetchPrices, time.Since(start).Seconds()) }()

	rows, err := in.prices.FetchDaily(ctx, symbol, in.opts.PriceStart, in.now())
	if err != nil {
		return in.fail(res, err)
	}

	rows = validation.NormalizePriceSeries(rows)
	if err := validation.ValidatePriceSeries(rows); err != nil {
		return in.fail(res, err)
	}
	if err := in.store.StorePriceSeries(ctx, symbol, rows); err != nil {
		return in.fail(res, err)
	}

	res.Outcome = models.OutcomeOK
	res.Rows = len(rows)
	return res
}

// IngestNews fetches and scores the recent headlines of every symbol. A
// provider failure or an empty result stores the single no-news placeholder,
// so the dashboard always has something to show.
func (in *Ingestor) IngestNews(ctx context.Context, symbols []string) []models.SymbolResult {
	return forEachSymbol(ctx, symbols, in.opts.Workers, in.ingestNews)
}

func (in *Ingestor) ingestNews(ctx context.Context, symbol string) models.SymbolResult {
	res := models.SymbolResult{Symbol: symbol, Stage: StageFetchNews}
	start := time.Now()
	defer func() { in.metrics.RecordStage(StageFetchNews, time.Since(start).Seconds()) }()

	now := in.now()
	var items []models.NewsItem
	if in.news != nil {
		fetched, err := in.news.FetchNews(ctx, symbol, now.Add(-in.opts.Lookback), now)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return in.fail(res, err)
			}
			in.metrics.RecordError(StageFetchNews)
			in.l.Warn("news fetch failed, storing placeholder",
				applogger.Symbol(symbol), applogger.Stage(StageFetchNews), applogger.Error(err))
		}
		items = fetched
	}

	for i := range items {
		items[i].Sentiment, items[i].Confidence = in.scorer.Score(items[i].Headline)
	}
	if len(items) == 0 {
		items = []models.NewsItem{placeholderNews(symbol, now)}
	}

	if err := in.store.StoreNews(ctx, symbol, items); err != nil {
		return in.fail(res, err)
	}

	res.Outcome = models.OutcomeOK
	res.Rows = len(items)
	return res
}

func placeholderNews(symbol string, now time.Time) models.NewsItem {
	return models.NewsItem{
		Date:       now,
		Stock:      util.StockCode(symbol),
		Headline:   models.NoNewsHeadline,
		Source:     "N/A",
		Sentiment:  models.SentimentNeutral,
		Confidence: 0,
	}
}

func (in *Ingestor) fail(res models.SymbolResult, err error) models.SymbolResult {
	return classify(in.l, in.metrics, res, err)
}
