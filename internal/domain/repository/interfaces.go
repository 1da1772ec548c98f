package repository

import (
	"context"
	"time"

	"MarketRegime/internal/domain/models"
)

// PriceStore persists cleaned daily price series.
type PriceStore interface {
	LoadPriceSeries(ctx context.Context, symbol string) ([]models.PriceRow, error)
	StorePriceSeries(ctx context.Context, symbol string, rows []models.PriceRow) error
}

// FeatureStore persists feature series. Store replaces the whole set for a symbol.
type FeatureStore interface {
	LoadFeatureSeries(ctx context.Context, symbol string) ([]models.FeatureRow, error)
	StoreFeatureSeries(ctx context.Context, symbol string, rows []models.FeatureRow) error
}

type RegimeStore interface {
	LoadRegimeSeries(ctx context.Context, symbol string) ([]models.RegimeRow, error)
	StoreRegimeSeries(ctx context.Context, symbol string, rows []models.RegimeRow) error
}

type SignalStore interface {
	LoadSignalSeries(ctx context.Context, symbol string) ([]models.SignalRow, error)
	StoreSignalSeries(ctx context.Context, symbol string, rows []models.SignalRow) error
	ListSignalSymbols(ctx context.Context) ([]string, error)
}

// NewsStore persists scored headlines per stock code.
type NewsStore interface {
	// LoadNewsWindow returns items dated within lookback of now, most recent first.
	LoadNewsWindow(ctx context.Context, symbol string, now time.Time, lookback time.Duration) ([]models.NewsItem, error)
	StoreNews(ctx context.Context, symbol string, items []models.NewsItem) error
}

// SeriesStore is the full set of stores the pipeline runs against.
type SeriesStore interface {
	PriceStore
	FeatureStore
	RegimeStore
	SignalStore
	NewsStore
}

// SignalMirror receives a copy of every stored signal series (analytics warehouse).
type SignalMirror interface {
	ReplaceSignals(ctx context.Context, runID, symbol string, rows []models.SignalRow) error
	LatestSignals(ctx context.Context, limit int) ([]models.SignalEvent, error)
	Health(ctx context.Context) error
}

// Publisher emits signal events downstream.
type Publisher interface {
	PublishSignal(ctx context.Context, ev models.SignalEvent) error
	PublishSignals(ctx context.Context, evs []models.SignalEvent) error
	Close() error
}

type Metrics interface {
	RecordRun(outcome string, seconds float64)
	RecordSymbol(outcome string)
	RecordStage(stage string, seconds float64)
	RecordError(kind string)
	RecordLastRun(t time.Time)
}
