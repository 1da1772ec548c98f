package service

import (
	"context"
	"time"

	"MarketRegime/internal/domain/models"
)

// FeatureBuilder derives return, moving-average and volatility features.
type FeatureBuilder interface {
	Build(rows []models.PriceRow) []models.FeatureRow
}

// RegimeClassifier labels each day from moving-average structure.
type RegimeClassifier interface {
	Classify(rows []models.FeatureRow) []models.RegimeRow
}

// SignalGenerator derives the directional call, confidence, expected move and risk.
type SignalGenerator interface {
	Generate(rows []models.RegimeRow) []models.SignalRow
}

// ImpactNarrator explains news impact and grades signal/news alignment.
type ImpactNarrator interface {
	Explain(sentiment models.Sentiment, confidence float64, regime models.Regime, signal models.SignalLabel) string
	Align(signal models.SignalLabel, tally models.SentimentTally) models.Alignment
}

// SentimentScorer assigns a polarity label and 0-100 confidence to a headline.
type SentimentScorer interface {
	Score(text string) (models.Sentiment, float64)
}

// PriceFetcher acquires raw daily bars for a symbol.
type PriceFetcher interface {
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceRow, error)
}

// NewsFetcher acquires raw headlines for a symbol within a window.
type NewsFetcher interface {
	FetchNews(ctx context.Context, symbol string, from, to time.Time) ([]models.NewsItem, error)
}
