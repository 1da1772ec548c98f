package repository

import (
	"MarketRegime/internal/domain/models"
	"MarketRegime/pkg/util"
)

// Flat on-disk layouts. Dates are Unix milliseconds, optional features are
// optional columns so a missing value reads back as nil rather than zero.

type priceRecord struct {
	Date   int64   `parquet:"date"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

type featureRecord struct {
	Date         int64    `parquet:"date"`
	Open         float64  `parquet:"open"`
	High         float64  `parquet:"high"`
	Low          float64  `parquet:"low"`
	Close        float64  `parquet:"close"`
	Volume       float64  `parquet:"volume"`
	DailyReturn  *float64 `parquet:"daily_return,optional"`
	LogReturn    *float64 `parquet:"log_return,optional"`
	SMA10        *float64 `parquet:"sma_10,optional"`
	SMA20        *float64 `parquet:"sma_20,optional"`
	SMA50        *float64 `parquet:"sma_50,optional"`
	Volatility20 *float64 `parquet:"volatility_20,optional"`
}

type regimeRecord struct {
	Date         int64    `parquet:"date"`
	Open         float64  `parquet:"open"`
	High         float64  `parquet:"high"`
	Low          float64  `parquet:"low"`
	Close        float64  `parquet:"close"`
	Volume       float64  `parquet:"volume"`
	DailyReturn  *float64 `parquet:"daily_return,optional"`
	LogReturn    *float64 `parquet:"log_return,optional"`
	SMA10        *float64 `parquet:"sma_10,optional"`
	SMA20        *float64 `parquet:"sma_20,optional"`
	SMA50        *float64 `parquet:"sma_50,optional"`
	Volatility20 *float64 `parquet:"volatility_20,optional"`
	MarketRegime string   `parquet:"market_regime"`
}

type signalRecord struct {
	Date            int64    `parquet:"date"`
	Open            float64  `parquet:"open"`
	High            float64  `parquet:"high"`
	Low             float64  `parquet:"low"`
	Close           float64  `parquet:"close"`
	Volume          float64  `parquet:"volume"`
	DailyReturn     *float64 `parquet:"daily_return,optional"`
	LogReturn       *float64 `parquet:"log_return,optional"`
	SMA10           *float64 `parquet:"sma_10,optional"`
	SMA20           *float64 `parquet:"sma_20,optional"`
	SMA50           *float64 `parquet:"sma_50,optional"`
	Volatility20    *float64 `parquet:"volatility_20,optional"`
	MarketRegime    string   `parquet:"market_regime"`
	SignalLabel     string   `parquet:"signal_label"`
	SignalStrength  string   `parquet:"signal_strength"`
	ConfidenceScore int64    `parquet:"confidence_score"`
	ExpectedMovePct *float64 `parquet:"expected_move_pct,optional"`
	RiskLevel       string   `parquet:"risk_level"`
}

type newsRecord struct {
	Date       int64   `parquet:"date"`
	Stock      string  `parquet:"stock"`
	Headline   string  `parquet:"headline"`
	Source     string  `parquet:"source"`
	URL        string  `parquet:"url"`
	Sentiment  string  `parquet:"sentiment"`
	Confidence float64 `parquet:"confidence"`
}

func fromPrice(r models.PriceRow) priceRecord {
	return priceRecord{
		Date:   util.UnixMilli(r.Date),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
}

func (r priceRecord) toModel() models.PriceRow {
	return models.PriceRow{
		Date:   util.FromUnixMilli(r.Date),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
}

func fromFeature(r models.FeatureRow) featureRecord {
	p := fromPrice(r.PriceRow)
	return featureRecord{
		Date:         p.Date,
		Open:         p.Open,
		High:         p.High,
		Low:          p.Low,
		Close:        p.Close,
		Volume:       p.Volume,
		DailyReturn:  r.DailyReturn,
		LogReturn:    r.LogReturn,
		SMA10:        r.SMA10,
		SMA20:        r.SMA20,
		SMA50:        r.SMA50,
		Volatility20: r.Volatility20,
	}
}

func (r featureRecord) toModel() models.FeatureRow {
	return models.FeatureRow{
		PriceRow: priceRecord{
			Date:   r.Date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}.toModel(),
		DailyReturn:  r.DailyReturn,
		LogReturn:    r.LogReturn,
		SMA10:        r.SMA10,
		SMA20:        r.SMA20,
		SMA50:        r.SMA50,
		Volatility20: r.Volatility20,
	}
}

func fromRegime(r models.RegimeRow) regimeRecord {
	f := fromFeature(r.FeatureRow)
	return regimeRecord{
		Date:         f.Date,
		Open:         f.Open,
		High:         f.High,
		Low:          f.Low,
		Close:        f.Close,
		Volume:       f.Volume,
		DailyReturn:  f.DailyReturn,
		LogReturn:    f.LogReturn,
		SMA10:        f.SMA10,
		SMA20:        f.SMA20,
		SMA50:        f.SMA50,
		Volatility20: f.Volatility20,
		MarketRegime: string(r.MarketRegime),
	}
}

func (r regimeRecord) features() featureRecord {
	return featureRecord{
		Date:         r.Date,
		Open:         r.Open,
		High:         r.High,
		Low:          r.Low,
		Close:        r.Close,
		Volume:       r.Volume,
		DailyReturn:  r.DailyReturn,
		LogReturn:    r.LogReturn,
		SMA10:        r.SMA10,
		SMA20:        r.SMA20,
		SMA50:        r.SMA50,
		Volatility20: r.Volatility20,
	}
}

func (r regimeRecord) toModel() models.RegimeRow {
	return models.RegimeRow{FeatureRow: r.features().toModel(), MarketRegime: models.Regime(r.MarketRegime)}
}

func fromSignal(r models.SignalRow) signalRecord {
	g := fromRegime(r.RegimeRow)
	return signalRecord{
		Date:            g.Date,
		Open:            g.Open,
		High:            g.High,
		Low:             g.Low,
		Close:           g.Close,
		Volume:          g.Volume,
		DailyReturn:     g.DailyReturn,
		LogReturn:       g.LogReturn,
		SMA10:           g.SMA10,
		SMA20:           g.SMA20,
		SMA50:           g.SMA50,
		Volatility20:    g.Volatility20,
		MarketRegime:    g.MarketRegime,
		SignalLabel:     string(r.SignalLabel),
		SignalStrength:  string(r.SignalStrength),
		ConfidenceScore: int64(r.ConfidenceScore),
		ExpectedMovePct: r.ExpectedMovePct,
		RiskLevel:       string(r.RiskLevel),
	}
}

func (r signalRecord) toModel() models.SignalRow {
	regime := regimeRecord{
		Date:         r.Date,
		Open:         r.Open,
		High:         r.High,
		Low:          r.Low,
		Close:        r.Close,
		Volume:       r.Volume,
		DailyReturn:  r.DailyReturn,
		LogReturn:    r.LogReturn,
		SMA10:        r.SMA10,
		SMA20:        r.SMA20,
		SMA50:        r.SMA50,
		Volatility20: r.Volatility20,
		MarketRegime: r.MarketRegime,
	}
	return models.SignalRow{
		RegimeRow:       regime.toModel(),
		SignalLabel:     models.SignalLabel(r.SignalLabel),
		SignalStrength:  models.Strength(r.SignalStrength),
		ConfidenceScore: int(r.ConfidenceScore),
		ExpectedMovePct: r.ExpectedMovePct,
		RiskLevel:       models.RiskLevel(r.RiskLevel),
	}
}

func fromNews(n models.NewsItem) newsRecord {
	return newsRecord{
		Date:       util.UnixMilli(n.Date),
		Stock:      n.Stock,
		Headline:   n.Headline,
		Source:     n.Source,
		URL:        n.URL,
		Sentiment:  string(n.Sentiment),
		Confidence: n.Confidence,
	}
}

func (r newsRecord) toModel() models.NewsItem {
	return models.NewsItem{
		Date:       util.FromUnixMilli(r.Date),
		Stock:      r.Stock,
		Headline:   r.Headline,
		Source:     r.Source,
		URL:        r.URL,
		Sentiment:  models.Sentiment(r.Sentiment),
		Confidence: r.Confidence,
	}
}
