package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"
)

// Dataset directories under the data root.
const (
	DatasetPrices   = "prices"
	DatasetFeatures = "features"
	DatasetRegimes  = "market_regime"
	DatasetSignals  = "signals"
	DatasetNews     = "news"
)

const fileExt = ".parquet"

// ParquetStore keeps one parquet file per symbol and dataset. Every store
// call replaces the whole file: rows are written to a temp file in the same
// directory and renamed over the old one, so readers see the old or the new
// set and never a mix.
type ParquetStore struct {
	root string
	l    *applogger.Logger
}

var _ domrepo.SeriesStore = (*ParquetStore)(nil)

// NewParquetStore creates the dataset directories under root.
func NewParquetStore(root string, l *applogger.Logger) (*ParquetStore, error) {
	for _, ds := range []string{DatasetPrices, DatasetFeatures, DatasetRegimes, DatasetSignals, DatasetNews} {
		if err := os.MkdirAll(filepath.Join(root, ds), 0o755); err != nil {
			return nil, fmt.Errorf("parquet store: %w", err)
		}
	}
	return &ParquetStore{root: root, l: l}, nil
}

func (s *ParquetStore) path(dataset, key string) string {
	return filepath.Join(s.root, dataset, key+fileExt)
}

func (s *ParquetStore) LoadPriceSeries(ctx context.Context, symbol string) ([]models.PriceRow, error) {
	recs, err := readAll[priceRecord](ctx, s.path(DatasetPrices, symbol))
	if err != nil {
		return nil, s.wrap("load prices", symbol, err)
	}
	out := make([]models.PriceRow, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *ParquetStore) StorePriceSeries(ctx context.Context, symbol string, rows []models.PriceRow) error {
	recs := make([]priceRecord, len(rows))
	for i, r := range rows {
		recs[i] = fromPrice(r)
	}
	return s.wrap("store prices", symbol, writeAll(ctx, s.path(DatasetPrices, symbol), recs))
}

func (s *ParquetStore) LoadFeatureSeries(ctx context.Context, symbol string) ([]models.FeatureRow, error) {
	recs, err := readAll[featureRecord](ctx, s.path(DatasetFeatures, symbol))
	if err != nil {
		return nil, s.wrap("load features", symbol, err)
	}
	out := make([]models.FeatureRow, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *ParquetStore) StoreFeatureSeries(ctx context.Context, symbol string, rows []models.FeatureRow) error {
	recs := make([]featureRecord, len(rows))
	for i, r := range rows {
		recs[i] = fromFeature(r)
	}
	return s.wrap("store features", symbol, writeAll(ctx, s.path(DatasetFeatures, symbol), recs))
}

func (s *ParquetStore) LoadRegimeSeries(ctx context.Context, symbol string) ([]models.RegimeRow, error) {
	recs, err := readAll[regimeRecord](ctx, s.path(DatasetRegimes, symbol))
	if err != nil {
		return nil, s.wrap("load regimes", symbol, err)
	}
	out := make([]models.RegimeRow, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *ParquetStore) StoreRegimeSeries(ctx context.Context, symbol string, rows []models.RegimeRow) error {
	recs := make([]regimeRecord, len(rows))
	for i, r := range rows {
		recs[i] = fromRegime(r)
	}
	return s.wrap("store regimes", symbol, writeAll(ctx, s.path(DatasetRegimes, symbol), recs))
}

func (s *ParquetStore) LoadSignalSeries(ctx context.Context, symbol string) ([]models.SignalRow, error) {
	recs, err := readAll[signalRecord](ctx, s.path(DatasetSignals, symbol))
	if err != nil {
		return nil, s.wrap("load signals", symbol, err)
	}
	out := make([]models.SignalRow, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *ParquetStore) StoreSignalSeries(ctx context.Context, symbol string, rows []models.SignalRow) error {
	recs := make([]signalRecord, len(rows))
	for i, r := range rows {
		recs[i] = fromSignal(r)
	}
	return s.wrap("store signals", symbol, writeAll(ctx, s.path(DatasetSignals, symbol), recs))
}

// ListSignalSymbols returns every symbol with a stored signal series, sorted.
func (s *ParquetStore) ListSignalSymbols(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, DatasetSignals))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list signals: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(out)
	return out, nil
}

// LoadNewsWindow returns the stock's items dated within lookback of now, most recent first.
// News files are keyed by stock code, so "TCS.NS" and "TCS" read the same file.
func (s *ParquetStore) LoadNewsWindow(ctx context.Context, symbol string, now time.Time, lookback time.Duration) ([]models.NewsItem, error) {
	code := util.StockCode(symbol)
	recs, err := readAll[newsRecord](ctx, s.path(DatasetNews, code))
	if err != nil {
		return nil, s.wrap("load news", code, err)
	}

	cutoff := now.Add(-lookback)
	out := make([]models.NewsItem, 0, len(recs))
	for _, r := range recs {
		it := r.toModel()
		if it.Date.Before(cutoff) || it.Date.After(now) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *ParquetStore) StoreNews(ctx context.Context, symbol string, items []models.NewsItem) error {
	code := util.StockCode(symbol)
	recs := make([]newsRecord, len(items))
	for i, it := range items {
		recs[i] = fromNews(it)
	}
	return s.wrap("store news", code, writeAll(ctx, s.path(DatasetNews, code), recs))
}

func (s *ParquetStore) wrap(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	if s.l != nil && !domrepo.IsMissing(err) {
		s.l.Error("parquet "+op+" failed", applogger.Symbol(symbol), applogger.Error(err))
	}
	return fmt.Errorf("%s %s: %w", op, symbol, err)
}

// readAll reads a whole file. A missing file is ErrNotFound and a file
// without rows is ErrEmptySeries.
func readAll[T any](ctx context.Context, path string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domrepo.ErrNotFound
		}
		return nil, err
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domrepo.ErrEmptySeries
	}
	return rows, nil
}

func writeAll[T any](ctx context.Context, path string, rows []T) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+fileExt)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = parquet.Write(tmp, rows, parquet.Compression(&parquet.Snappy)); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
