package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	domsvc "MarketRegime/internal/domain/service"
	"MarketRegime/internal/services/analytics"
	"MarketRegime/internal/services/features"
	"MarketRegime/internal/services/validation"
	"MarketRegime/pkg/cache"
	"MarketRegime/pkg/config"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("pipeline run already in progress")

const (
	StagePrices   = "prices"
	StageFeatures = "features"
	StageRegime   = "regime"
	StageSignals  = "signals"
	StagePublish  = "publish"

	runLockKey = "lock:pipeline-run"
)

// SummaryListener is told about every finished run.
type SummaryListener interface {
	BroadcastSummary(summary models.RunSummary)
}

// PipelineRunner drives the feature, regime and signal stages over the
// configured universe. Symbols are independent and run on a worker pool.
type PipelineRunner struct {
	cfg        config.PipelineConfig
	store      domrepo.SeriesStore
	classifier domsvc.RegimeClassifier
	ingestor   *Ingestor
	mirror     domrepo.SignalMirror
	publisher  domrepo.Publisher
	cache      cache.Service
	lockTTL    time.Duration
	metrics    domrepo.Metrics
	l          *applogger.Logger

	mu        sync.Mutex
	local     sync.Mutex
	listeners []SummaryListener
	wg        sync.WaitGroup

	now   func() time.Time
	newID func() string
}

type RunnerOption func(*PipelineRunner)

// WithIngestor refreshes prices and news before each triggered run.
func WithIngestor(in *Ingestor) RunnerOption {
	return func(r *PipelineRunner) { r.ingestor = in }
}

// WithSignalMirror copies every stored signal series to the warehouse.
func WithSignalMirror(m domrepo.SignalMirror) RunnerOption {
	return func(r *PipelineRunner) { r.mirror = m }
}

// WithPublisher emits the latest signal of each symbol after it is stored.
func WithPublisher(p domrepo.Publisher) RunnerOption {
	return func(r *PipelineRunner) { r.publisher = p }
}

// WithRunLock serialises runs across processes through the cache lock and
// invalidates cached dashboard views after each run.
func WithRunLock(c cache.Service, ttl time.Duration) RunnerOption {
	return func(r *PipelineRunner) {
		r.cache = c
		r.lockTTL = ttl
	}
}

func NewPipelineRunner(
	cfg config.PipelineConfig,
	store domrepo.SeriesStore,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	opts ...RunnerOption,
) *PipelineRunner {
	cfg.Windows = models.NormalizeWindows(cfg.Windows)
	r := &PipelineRunner{
		cfg:        cfg,
		store:      store,
		classifier: analytics.NewRegimeClassifier(),
		metrics:    metrics,
		l:          l,
		lockTTL:    45 * time.Minute,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers a listener for run summaries.
func (r *PipelineRunner) Subscribe(s SummaryListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, s)
}

// Run computes features, regimes and signals for cfg.Universe from the stored
// prices. It never aborts on one symbol and always joins every worker.
func (r *PipelineRunner) Run(ctx context.Context, cfg config.PipelineConfig) models.RunSummary {
	return r.run(ctx, r.newID(), cfg)
}

// RunNow takes the run lock, refreshes inputs unless asked not to, runs the
// pipeline and notifies listeners. It blocks until the run is finished.
func (r *PipelineRunner) RunNow(ctx context.Context, req models.RunRequest) (models.RunSummary, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return models.RunSummary{}, err
	}
	defer release()
	return r.execute(ctx, r.newID(), req), nil
}

// Launch takes the run lock and runs in the background. It returns the run
// id at once, or ErrRunInProgress.
func (r *PipelineRunner) Launch(req models.RunRequest) (string, error) {
	release, err := r.acquire(context.Background())
	if err != nil {
		return "", err
	}

	runID := r.newID()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release()
		r.execute(context.Background(), runID, req)
	}()
	return runID, nil
}

// Wait blocks until background runs started by Launch are done or ctx ends.
func (r *PipelineRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *PipelineRunner) acquire(ctx context.Context) (func(), error) {
	if !r.local.TryLock() {
		return nil, ErrRunInProgress
	}
	if r.cache == nil {
		return r.local.Unlock, nil
	}

	ok, err := r.cache.TryLock(ctx, runLockKey, r.lockTTL)
	if err != nil {
		r.local.Unlock()
		return nil, fmt.Errorf("run lock: %w", err)
	}
	if !ok {
		r.local.Unlock()
		return nil, ErrRunInProgress
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.cache.Unlock(ctx, runLockKey); err != nil {
			r.l.Warn("run lock release failed", applogger.Error(err))
		}
		r.local.Unlock()
	}, nil
}

func (r *PipelineRunner) execute(ctx context.Context, runID string, req models.RunRequest) models.RunSummary {
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	cfg := r.cfg
	if len(req.Symbols) > 0 {
		cfg.Universe = util.NormalizeSymbols(req.Symbols)
	}

	r.l.Info("pipeline run started",
		applogger.String("run_id", runID),
		applogger.String("requested_by", req.RequestedBy),
		applogger.Int("symbols", len(cfg.Universe)),
		applogger.Bool("skip_fetch", req.SkipFetch),
	)

	if !req.SkipFetch && r.ingestor != nil {
		r.logIngest(runID, StageFetchPrices, r.ingestor.IngestPrices(ctx, cfg.Universe))
		r.logIngest(runID, StageFetchNews, r.ingestor.IngestNews(ctx, cfg.Universe))
	}

	summary := r.run(ctx, runID, cfg)

	if r.cache != nil {
		if err := r.cache.DeleteByPattern(context.Background(), cache.BuildPattern(DashboardCachePrefix)); err != nil {
			r.l.Warn("dashboard cache invalidation failed", applogger.Error(err))
		}
	}

	r.mu.Lock()
	listeners := append([]SummaryListener(nil), r.listeners...)
	r.mu.Unlock()
	for _, s := range listeners {
		s.BroadcastSummary(summary)
	}
	return summary
}

func (r *PipelineRunner) logIngest(runID, stage string, results []models.SymbolResult) {
	var ok, skipped, failed int
	for _, res := range results {
		switch res.Outcome {
		case models.OutcomeOK:
			ok++
		case models.OutcomeSkipped:
			skipped++
		default:
			failed++
		}
	}
	r.l.Info("ingest finished",
		applogger.String("run_id", runID),
		applogger.Stage(stage),
		applogger.Int("ok", ok),
		applogger.Int("skipped", skipped),
		applogger.Int("failed", failed),
	)
}

func (r *PipelineRunner) run(ctx context.Context, runID string, cfg config.PipelineConfig) models.RunSummary {
	start := r.now()
	cfg.Windows = models.NormalizeWindows(cfg.Windows)
	builder := features.NewBuilder(cfg.Windows)
	generator := analytics.NewSignalGenerator(cfg.HorizonDays)

	results := forEachSymbol(ctx, cfg.Universe, cfg.Workers, func(ctx context.Context, symbol string) models.SymbolResult {
		res := r.processSymbol(ctx, runID, symbol, builder, generator)
		r.metrics.RecordSymbol(string(res.Outcome))
		return res
	})

	summary := models.RunSummary{RunID: runID, StartedAt: start}
	for _, res := range results {
		summary.Add(res)
	}
	summary.FinishedAt = r.now()

	outcome := "ok"
	if summary.Failed > 0 {
		outcome = "partial"
	}
	if ctx.Err() != nil {
		outcome = "aborted"
	}
	r.metrics.RecordRun(outcome, summary.FinishedAt.Sub(start).Seconds())
	if outcome == "ok" {
		r.metrics.RecordLastRun(summary.FinishedAt)
	}

	r.l.Info("pipeline run finished",
		applogger.String("run_id", runID),
		applogger.String("outcome", outcome),
		applogger.Int("ok", summary.OK),
		applogger.Int("skipped", summary.Skipped),
		applogger.Int("failed", summary.Failed),
		applogger.Duration("duration_ms", summary.FinishedAt.Sub(start)),
	)
	return summary
}

// processSymbol runs every stage for one symbol. Each stage reads its input
// back through the store, so a missing or empty series is caught where it
// is consumed.
func (r *PipelineRunner) processSymbol(
	ctx context.Context,
	runID, symbol string,
	builder domsvc.FeatureBuilder,
	generator domsvc.SignalGenerator,
) models.SymbolResult {
	res := models.SymbolResult{Symbol: symbol}

	res.Stage = StagePrices
	t := time.Now()
	prices, err := r.store.LoadPriceSeries(ctx, symbol)
	if err == nil {
		prices = validation.NormalizePriceSeries(prices)
		err = validation.ValidatePriceSeries(prices)
	}
	r.metrics.RecordStage(StagePrices, time.Since(t).Seconds())
	if err != nil {
		return r.fail(res, err)
	}

	res.Stage = StageFeatures
	t = time.Now()
	err = r.store.StoreFeatureSeries(ctx, symbol, builder.Build(prices))
	r.metrics.RecordStage(StageFeatures, time.Since(t).Seconds())
	if err != nil {
		return r.fail(res, err)
	}

	res.Stage = StageRegime
	t = time.Now()
	feats, err := r.store.LoadFeatureSeries(ctx, symbol)
	if err == nil {
		err = r.store.StoreRegimeSeries(ctx, symbol, r.classifier.Classify(feats))
	}
	r.metrics.RecordStage(StageRegime, time.Since(t).Seconds())
	if err != nil {
		return r.fail(res, err)
	}

	res.Stage = StageSignals
	t = time.Now()
	regimes, err := r.store.LoadRegimeSeries(ctx, symbol)
	var signals []models.SignalRow
	if err == nil {
		signals = generator.Generate(regimes)
		err = r.store.StoreSignalSeries(ctx, symbol, signals)
	}
	r.metrics.RecordStage(StageSignals, time.Since(t).Seconds())
	if err != nil {
		return r.fail(res, err)
	}

	r.publish(ctx, runID, symbol, signals)

	res.Stage = ""
	res.Outcome = models.OutcomeOK
	res.Rows = len(signals)
	return res
}

// publish is best effort. The stored series is the source of truth, so a
// mirror or broker failure is logged and counted without failing the symbol.
func (r *PipelineRunner) publish(ctx context.Context, runID, symbol string, signals []models.SignalRow) {
	if len(signals) == 0 || (r.mirror == nil && r.publisher == nil) {
		return
	}
	t := time.Now()
	defer func() { r.metrics.RecordStage(StagePublish, time.Since(t).Seconds()) }()

	if r.mirror != nil {
		if err := r.mirror.ReplaceSignals(ctx, runID, symbol, signals); err != nil {
			r.metrics.RecordError("mirror")
			r.l.Warn("signal mirror failed", applogger.Symbol(symbol), applogger.Stage(StagePublish), applogger.Error(err))
		}
	}
	if r.publisher != nil {
		ev := models.NewSignalEvent(runID, symbol, signals[len(signals)-1], r.now().UTC())
		if err := r.publisher.PublishSignal(ctx, ev); err != nil {
			r.metrics.RecordError("publish")
			r.l.Warn("signal event publish failed", applogger.Symbol(symbol), applogger.Stage(StagePublish), applogger.Error(err))
		}
	}
}

func (r *PipelineRunner) fail(res models.SymbolResult, err error) models.SymbolResult {
	return classify(r.l, r.metrics, res, err)
}

// classify turns a stage error into a skipped or failed result and logs it.
func classify(l *applogger.Logger, m domrepo.Metrics, res models.SymbolResult, err error) models.SymbolResult {
	res.Error = err.Error()
	if domrepo.IsMissing(err) {
		res.Outcome = models.OutcomeSkipped
		l.Warn("symbol skipped", applogger.Symbol(res.Symbol), applogger.Stage(res.Stage), applogger.Error(err))
		return res
	}
	res.Outcome = models.OutcomeFailed
	m.RecordError(res.Stage)
	l.Error("symbol failed", applogger.Symbol(res.Symbol), applogger.Stage(res.Stage), applogger.Error(err))
	return res
}
