package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	domrepo "MarketRegime/internal/domain/repository"
	domsvc "MarketRegime/internal/domain/service"
	"MarketRegime/internal/handler/api"
	mid "MarketRegime/internal/middleware"
	internalrepo "MarketRegime/internal/repository"
	"MarketRegime/internal/service/newsapi"
	"MarketRegime/internal/service/provider"
	"MarketRegime/internal/service/ratelimit"
	"MarketRegime/internal/service/scheduler"
	"MarketRegime/internal/service/yahoo"
	"MarketRegime/internal/services/analytics"
	"MarketRegime/internal/services/sentiment"
	"MarketRegime/internal/usecase"
	"MarketRegime/pkg/cache"
	pkgch "MarketRegime/pkg/clickhouse"
	"MarketRegime/pkg/config"
	xhttp "MarketRegime/pkg/http"
	pkgkafka "MarketRegime/pkg/kafka"
	applogger "MarketRegime/pkg/logger"
	"MarketRegime/pkg/metrics"
	"MarketRegime/pkg/server"
)

// LogDigest marks that warn/error digests are shipped to Kafka.
type LogDigest struct {
	Enabled bool
}

// ProvideLogger builds the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideCache returns Redis behind an in-process layer when Redis is
// enabled, otherwise a memory cache. The run lock then only holds within
// this process.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache()
		return mc, func() { _ = mc.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(time.Minute))
	l.Info("redis cache connected", applogger.String("addr", cfg.Redis.Addr))
	return lc, func() {
		if err := lc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}, nil
}

// ProvideSeriesStore opens the parquet store under the data directory.
func ProvideSeriesStore(cfg *config.Config, l *applogger.Logger) (*internalrepo.ParquetStore, error) {
	store, err := internalrepo.NewParquetStore(cfg.Storage.DataDir, l)
	if err != nil {
		return nil, fmt.Errorf("series store: %w", err)
	}
	return store, nil
}

// ProvideClickHouseClient connects and creates the signals table. It returns
// nil when the warehouse mirror is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, pkgch.SignalSchema(client.Database())); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse connected, schema ready", applogger.String("database", client.Database()))

	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideSignalMirror returns nil when ClickHouse is disabled.
func ProvideSignalMirror(ch *pkgch.Client, l *applogger.Logger) domrepo.SignalMirror {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHSignalStore(ch, l)
}

// ProvideKafkaProducer returns nil when Kafka is disabled. The relay owns
// closing it.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventRelay buffers signal events in front of the Kafka publisher.
// Nil when Kafka is disabled.
func ProvideEventRelay(cfg *config.Config, producer *pkgkafka.Producer, m *metrics.Recorder, l *applogger.Logger) (*mid.EventRelay, func()) {
	if producer == nil {
		return nil, func() {}
	}
	relay := mid.NewEventRelay(
		internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalsTopic),
		m,
		l.With(applogger.String("component", "relay")),
		mid.WithBufferSize(cfg.Kafka.RelayBuffer),
		mid.WithRetryInterval(cfg.Kafka.RelayRetry),
	)
	return relay, func() {
		if err := relay.Close(); err != nil {
			l.Warn("relay close error", applogger.Error(err))
		}
	}
}

// ProvideLogDigest ships repeated warnings and errors to Kafka as digests.
func ProvideLogDigest(cfg *config.Config, l *applogger.Logger, producer *pkgkafka.Producer) (LogDigest, func()) {
	if producer == nil {
		return LogDigest{}, func() {}
	}
	host, _ := os.Hostname()
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   cfg.Kafka.DigestInterval,
		CountThreshold: cfg.Kafka.DigestThreshold,
		Topic:          cfg.Kafka.LogDigestTopic,
		Source:         host,
		Publisher:      producer,
	})
	return LogDigest{Enabled: true}, l.RemoveCollector
}

func providerOptions(cfg *config.Config, name, baseURL string) provider.Options {
	p := cfg.Providers
	return provider.Options{
		Name:            name,
		BaseURL:         baseURL,
		Timeout:         p.Timeout,
		RPS:             p.RPS,
		Burst:           p.Burst,
		RetryAttempts:   p.RetryAttempts,
		RetryBackoff:    p.RetryBackoff,
		BreakerFailures: p.BreakerFailures,
		BreakerTimeout:  p.BreakerTimeout,
	}
}

func ProvidePriceFetcher(cfg *config.Config, l *applogger.Logger, m *metrics.Recorder) domsvc.PriceFetcher {
	base := provider.NewHTTPServiceBase(providerOptions(cfg, "yahoo", cfg.Providers.YahooBaseURL), l, m)
	return yahoo.NewClient(base, l)
}

func ProvideNewsFetcher(cfg *config.Config, l *applogger.Logger, m *metrics.Recorder) domsvc.NewsFetcher {
	if cfg.Providers.NewsAPIKey == "" {
		l.Warn("newsapi key not set, every symbol will carry the no-news placeholder")
	}
	base := provider.NewHTTPServiceBase(providerOptions(cfg, "newsapi", cfg.Providers.NewsAPIBaseURL), l, m)
	return newsapi.NewClient(base, cfg.Providers.NewsAPIKey, cfg.Pipeline.NewsPageSize, l)
}

func ProvideSentimentScorer() domsvc.SentimentScorer {
	return sentiment.NewScorer(nil)
}

func ProvideImpactNarrator() domsvc.ImpactNarrator {
	return analytics.NewImpactNarrator()
}

func ProvideIngestor(
	cfg *config.Config,
	prices domsvc.PriceFetcher,
	news domsvc.NewsFetcher,
	scorer domsvc.SentimentScorer,
	store *internalrepo.ParquetStore,
	m *metrics.Recorder,
	l *applogger.Logger,
) *usecase.Ingestor {
	return usecase.NewIngestor(prices, news, scorer, store, m, l.With(applogger.String("component", "ingest")), usecase.IngestOptions{
		PriceStart: cfg.Pipeline.PriceStart(),
		Lookback:   cfg.Pipeline.NewsLookback(),
		Workers:    cfg.Pipeline.Workers,
	})
}

// ProvidePipelineRunner wires the optional mirror and relay only when they exist.
func ProvidePipelineRunner(
	cfg *config.Config,
	store *internalrepo.ParquetStore,
	m *metrics.Recorder,
	l *applogger.Logger,
	ingestor *usecase.Ingestor,
	mirror domrepo.SignalMirror,
	relay *mid.EventRelay,
	c cache.Service,
) *usecase.PipelineRunner {
	opts := []usecase.RunnerOption{
		usecase.WithIngestor(ingestor),
		usecase.WithRunLock(c, cfg.Redis.LockTTL),
	}
	if mirror != nil {
		opts = append(opts, usecase.WithSignalMirror(mirror))
	}
	if relay != nil {
		opts = append(opts, usecase.WithPublisher(relay))
	}
	return usecase.NewPipelineRunner(cfg.Pipeline, store, m, l.With(applogger.String("component", "pipeline")), opts...)
}

func ProvideDashboard(
	cfg *config.Config,
	store *internalrepo.ParquetStore,
	narrator domsvc.ImpactNarrator,
	c cache.Service,
	l *applogger.Logger,
) *usecase.DashboardUseCase {
	return usecase.NewDashboardUseCase(store, narrator, l,
		usecase.WithDashboardCache(c, cfg.Redis.CacheTTL),
		usecase.WithNewsLookback(cfg.Pipeline.NewsLookback()),
	)
}

// ProvideStreamHub subscribes the WebSocket hub to finished runs.
func ProvideStreamHub(l *applogger.Logger, runner *usecase.PipelineRunner) *api.StreamHub {
	hub := api.NewStreamHub(l)
	runner.Subscribe(hub)
	return hub
}

func ProvideDashboardHandler(
	cfg *config.Config,
	l *applogger.Logger,
	dashboard *usecase.DashboardUseCase,
	runner *usecase.PipelineRunner,
	store *internalrepo.ParquetStore,
	mirror domrepo.SignalMirror,
) *api.DashboardEchoHandler {
	checks := map[string]api.HealthCheck{
		"store": func(ctx context.Context) error {
			_, err := store.ListSignalSymbols(ctx)
			return err
		},
	}
	if mirror != nil {
		checks["clickhouse"] = mirror.Health
	}
	limiter := ratelimit.New(cfg.Server.RunRatePerMinute, 1)
	return api.NewDashboardEchoHandler(l, dashboard, runner, limiter.Middleware(), checks)
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	dashboard *api.DashboardEchoHandler,
	hub *api.StreamHub,
) *xhttp.Server {
	return xhttp.NewServer(l, []xhttp.Handler{dashboard, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Path, reg),
	)
}

// ProvideScheduler returns nil when the schedule is disabled.
func ProvideScheduler(cfg *config.Config, runner *usecase.PipelineRunner, l *applogger.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Schedule.IsEnabled() {
		return nil, nil
	}
	s, err := scheduler.New(cfg.Schedule, cfg.Pipeline.RunTimeout, runner, l)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return s, nil
}

// ProvideKafkaConsumer creates the run-requests consumer. Nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "kafka-consumer"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRunRequestHandler handles the run-requests topic.
func ProvideRunRequestHandler(cfg *config.Config, runner *usecase.PipelineRunner, m *metrics.Recorder, l *applogger.Logger) *usecase.RunRequestHandler {
	return usecase.NewRunRequestHandler(cfg.Kafka.RunRequestsTopic, runner, m, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.PipelineRunner,
	httpServer *xhttp.Server,
	hub *api.StreamHub,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	runReqs *usecase.RunRequestHandler,
	relay *mid.EventRelay,
	digest LogDigest,
) *server.App {
	var opts []server.Option
	if sched != nil {
		opts = append(opts, server.WithScheduler(sched))
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, runReqs))
	}
	if relay != nil {
		opts = append(opts, server.WithRelay(relay))
	}
	if digest.Enabled {
		l.Debug("log digests enabled", applogger.String("topic", cfg.Kafka.LogDigestTopic))
	}
	return server.New(cfg, l, runner, httpServer, hub, opts...)
}
