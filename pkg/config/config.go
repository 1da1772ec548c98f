package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"MarketRegime/internal/domain/models"
	"MarketRegime/pkg/logger"
	"MarketRegime/pkg/util"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig     `yaml:"server"`
	Logging     logger.Config    `yaml:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Pipeline    PipelineConfig   `yaml:"pipeline"`
	Storage     StorageConfig    `yaml:"storage"`
	Providers   ProvidersConfig  `yaml:"providers"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"20s"`
	// RunRatePerMinute bounds POST /api/pipeline/run per client.
	RunRatePerMinute int `yaml:"run_rate_per_minute" default:"6" validate:"gt=0"`
}

type MetricsConfig struct {
	Path string `yaml:"path" default:"/metrics"`
}

// PipelineConfig is everything a run needs. It is passed by value into the runner.
type PipelineConfig struct {
	Universe         []string       `yaml:"universe"`
	Windows          models.Windows `yaml:"windows"`
	HorizonDays      int            `yaml:"horizon_days" default:"5" validate:"gt=0"`
	Workers          int            `yaml:"workers" default:"8" validate:"gt=0,lte=64"`
	PriceStartDate   string         `yaml:"price_start_date" default:"2018-01-01" validate:"datetime=2006-01-02"`
	NewsLookbackDays int            `yaml:"news_lookback_days" default:"7" validate:"gt=0"`
	NewsPageSize     int            `yaml:"news_page_size" default:"20" validate:"gt=0,lte=100"`
	RunTimeout       time.Duration  `yaml:"run_timeout" default:"30m"`
}

// PriceStart parses PriceStartDate. Validation guarantees the layout.
func (p PipelineConfig) PriceStart() time.Time {
	return util.ParseTimeDefault(p.PriceStartDate, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))
}

func (p PipelineConfig) NewsLookback() time.Duration {
	return time.Duration(p.NewsLookbackDays) * 24 * time.Hour
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir" default:"data" validate:"required"`
}

type ProvidersConfig struct {
	YahooBaseURL    string        `yaml:"yahoo_base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
	NewsAPIBaseURL  string        `yaml:"newsapi_base_url" default:"https://newsapi.org" validate:"url"`
	NewsAPIKey      string        `yaml:"newsapi_key"`
	Timeout         time.Duration `yaml:"timeout" default:"15s"`
	RPS             float64       `yaml:"rps" default:"2" validate:"gt=0"`
	Burst           int           `yaml:"burst" default:"2" validate:"gt=0"`
	RetryAttempts   int           `yaml:"retry_attempts" default:"3" validate:"gte=1,lte=10"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" default:"500ms"`
	BreakerFailures uint32        `yaml:"breaker_failures" default:"5" validate:"gt=0"` // consecutive failures that open the circuit
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" default:"60s"`
}

type ScheduleConfig struct {
	// Enabled is a pointer so an explicit false survives defaulting.
	Enabled  *bool  `yaml:"enabled" default:"true"`
	Cron     string `yaml:"cron" default:"30 16 * * 1-5" validate:"required"`
	Timezone string `yaml:"timezone" default:"Asia/Kolkata"`
}

func (s ScheduleConfig) IsEnabled() bool {
	return s.Enabled != nil && *s.Enabled
}

type KafkaConfig struct {
	Enabled          bool                `yaml:"enabled"`
	Brokers          []string            `yaml:"brokers"`
	SignalsTopic     string              `yaml:"signals_topic" default:"market.signals"`
	RunRequestsTopic string              `yaml:"run_requests_topic" default:"market.run-requests"`
	LogDigestTopic   string              `yaml:"log_digest_topic" default:"market.log-digest"`
	RequiredAcks     int                 `yaml:"required_acks" default:"-1"`
	Compression      string              `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer         KafkaProducerConfig `yaml:"producer"`
	Consumer         KafkaConsumerConfig `yaml:"consumer"`
	RelayBuffer      int                 `yaml:"relay_buffer" default:"1024" validate:"gt=0"`
	RelayRetry       time.Duration       `yaml:"relay_retry" default:"2s"`
	DigestInterval   time.Duration       `yaml:"digest_interval" default:"30s"`
	DigestThreshold  int                 `yaml:"digest_threshold" default:"100"`
}

type KafkaProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"5"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
}

type KafkaConsumerConfig struct {
	GroupID    string        `yaml:"group_id" default:"market-regime"`
	Workers    int           `yaml:"workers" default:"1" validate:"gt=0"`
	BufferSize int           `yaml:"buffer_size" default:"16"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"10s"`
	DLQTopic   string        `yaml:"dlq_topic" default:"market.run-requests.dlq"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"market"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix" default:"marketregime"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
	LockTTL  time.Duration `yaml:"lock_ttl" default:"45m"`
}

var validate = validator.New()

// Default returns a fully defaulted configuration with the NIFTY 50 universe.
func Default() (*Config, error) {
	var c Config
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML, or defaults when path is empty,
// and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.Providers.NewsAPIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Pipeline.Universe = util.NormalizeSymbols(strings.Split(v, ","))
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) finalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Pipeline.Universe) == 0 {
		c.Pipeline.Universe = Nifty50()
	} else {
		c.Pipeline.Universe = util.NormalizeSymbols(c.Pipeline.Universe)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks struct tags plus rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Pipeline.Windows.Validate(); err != nil {
		return err
	}
	if len(c.Pipeline.Universe) == 0 {
		return errors.New("pipeline.universe cannot be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return errors.New("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}
	return nil
}
