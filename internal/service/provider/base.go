package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	xhttp "MarketRegime/pkg/http"
	applogger "MarketRegime/pkg/logger"
)

// RequestObserver records provider call latency. pkg/metrics.Recorder implements it.
type RequestObserver interface {
	ObserveRequest(provider, result string, seconds float64)
}

// Options tunes the shared client stack.
type Options struct {
	Name            string
	BaseURL         string
	Timeout         time.Duration
	RPS             float64
	Burst           int
	RetryAttempts   int
	RetryBackoff    time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// HTTPServiceBase is the shared foundation of the market data clients:
// every GET waits on a token bucket, runs inside a circuit breaker and is
// retried with backoff while the failure looks transient.
type HTTPServiceBase struct {
	name     string
	baseURL  string
	client   *xhttp.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	attempts int
	backoff  time.Duration
	log      *applogger.Logger
	observer RequestObserver
}

// NewHTTPServiceBase builds the client, limiter and breaker from opts.
func NewHTTPServiceBase(opts Options, l *applogger.Logger, obs RequestObserver) *HTTPServiceBase {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}

	b := &HTTPServiceBase{
		name:     opts.Name,
		baseURL:  opts.BaseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(opts.Timeout)),
		limiter:  rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		attempts: opts.RetryAttempts,
		backoff:  opts.RetryBackoff,
		log:      l,
		observer: obs,
	}

	failures := opts.BreakerFailures
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		// 404s and bad requests are answers, not outages
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if l != nil {
				l.Warn("provider circuit state changed",
					applogger.String("provider", name),
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			}
		},
	})
	return b
}

// Name returns the provider name used in logs and metrics.
func (b *HTTPServiceBase) Name() string { return b.name }

// BaseURL returns the configured endpoint root.
func (b *HTTPServiceBase) BaseURL() string { return b.baseURL }

// GetJSON issues GET baseURL+path with query and decodes the JSON body into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	var err error
	for i := 1; i <= b.attempts; i++ {
		err = b.getOnce(ctx, path, query, dest)
		if err == nil || !retryable(err) || i == b.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(1<<uint(i-1)) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return fmt.Errorf("%s get %s: %w", b.name, path, err)
	}
	return nil
}

func (b *HTTPServiceBase) getOnce(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         b.baseURL + path,
			QueryParams: query,
			Headers:     map[string]string{"Accept": "application/json"},
		}, dest)
	})

	if b.observer != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		b.observer.ObserveRequest(b.name, result, time.Since(start).Seconds())
	}
	return err
}

func isClientError(err error) bool {
	var se *xhttp.StatusError
	return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != 429
}

func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// transport errors and timeouts
	return true
}
