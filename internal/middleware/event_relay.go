package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	applogger "MarketRegime/pkg/logger"
)

// EventRelay sits between the pipeline and the broker. It validates signal
// events, forwards them downstream and parks them in a bounded buffer while
// the broker is unavailable. A background loop retries buffered events with
// capped exponential backoff.
type EventRelay struct {
	down     domrepo.Publisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
	bufSize  int
	retry    time.Duration
	maxRetry time.Duration
	bufCh    chan models.SignalEvent
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
}

var _ domrepo.Publisher = (*EventRelay)(nil)

type RelayOption func(*EventRelay)

// WithBufferSize sets how many events are kept while downstream is failing.
func WithBufferSize(n int) RelayOption {
	return func(r *EventRelay) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

// WithRetryInterval sets the first retry delay. The delay doubles up to 16x.
func WithRetryInterval(d time.Duration) RelayOption {
	return func(r *EventRelay) {
		if d > 0 {
			r.retry = d
			r.maxRetry = 16 * d
		}
	}
}

func NewEventRelay(down domrepo.Publisher, metrics domrepo.Metrics, l *applogger.Logger, opts ...RelayOption) *EventRelay {
	r := &EventRelay{
		down:     down,
		metrics:  metrics,
		l:        l,
		bufSize:  1024,
		retry:    100 * time.Millisecond,
		maxRetry: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bufCh = make(chan models.SignalEvent, r.bufSize)
	return r
}

// Start launches the retry loop.
func (r *EventRelay) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stop, done := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.flushLoop(ctx, stop, done)
}

func (r *EventRelay) flushLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	backoff := r.retry
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case ev := <-r.bufCh:
			if err := r.down.PublishSignal(ctx, ev); err != nil {
				r.metrics.RecordError("relay_flush")
				r.park(ev)
				select {
				case <-time.After(backoff):
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
				if backoff < r.maxRetry {
					backoff *= 2
				}
				continue
			}
			backoff = r.retry
		}
	}
}

// Stop ends the retry loop and makes one last attempt at whatever is still
// buffered, bounded by ctx. Events that still fail are dropped and counted.
func (r *EventRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.started = false
		close(r.stopCh)
		<-r.doneCh
	}
	r.mu.Unlock()

	var pending []models.SignalEvent
drain:
	for {
		select {
		case ev := <-r.bufCh:
			pending = append(pending, ev)
		default:
			break drain
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if err := r.down.PublishSignals(ctx, pending); err != nil {
		r.metrics.RecordError("relay_drop")
		r.l.Error("relay dropped buffered events", applogger.Int("count", len(pending)), applogger.Error(err))
		return fmt.Errorf("relay drain: %w", err)
	}
	return nil
}

// Pending returns the number of buffered events.
func (r *EventRelay) Pending() int {
	return len(r.bufCh)
}

func (r *EventRelay) PublishSignal(ctx context.Context, ev models.SignalEvent) error {
	return r.PublishSignals(ctx, []models.SignalEvent{ev})
}

// PublishSignals forwards valid events. When downstream fails the events
// are buffered and the downstream error is returned wrapped.
func (r *EventRelay) PublishSignals(ctx context.Context, evs []models.SignalEvent) error {
	valid := make([]models.SignalEvent, 0, len(evs))
	for _, ev := range evs {
		if err := validateEvent(ev); err != nil {
			r.metrics.RecordError("relay_validate")
			r.l.Warn("relay rejected event", applogger.Symbol(ev.Symbol), applogger.Error(err))
			continue
		}
		valid = append(valid, ev)
	}
	if len(valid) == 0 {
		return nil
	}

	if err := r.down.PublishSignals(ctx, valid); err != nil {
		r.metrics.RecordError("relay_publish")
		for _, ev := range valid {
			r.park(ev)
		}
		return fmt.Errorf("relay downstream: %w", err)
	}
	return nil
}

// Close stops the relay and closes the downstream publisher.
func (r *EventRelay) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(r.Stop(ctx), r.down.Close())
}

func (r *EventRelay) park(ev models.SignalEvent) {
	select {
	case r.bufCh <- ev:
	default:
		r.metrics.RecordError("relay_buffer_full")
		r.l.Warn("relay buffer full, event dropped", applogger.Symbol(ev.Symbol))
	}
}

func validateEvent(ev models.SignalEvent) error {
	if ev.Symbol == "" {
		return errors.New("symbol empty")
	}
	if ev.RunID == "" {
		return errors.New("run id empty")
	}
	if ev.Date.IsZero() {
		return errors.New("date missing")
	}
	return nil
}
