// Package audit implements the append-only security event log.
//
// Record never fails its caller: persistence errors are retried a bounded
// number of times, then logged and counted. In async mode events flow through
// a buffered channel drained by one worker; Close drains what is queued.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gatekeeper/pkg/requestcontext"
)

// Store persists security events.
type Store interface {
	Append(ctx context.Context, event SecurityEvent) error
	List(ctx context.Context, filter Filter) ([]SecurityEvent, error)
}

// Sink receives a copy of every persisted event.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event SecurityEvent) error
}

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 50 * time.Millisecond
	persistTimeout      = 5 * time.Second
)

type Publisher struct {
	store   Store
	sinks   []Sink
	logger  *slog.Logger
	metrics *Metrics

	maxRetries   int
	retryBackoff time.Duration

	bufferSize int
	queue      chan SecurityEvent
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with a queue of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithSinks(sinks ...Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithRetry sets the attempt count and initial backoff for store writes.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(p *Publisher) {
		p.maxRetries = maxRetries
		p.retryBackoff = backoff
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:        store,
		logger:       slog.Default(),
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxRetries < 1 {
		p.maxRetries = 1
	}

	if p.bufferSize > 0 {
		p.queue = make(chan SecurityEvent, p.bufferSize)
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Record appends an event of kind for actor. Timestamp and request ID come
// from ctx.
func (p *Publisher) Record(ctx context.Context, kind EventKind, actor, detail string) {
	event := SecurityEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Actor:     actor,
		Detail:    detail,
		Timestamp: requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}

	p.mu.RLock()
	if p.queue != nil && !p.closed {
		select {
		case p.queue <- event:
			p.mu.RUnlock()
			return
		default:
			p.mu.RUnlock()
			if p.metrics != nil {
				p.metrics.DroppedTotal.Inc()
			}
			p.logger.ErrorContext(ctx, "security event buffer full, event dropped",
				"kind", kind,
				"actor", actor,
				"log_type", "audit",
			)
			return
		}
	}
	p.mu.RUnlock()

	p.persist(context.WithoutCancel(ctx), event)
}

// List returns stored events matching filter, newest first.
func (p *Publisher) List(ctx context.Context, filter Filter) ([]SecurityEvent, error) {
	return p.store.List(ctx, filter)
}

// Close stops accepting async events and waits for the queue to drain.
// Records after Close are persisted synchronously.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed || p.queue == nil {
		p.closed = true
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.queue {
		p.persist(context.Background(), event)
	}
}

func (p *Publisher) persist(ctx context.Context, event SecurityEvent) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	var err error
	backoff := p.retryBackoff
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if err = p.store.Append(ctx, event); err == nil {
			break
		}
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			attempt = p.maxRetries
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	if err != nil {
		if p.metrics != nil {
			p.metrics.FailedTotal.WithLabelValues(string(event.Kind)).Inc()
		}
		p.logger.ErrorContext(ctx, "failed to persist security event",
			"event_id", event.ID,
			"kind", event.Kind,
			"actor", event.Actor,
			"error", err,
			"log_type", "audit",
		)
		return
	}
	if p.metrics != nil {
		p.metrics.RecordedTotal.WithLabelValues(string(event.Kind)).Inc()
	}

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			if p.metrics != nil {
				p.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			}
			p.logger.WarnContext(ctx, "security event sink publish failed",
				"sink", sink.Name(),
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}
