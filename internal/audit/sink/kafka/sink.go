// Package kafka mirrors persisted security events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"gatekeeper/internal/audit"
	"gatekeeper/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the broker is considered unavailable.
var ErrCircuitOpen = errors.New("kafka sink circuit open")

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink publishes each event as JSON keyed by actor, so one actor's events
// stay ordered within a partition.
type Sink struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type Option func(*Sink)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Sink) {
		s.breaker = b
	}
}

func New(producer Producer, topic string, opts ...Option) *Sink {
	s := &Sink{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("kafka-sink", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second)),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Name() string {
	return "kafka"
}

func (s *Sink) Publish(ctx context.Context, event audit.SecurityEvent) error {
	if !s.breaker.ShouldAttempt(time.Now()) {
		return ErrCircuitOpen
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal security event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Actor),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "kafka sink circuit opened", "topic", s.topic, "error", err)
		}
		return fmt.Errorf("produce security event: %w", err)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "kafka sink circuit closed", "topic", s.topic)
	}
	return nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string, partitions int32, replicationFactor int16) error {
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
