package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/loot_kingdom/internal/metrics"
	r "github.com/fjod/loot_kingdom/internal/repository"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic     = "lootkingdom-events"
	defaultBatchSize = 100
)

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	batchSize int
	repo      r.OutboxStore
	writer    MessageWriter
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

func NewOutboxPoller(repo r.OutboxStore, writer MessageWriter, m *metrics.Metrics, log *slog.Logger, tick time.Duration) *OutboxPoller {
	if tick <= 0 {
		tick = time.Second
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: tick,
		batchSize: defaultBatchSize,
		repo:      repo,
		writer:    writer,
		metrics:   m,
		log:       log.With("component", "outbox"),
	}
}

// Run drains the outbox every tick until ctx is cancelled. Delivery is at
// least once: an event whose mark fails is published again next tick.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.metrics.OutboxFailed.WithLabelValues(event.EventType).Inc()
			p.log.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "event_type", event.EventType, "error", err)
			// keep ordering per aggregate: stop and retry the rest next tick
			return published
		}
		p.metrics.OutboxPublished.WithLabelValues(event.EventType).Inc()

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.ErrorContext(ctx, "failed to mark outbox event as processed", "event_id", event.ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order or coupon id, keeps per-aggregate ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}

	return p.writer.WriteMessages(ctx, msg)
}
