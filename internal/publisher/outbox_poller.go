// Package publisher drains the notification outbox into Kafka and
// sweeps checkout sessions abandoned at the provider.
package publisher

import (
	"context"
	"os"
	"time"

	r "github.com/mittag-dabbas/checkout-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "publisher").Logger()

const (
	// Topic carries payment.completed notifications for the notifier.
	Topic = "payment-notifications"

	defaultBatchSize = 100

	// staleAfter is how long a session may sit in SESSION_CREATED
	// before the sweep marks it FAILED. Hosted provider sessions
	// expire well within this.
	staleAfter = 24 * time.Hour
)

// messageWriter is the slice of kafka.Writer the poller uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	repo         r.RepoInterface
	writer       messageWriter
}

func NewOutboxPoller(repo r.RepoInterface, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{time.Second, time.Minute, repo, w}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.failStaleSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, defaultBatchSize)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			logger.Error().Err(err).Int64("event_id", event.ID).Msg("failed to publish event")
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			logger.Error().Err(err).Int64("event_id", event.ID).Msg("failed to mark event as processed")
			continue
		}
	}
}

// failStaleSessions moves sessions abandoned in SESSION_CREATED to
// FAILED so they stop looking in-flight.
func (p *OutboxPoller) failStaleSessions(ctx context.Context) {
	n, err := p.repo.FailStaleSessions(ctx, staleAfter)
	if err != nil {
		logger.Error().Err(err).Msg("failed to sweep stale sessions")
		return
	}
	if n > 0 {
		logger.Info().Int64("count", n).Msg("marked stale checkout sessions failed")
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // session id for ordering
		Value: event.Payload,             // Already JSON from database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
