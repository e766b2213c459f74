package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/mittag-dabbas/checkout-service/internal/publisher"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "notifier").Logger()

// messageReader is the slice of kafka.Reader the consumer uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	sender Sender
	reader messageReader
}

func NewConsumer(sender Sender, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.Topic,
		GroupID:  "notifier",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{sender, reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing kafka reader")
	}
}

// processMessage handles one notification. Mail failures are logged
// and the offset moves on: a receipt is not worth blocking the
// partition over, and the invoice stays reachable from the record.
func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error().Err(err).Msg("error reading message")
		return
	}

	var notification domain.PaymentNotification
	if err := json.Unmarshal(m.Value, &notification); err != nil {
		logger.Error().Err(err).Str("key", string(m.Key)).Msg("error parsing notification")
		return
	}

	if notification.CustomerEmail == "" {
		logger.Warn().Str("session_id", notification.SessionID).Msg("notification has no customer email, skipping")
		return
	}

	if err := c.sender.SendReceipt(ctx, &notification); err != nil {
		logger.Error().Err(err).Str("session_id", notification.SessionID).Msg("failed to send receipt")
		return
	}

	logger.Info().
		Str("session_id", notification.SessionID).
		Str("customer_email", notification.CustomerEmail).
		Msg("receipt sent")
}
