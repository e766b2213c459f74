package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	r "github.com/mittag-dabbas/checkout-service/internal/repository"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	OutboxEvents []*r.OutboxEvent
	FetchErr     error
	MarkErr      error
	ProcessedIDs []int64

	StaleFailed   int64
	StaleErr      error
	StaleRequests int
}

func (m *MockRepository) Close() error                     { return nil }
func (m *MockRepository) RunMigrations(*r.Credentials) error { return nil }

func (m *MockRepository) GetCheckoutSessionByIdempotencyKey(context.Context, string) (*r.CheckoutSession, error) {
	return nil, r.ErrIdempotencyKeyNotFound
}

func (m *MockRepository) CreateCheckoutSession(context.Context, *r.CheckoutSession) error {
	return nil
}

func (m *MockRepository) SetProviderSession(context.Context, string, string, string, domain.CheckoutStatus) error {
	return nil
}

func (m *MockRepository) UpdateCheckoutSessionStatus(context.Context, string, domain.CheckoutStatus) error {
	return nil
}

func (m *MockRepository) FailStaleSessions(context.Context, time.Duration) (int64, error) {
	m.StaleRequests++
	return m.StaleFailed, m.StaleErr
}

func (m *MockRepository) CreatePaymentRecord(context.Context, *domain.PaymentRecord, []byte) error {
	return nil
}

func (m *MockRepository) PaymentRecordExists(context.Context, string) (bool, error) {
	return false, nil
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.OutboxEvents, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int64) error {
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

type MockWriter struct {
	Messages []kafka.Message
	WriteErr error
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	payload := json.RawMessage(`{"session_id":"cs_123","customer_email":"user@example.com"}`)
	repo := &MockRepository{
		OutboxEvents: []*r.OutboxEvent{
			{ID: 1, AggregateID: "cs_123", EventType: r.EventTypePaymentCompleted, Payload: payload, CreatedAt: time.Now()},
			{ID: 2, AggregateID: "cs_456", EventType: r.EventTypePaymentCompleted, Payload: payload, CreatedAt: time.Now()},
		},
	}
	writer := &MockWriter{}
	poller := &OutboxPoller{time.Second, time.Minute, repo, writer}

	poller.processUnpublishedEvents(context.Background())

	require.Len(t, writer.Messages, 2)
	assert.Equal(t, "cs_123", string(writer.Messages[0].Key))
	assert.Equal(t, []byte(payload), writer.Messages[0].Value)
	require.Len(t, writer.Messages[0].Headers, 1)
	assert.Equal(t, "event_type", writer.Messages[0].Headers[0].Key)
	assert.Equal(t, r.EventTypePaymentCompleted, string(writer.Messages[0].Headers[0].Value))

	assert.Equal(t, []int64{1, 2}, repo.ProcessedIDs)
}

func TestProcessUnpublishedEvents_PublishFailureLeavesEventPending(t *testing.T) {
	repo := &MockRepository{
		OutboxEvents: []*r.OutboxEvent{
			{ID: 1, AggregateID: "cs_123", EventType: r.EventTypePaymentCompleted, Payload: []byte(`{}`)},
		},
	}
	writer := &MockWriter{WriteErr: errors.New("broker unavailable")}
	poller := &OutboxPoller{time.Second, time.Minute, repo, writer}

	poller.processUnpublishedEvents(context.Background())

	// Not marked processed, so the next tick retries it.
	assert.Empty(t, repo.ProcessedIDs)
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	repo := &MockRepository{FetchErr: errors.New("database connection error")}
	writer := &MockWriter{}
	poller := &OutboxPoller{time.Second, time.Minute, repo, writer}

	// Should not panic, just log and return
	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.Messages)
}

func TestFailStaleSessions(t *testing.T) {
	repo := &MockRepository{StaleFailed: 3}
	poller := &OutboxPoller{time.Second, time.Minute, repo, &MockWriter{}}

	poller.failStaleSessions(context.Background())

	assert.Equal(t, 1, repo.StaleRequests)
}

func TestFailStaleSessions_Error(t *testing.T) {
	repo := &MockRepository{StaleErr: errors.New("database deadlock")}
	poller := &OutboxPoller{time.Second, time.Minute, repo, &MockWriter{}}

	// Should not panic, just log error and return
	poller.failStaleSessions(context.Background())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &MockRepository{}
	poller := &OutboxPoller{10 * time.Millisecond, time.Minute, repo, &MockWriter{}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancel")
	}
}
