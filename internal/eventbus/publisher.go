package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// StreamName is the JetStream stream that retains every domain event.
const StreamName = "PROMPTFORGE"

// Subjects published by the API.
const (
	SubjectOptimizationCompleted = "promptforge.optimization.completed"
	SubjectSummaryCompleted      = "promptforge.summary.completed"
	SubjectConversationAdded     = "promptforge.conversation.added"
)

// Event is the envelope written to the stream.
type Event struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher emits domain events. Publishing is best effort: callers log failures
// and never fail a request because of them.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NopPublisher drops every event. It is used when NATS is unavailable.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// JetStreamPublisher appends events to StreamName.
type JetStreamPublisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	now    func() time.Time
}

// NewJetStreamPublisher makes sure the stream exists and returns a publisher on it.
func NewJetStreamPublisher(js nats.JetStreamContext, logger *zap.Logger) (*JetStreamPublisher, error) {
	if js == nil {
		return nil, errors.New("jetstream context not initialized")
	}
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &JetStreamPublisher{js: js, logger: logger, now: time.Now}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("looking up stream %s: %w", StreamName, err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"promptforge.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("creating stream %s: %w", StreamName, err)
	}
	return nil
}

// Publish wraps data in an Event and publishes it with a dedup ID.
func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", subject, err)
	}
	evt := Event{
		ID:        uuid.NewString(),
		Subject:   subject,
		Data:      payload,
		Timestamp: p.now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set(nats.MsgIdHdr, evt.ID)
	msg.Data = body

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject), zap.String("event_id", evt.ID))
	return nil
}
