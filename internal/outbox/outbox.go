// Package outbox persists domain events next to job results and relays them
// to the notification sink at least once. Workers only ever append; delivery
// happens later through the publish-outbox job.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fabriqd/fabriq/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Event names emitted by the pipeline.
const (
	EventDesignCompleted   = "design.completed"
	EventDesignFailed      = "design.failed"
	EventRenderCompleted   = "render.completed"
	EventRenderFailed      = "render.failed"
	EventProductionReady   = "production.ready"
	EventProductionFailed  = "production.failed"
	EventOrderQualityIssue = "order.quality_issue"
)

// Store defines the contract for outbox persistence.
type Store interface {
	Append(ctx context.Context, event *models.OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, errMsg string) error
}

// Sink delivers a published event to the outside world.
type Sink interface {
	Publish(ctx context.Context, eventName string, payload json.RawMessage) error
}

type Publisher struct {
	store Store
	log   *zap.SugaredLogger
}

func NewPublisher(store Store, log *zap.SugaredLogger) *Publisher {
	return &Publisher{store: store, log: log}
}

// Emit appends one event row. Callers treat a failure here like any other
// persistence failure of the owning stage.
func (p *Publisher) Emit(ctx context.Context, eventName string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	event := &models.OutboxEvent{
		EventName: eventName,
		Payload:   datatypes.JSON(raw),
		Status:    models.OutboxPending,
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}

	p.log.Debugw("outbox event appended", "event", eventName, "id", event.ID)
	return nil
}

type Relay struct {
	store     Store
	sink      Sink
	batchSize int
	log       *zap.SugaredLogger
}

func NewRelay(store Store, sink Sink, batchSize int, log *zap.SugaredLogger) *Relay {
	if batchSize < 1 {
		batchSize = 50
	}
	return &Relay{store: store, sink: sink, batchSize: batchSize, log: log}
}

// Drain publishes one batch of pending events. Per-event failures are
// recorded on the row and do not stop the batch; delivery is at-least-once
// because a crash between Publish and MarkPublished re-delivers.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	events, err := r.store.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range events {
		if err := r.sink.Publish(ctx, event.EventName, json.RawMessage(event.Payload)); err != nil {
			r.log.Errorw("outbox publish failed", "event", event.EventName, "id", event.ID, "error", err)
			if merr := r.store.MarkFailed(ctx, event.ID, err.Error()); merr != nil {
				return published, merr
			}
			continue
		}
		if err := r.store.MarkPublished(ctx, event.ID); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

// LogSink is the default sink for local runs: events go to the log instead
// of a broker.
type LogSink struct {
	log *zap.SugaredLogger
}

func NewLogSink(log *zap.SugaredLogger) *LogSink {
	return &LogSink{log: log}
}

var _ Sink = (*LogSink)(nil)

func (s *LogSink) Publish(_ context.Context, eventName string, payload json.RawMessage) error {
	s.log.Infow("event published", "event", eventName, "payload", string(payload))
	return nil
}
