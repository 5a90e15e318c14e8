package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/mocks"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// relayStore is a minimal in-memory outbox store for driving the relay
// through the publish-outbox job.
type relayStore struct {
	pending []models.OutboxEvent
}

func (s *relayStore) Append(_ context.Context, event *models.OutboxEvent) error {
	event.ID = uint(len(s.pending) + 1)
	s.pending = append(s.pending, *event)
	return nil
}

func (s *relayStore) ListPending(_ context.Context, limit int) ([]models.OutboxEvent, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *relayStore) MarkPublished(_ context.Context, id uint) error {
	for i := range s.pending {
		if s.pending[i].ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (s *relayStore) MarkFailed(_ context.Context, _ uint, _ string) error { return nil }

func newNotifyFamily(store *relayStore) (*NotifyFamily, *mocks.FactoryClientMock) {
	factory := new(mocks.FactoryClientMock)
	relay := outbox.NewRelay(store, outbox.NewLogSink(zap.NewNop().Sugar()), 50, zap.NewNop().Sugar())
	return NewNotifyFamily(factory, relay, zap.NewNop().Sugar()), factory
}

func notifyJob(t *testing.T, name config.JobName, payload any) *models.Job {
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.Job{ID: "job-1", Queue: config.QueueNotifications, Name: name, Payload: datatypes.JSON(raw)}
}

func TestNotifyFamily_NotifyFactory(t *testing.T) {
	f, factory := newNotifyFamily(&relayStore{})

	factory.On("Notify", mock.Anything, "https://factory.example/hook", mock.MatchedBy(func(body map[string]any) bool {
		return body["order_id"] == "o-1" &&
			body["bundle_url"] == "https://cdn/bundle.json" &&
			body["event"] == "bundle.ready"
	})).Return(nil)

	payload := dto.FactoryNotifyPayload{
		OrderID:    "o-1",
		WebhookURL: "https://factory.example/hook",
		BundleURL:  "https://cdn/bundle.json",
	}
	result, err := f.Handle(context.Background(), &guard.Execution{}, notifyJob(t, config.JobNotifyFactory, payload))
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, true, m["delivered"])
	factory.AssertExpectations(t)
}

func TestNotifyFamily_NotifyFactory_DeliveryFailureIsRetryable(t *testing.T) {
	f, factory := newNotifyFamily(&relayStore{})

	factory.On("Notify", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("503 from factory"))

	payload := dto.FactoryNotifyPayload{OrderID: "o-1", WebhookURL: "https://factory.example/hook"}
	_, err := f.Handle(context.Background(), &guard.Execution{}, notifyJob(t, config.JobNotifyFactory, payload))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "factory notify")
}

func TestNotifyFamily_PublishOutbox(t *testing.T) {
	store := &relayStore{}
	f, _ := newNotifyFamily(store)

	ctx := context.Background()
	for range 3 {
		require.NoError(t, store.Append(ctx, &models.OutboxEvent{
			EventName: outbox.EventDesignCompleted,
			Payload:   datatypes.JSON(`{}`),
			Status:    models.OutboxPending,
		}))
	}

	result, err := f.Handle(ctx, &guard.Execution{}, notifyJob(t, config.JobPublishOutbox, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, result.(map[string]any)["published"])
	assert.Empty(t, store.pending)
}

func TestNotifyFamily_UnknownJobIsFatal(t *testing.T) {
	f, _ := newNotifyFamily(&relayStore{})

	job := notifyJob(t, "send-pigeon", nil)
	_, err := f.Handle(context.Background(), &guard.Execution{}, job)
	require.Error(t, err)
}
