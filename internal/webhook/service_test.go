package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/mocks"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/storage/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func freshRequest(key string) dto.WebhookRequest {
	return dto.WebhookRequest{
		IdempotencyKey: key,
		TimestampMs:    time.Now().UnixMilli(),
		Payload:        json.RawMessage(`{"order_id":"o-1"}`),
	}
}

type handlerSpy struct {
	calls int
	err   error
}

func (h *handlerSpy) handle(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func newTestService(store *mocks.WebhookLogMock, spy *handlerSpy) *Service {
	return NewService(store, NewValidator(5*time.Minute), spy.handle, zap.NewNop().Sugar())
}

func TestService_Process_RunsHandlerOnce(t *testing.T) {
	store := new(mocks.WebhookLogMock)
	spy := &handlerSpy{}
	s := newTestService(store, spy)

	store.On("FindByKey", mock.Anything, "key-1").Return(nil, nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(e *models.WebhookLogEntry) bool {
		return e.IdempotencyKey == "key-1" && e.TenantID == "acme" && e.Attempts == 1
	})).Return(nil)
	store.On("UpdateOutcome", mock.Anything, "key-1", true, mock.Anything, "").Return(nil)

	resp, err := s.Process(context.Background(), "acme", freshRequest("key-1"))
	require.NoError(t, err)

	assert.Equal(t, 1, spy.calls)
	assert.True(t, resp.Success)
	assert.False(t, resp.Replayed)
	store.AssertExpectations(t)
}

func TestService_Process_RepeatedKeyShortCircuits(t *testing.T) {
	store := new(mocks.WebhookLogMock)
	spy := &handlerSpy{}
	s := newTestService(store, spy)

	store.On("FindByKey", mock.Anything, "key-1").Return(&models.WebhookLogEntry{
		IdempotencyKey: "key-1",
		Success:        true,
		Response:       datatypes.JSON(`{"ok":true}`),
	}, nil)

	resp, err := s.Process(context.Background(), "acme", freshRequest("key-1"))
	require.NoError(t, err)

	assert.Zero(t, spy.calls, "handler must not run for a repeated key")
	assert.True(t, resp.Replayed)
	assert.True(t, resp.Success)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_Process_LosingInsertRaceReturnsWinner(t *testing.T) {
	store := new(mocks.WebhookLogMock)
	spy := &handlerSpy{}
	s := newTestService(store, spy)

	// first read sees nothing, the insert loses to a concurrent delivery
	store.On("FindByKey", mock.Anything, "key-1").Return(nil, nil).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return(postgres.ErrDuplicateKey)
	store.On("FindByKey", mock.Anything, "key-1").Return(&models.WebhookLogEntry{
		IdempotencyKey: "key-1",
		Success:        true,
	}, nil).Once()

	resp, err := s.Process(context.Background(), "acme", freshRequest("key-1"))
	require.NoError(t, err)

	assert.Zero(t, spy.calls, "loser of the insert race must not run the handler")
	assert.True(t, resp.Replayed)
	store.AssertExpectations(t)
}

func TestService_Process_StaleTimestampRejected(t *testing.T) {
	store := new(mocks.WebhookLogMock)
	spy := &handlerSpy{}
	s := newTestService(store, spy)

	store.On("FindByKey", mock.Anything, "key-1").Return(nil, nil)

	req := freshRequest("key-1")
	req.TimestampMs = time.Now().Add(-6 * time.Minute).UnixMilli()

	_, err := s.Process(context.Background(), "acme", req)
	assert.ErrorIs(t, err, common.ErrReplaySuspected)
	assert.Zero(t, spy.calls)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_Process_ProcessedKeyIgnoresStaleTimestamp(t *testing.T) {
	store := new(mocks.WebhookLogMock)
	spy := &handlerSpy{}
	s := newTestService(store, spy)

	store.On("FindByKey", mock.Anything, "key-old").Return(&models.WebhookLogEntry{
		IdempotencyKey: "key-old",
		Success:        true,
		Response:       datatypes.JSON(`{"ok":true}`),
	}, nil)

	// a legitimate redelivery can arrive well outside the freshness window
	req := freshRequest("key-old")
	req.TimestampMs = time.Now().Add(-10 * time.Minute).UnixMilli()

	resp, err := s.Process(context.Background(), "acme", req)
	require.NoError(t, err)

	assert.True(t, resp.Replayed)
	assert.True(t, resp.Success)
	assert.Zero(t, spy.calls, "a stored outcome must win over replay suspicion")
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestService_Process_DerivesFingerprintWhenKeyMissing(t *testing.T) {
	store := new(mocks.WebhookLogMock)
	spy := &handlerSpy{}
	s := newTestService(store, spy)

	store.On("FindByKey", mock.Anything, mock.MatchedBy(func(key string) bool {
		return len(key) == 64
	})).Return(nil, nil)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateOutcome", mock.Anything, mock.Anything, true, mock.Anything, "").Return(nil)

	req := freshRequest("")
	resp, err := s.Process(context.Background(), "acme", req)
	require.NoError(t, err)

	assert.Len(t, resp.IdempotencyKey, 64)
	assert.Equal(t, 1, spy.calls)
}

func TestService_Process_HandlerFailureRecorded(t *testing.T) {
	store := new(mocks.WebhookLogMock)
	spy := &handlerSpy{err: errors.New("downstream unavailable")}
	s := newTestService(store, spy)

	store.On("FindByKey", mock.Anything, "key-1").Return(nil, nil)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateOutcome", mock.Anything, "key-1", false, mock.Anything, "downstream unavailable").Return(nil)

	resp, err := s.Process(context.Background(), "acme", freshRequest("key-1"))
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "downstream unavailable", resp.Error)
	store.AssertExpectations(t)
}

func TestService_Replay(t *testing.T) {
	tests := []struct {
		name      string
		entry     *models.WebhookLogEntry
		wantCalls int
		wantErr   bool
	}{
		{
			name: "failed entry is re-run",
			entry: &models.WebhookLogEntry{
				IdempotencyKey: "key-1",
				TenantID:       "acme",
				Payload:        datatypes.JSON(`{"order_id":"o-1"}`),
				Success:        false,
			},
			wantCalls: 1,
		},
		{
			name: "successful entry is never re-run",
			entry: &models.WebhookLogEntry{
				IdempotencyKey: "key-1",
				Success:        true,
			},
			wantCalls: 0,
		},
		{
			name:    "unknown key",
			entry:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.WebhookLogMock)
			spy := &handlerSpy{}
			s := newTestService(store, spy)

			store.On("FindByKey", mock.Anything, "key-1").Return(tt.entry, nil)
			if tt.wantCalls > 0 {
				store.On("IncrementAttempts", mock.Anything, "key-1").Return(nil)
				store.On("UpdateOutcome", mock.Anything, "key-1", true, mock.Anything, "").Return(nil)
			}

			resp, err := s.Replay(context.Background(), "key-1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, spy.calls)
			if tt.wantCalls == 0 {
				assert.True(t, resp.Replayed)
			}
		})
	}
}
