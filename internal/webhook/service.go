package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/storage/postgres"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service struct {
	store     LogStore
	validator *Validator
	handler   Handler
	log       *zap.SugaredLogger
}

func NewService(store LogStore, validator *Validator, handler Handler, log *zap.SugaredLogger) *Service {
	return &Service{store: store, validator: validator, handler: handler, log: log}
}

// Process runs one inbound notification with at-most-once semantics. A
// repeated key short-circuits to the stored outcome without touching the
// handler; concurrent deliveries of the same key race on the claim-row
// insert, the loser re-reads the winner's row.
func (s *Service) Process(ctx context.Context, tenantID string, req dto.WebhookRequest) (*dto.WebhookResponse, error) {
	key := req.IdempotencyKey
	if key == "" {
		var err error
		if key, err = Fingerprint(tenantID, req.Payload); err != nil {
			return nil, common.Errf(http.StatusBadRequest, "payload must be valid JSON")
		}
	}

	// A known key always wins over the freshness window: a legitimate
	// redelivery may arrive arbitrarily late and still deserves its stored
	// outcome. Only unseen keys are subject to replay suspicion.
	if existing, err := s.store.FindByKey(ctx, key); err != nil {
		return nil, err
	} else if existing != nil {
		s.log.Infow("webhook replayed from log", "tenant", tenantID, "key", key)
		return storedResponse(existing), nil
	}

	if err := s.validator.CheckFreshness(req.TimestampMs); err != nil {
		s.log.Warnw("stale webhook rejected", "tenant", tenantID, "key", key, "error", err)
		return nil, err
	}

	// Claim the key before doing any work. The unique index makes this the
	// single point of serialization for concurrent deliveries.
	entry := &models.WebhookLogEntry{
		IdempotencyKey: key,
		TenantID:       tenantID,
		EventTimestamp: time.UnixMilli(req.TimestampMs),
		Payload:        datatypes.JSON(req.Payload),
		Attempts:       1,
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		if errors.Is(err, postgres.ErrDuplicateKey) {
			winner, ferr := s.store.FindByKey(ctx, key)
			if ferr != nil || winner == nil {
				return nil, err
			}
			return storedResponse(winner), nil
		}
		return nil, err
	}

	return s.run(ctx, key, tenantID, req.Payload)
}

// Replay re-runs a previously failed notification by key. Successful
// entries are never re-executed; their stored outcome is returned as-is.
func (s *Service) Replay(ctx context.Context, key string) (*dto.WebhookResponse, error) {
	entry, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, common.Errf(http.StatusNotFound, "no webhook log entry for key %s", key)
	}
	if entry.Success {
		return storedResponse(entry), nil
	}

	if err := s.store.IncrementAttempts(ctx, key); err != nil {
		return nil, err
	}
	return s.run(ctx, key, entry.TenantID, json.RawMessage(entry.Payload))
}

func (s *Service) run(ctx context.Context, key, tenantID string, payload json.RawMessage) (*dto.WebhookResponse, error) {
	response, herr := s.handler(ctx, tenantID, payload)
	if herr != nil {
		s.log.Errorw("webhook handler failed", "tenant", tenantID, "key", key, "error", herr)
		if err := s.store.UpdateOutcome(ctx, key, false, nil, herr.Error()); err != nil {
			return nil, err
		}
		return &dto.WebhookResponse{IdempotencyKey: key, Error: herr.Error()}, nil
	}

	if err := s.store.UpdateOutcome(ctx, key, true, response, ""); err != nil {
		return nil, err
	}
	return &dto.WebhookResponse{IdempotencyKey: key, Success: true, Response: response}, nil
}

func storedResponse(entry *models.WebhookLogEntry) *dto.WebhookResponse {
	return &dto.WebhookResponse{
		IdempotencyKey: entry.IdempotencyKey,
		Replayed:       true,
		Success:        entry.Success,
		Response:       json.RawMessage(entry.Response),
		Error:          entry.Error,
	}
}
