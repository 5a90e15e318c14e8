package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fabriqd/fabriq/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert loses the race on the
// idempotency-key unique index. The caller re-reads the winner's row.
var ErrDuplicateKey = errors.New("webhook log: duplicate idempotency key")

type WebhookLogRepository struct {
	db *gorm.DB
}

func NewWebhookLogRepository(db *gorm.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// FindByKey returns the stored entry for a key, or nil if none exists.
func (r *WebhookLogRepository) FindByKey(ctx context.Context, key string) (*models.WebhookLogEntry, error) {
	var entry models.WebhookLogEntry
	err := r.db.WithContext(ctx).First(&entry, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find webhook log: %w", err)
	}
	return &entry, nil
}

// Insert persists a new entry. The unique index on idempotency_key is the
// at-most-once guarantee: a concurrent duplicate surfaces as ErrDuplicateKey
// instead of a second row.
func (r *WebhookLogRepository) Insert(ctx context.Context, entry *models.WebhookLogEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter for an administrative replay.
// The original outcome columns are left untouched.
func (r *WebhookLogRepository) IncrementAttempts(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Model(&models.WebhookLogEntry{}).
		Where("idempotency_key = ?", key).
		Update("attempts", gorm.Expr("attempts + ?", 1)).Error; err != nil {
		return fmt.Errorf("increment webhook attempts: %w", err)
	}
	return nil
}

// UpdateOutcome rewrites the stored outcome of a previously failed entry
// after an administrative replay succeeds.
func (r *WebhookLogRepository) UpdateOutcome(ctx context.Context, key string, success bool, response []byte, errMsg string) error {
	if err := r.db.WithContext(ctx).Model(&models.WebhookLogEntry{}).
		Where("idempotency_key = ? AND success = ?", key, false).
		Updates(map[string]any{
			"success":  success,
			"response": response,
			"error":    errMsg,
		}).Error; err != nil {
		return fmt.Errorf("update webhook outcome: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Postgres 23505 / sqlite "UNIQUE constraint failed" both mention the
	// constraint in their message; gorm does not always translate them.
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "23505")
}
