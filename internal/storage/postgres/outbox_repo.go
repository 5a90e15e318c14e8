package postgres

import (
	"context"
	"fmt"

	"github.com/fabriqd/fabriq/internal/models"
	"gorm.io/gorm"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Append(ctx context.Context, event *models.OutboxEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

// ListPending returns the oldest unpublished events, bounded by limit.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.OutboxPending).
		Order("created_at asc").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Update("status", models.OutboxPublished).Error; err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint, errMsg string) error {
	if err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      models.OutboxFailed,
			"last_error":  errMsg,
			"retry_count": gorm.Expr("retry_count + ?", 1),
		}).Error; err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}
