package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabriqd/fabriq/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordRepository is the pipeline's view of the record store: the subject
// entities jobs operate on. All writes are scoped to one subject id and are
// upsert-style so a re-run of a stage is safe.
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) GetDesign(ctx context.Context, id string) (*models.Design, error) {
	var design models.Design
	if err := r.db.WithContext(ctx).First(&design, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("design %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("get design: %w", err)
	}
	return &design, nil
}

func (r *RecordRepository) UpdateDesignStatus(ctx context.Context, id string, status models.DesignStatus, errMsg string) error {
	updates := map[string]any{"status": status}
	if errMsg != "" {
		updates["metadata"] = datatypes.JSON(fmt.Appendf(nil, `{"error":%q}`, errMsg))
	}
	if err := r.db.WithContext(ctx).Model(&models.Design{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("update design status: %w", err)
	}
	return nil
}

func (r *RecordRepository) UpdateDesign(ctx context.Context, id string, updates map[string]any) error {
	if err := r.db.WithContext(ctx).Model(&models.Design{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("update design: %w", err)
	}
	return nil
}

func (r *RecordRepository) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

func (r *RecordRepository) ListAssets(ctx context.Context, designID string) ([]models.Asset, error) {
	var assets []models.Asset
	if err := r.db.WithContext(ctx).
		Where("design_id = ?", designID).
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

func (r *RecordRepository) GetRender(ctx context.Context, id string) (*models.Render, error) {
	var render models.Render
	if err := r.db.WithContext(ctx).First(&render, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("render %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("get render: %w", err)
	}
	return &render, nil
}

func (r *RecordRepository) SaveRenderResult(ctx context.Context, render *models.Render) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "url", "thumbnail_url", "error", "metadata", "updated_at",
		}),
	}).Create(render).Error; err != nil {
		return fmt.Errorf("save render result: %w", err)
	}
	return nil
}

// UpsertRenderProgress writes the latest stage/percentage for a render.
// Progress only moves forward from the worker side, but readers must
// tolerate stale reads.
func (r *RecordRepository) UpsertRenderProgress(ctx context.Context, progress *models.RenderProgress) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "render_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stage", "percentage", "message", "updated_at",
		}),
	}).Create(progress).Error; err != nil {
		return fmt.Errorf("upsert render progress: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *RecordRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, errMsg string) error {
	updates := map[string]any{"status": status}
	if errMsg != "" {
		updates["metadata"] = datatypes.JSON(fmt.Appendf(nil, `{"error":%q}`, errMsg))
	}
	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *RecordRepository) SetOrderBundle(ctx context.Context, id string, bundleURL string) error {
	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("bundle_url", bundleURL).Error; err != nil {
		return fmt.Errorf("set order bundle: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (r *RecordRepository) GetBrand(ctx context.Context, id string) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).First(&brand, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("brand %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return &brand, nil
}

func (r *RecordRepository) CreateQualityReport(ctx context.Context, report *models.QualityReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("create quality report: %w", err)
	}
	return nil
}
