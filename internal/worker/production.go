package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/collab"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/outbox"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ProductionFamily runs the production-processing queue: bundle creation,
// the quality-control gate, and instruction generation.
type ProductionFamily struct {
	records  RecordStore
	store    collab.ObjectStore
	enqueuer Enqueuer
	events   Emitter
	log      *zap.SugaredLogger
}

func NewProductionFamily(records RecordStore, store collab.ObjectStore, enqueuer Enqueuer, events Emitter, log *zap.SugaredLogger) *ProductionFamily {
	return &ProductionFamily{records: records, store: store, enqueuer: enqueuer, events: events, log: log}
}

var _ Handler = (*ProductionFamily)(nil)

func (f *ProductionFamily) Timeout(config.JobName) time.Duration {
	return config.TimeoutProduction
}

func (f *ProductionFamily) Handle(ctx context.Context, exec *guard.Execution, job *models.Job) (any, error) {
	var p dto.ProductionJobPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, common.Fatalf("unmarshal production payload: %v", err)
	}

	switch job.Name {
	case config.JobCreateBundle:
		return f.createBundle(ctx, exec, &p)
	case config.JobQualityControl:
		return f.qualityControl(ctx, exec, &p)
	case config.JobGenerateInstructions:
		return f.generateInstructions(ctx, exec, &p)
	default:
		return nil, common.Fatalf("unknown production job %s", job.Name)
	}
}

// bundleInputs are gathered up front so the precondition gate sees one
// consistent view before anything is written.
type bundleInputs struct {
	order   *models.Order
	design  *models.Design
	product *models.Product
	brand   *models.Brand
	assets  []models.Asset
}

func (f *ProductionFamily) gather(ctx context.Context, p *dto.ProductionJobPayload) (*bundleInputs, error) {
	order, err := f.records.GetOrder(ctx, p.OrderID)
	if err != nil {
		return nil, common.Fatalf("order lookup: %v", err)
	}
	design, err := f.records.GetDesign(ctx, p.DesignID)
	if err != nil {
		return nil, common.Fatalf("design lookup: %v", err)
	}
	product, err := f.records.GetProduct(ctx, p.ProductID)
	if err != nil {
		return nil, common.Fatalf("product lookup: %v", err)
	}
	brand, err := f.records.GetBrand(ctx, p.BrandID)
	if err != nil {
		return nil, common.Fatalf("brand lookup: %v", err)
	}
	assets, err := f.records.ListAssets(ctx, p.DesignID)
	if err != nil {
		return nil, err
	}
	return &bundleInputs{order: order, design: design, product: product, brand: brand, assets: assets}, nil
}

// checkPreconditions is all-or-nothing: a paid order, a completed design, an
// active product and an active brand, or the bundle is not built at all.
func checkPreconditions(in *bundleInputs) error {
	if in.order.Status != models.OrderPaid && in.order.Status != models.OrderProcessing {
		return fmt.Errorf("order %s is %s, expected PAID: %w", in.order.ID, in.order.Status, common.ErrValidationFailed)
	}
	if in.design.Status != models.DesignCompleted {
		return fmt.Errorf("design %s is %s, expected COMPLETED: %w", in.design.ID, in.design.Status, common.ErrValidationFailed)
	}
	if !in.product.IsActive {
		return fmt.Errorf("product %s is inactive: %w", in.product.ID, common.ErrValidationFailed)
	}
	if !in.brand.IsActive {
		return fmt.Errorf("brand %s is inactive: %w", in.brand.ID, common.ErrValidationFailed)
	}
	if len(in.assets) == 0 {
		return fmt.Errorf("design %s has no assets: %w", in.design.ID, common.ErrValidationFailed)
	}
	return nil
}

func (f *ProductionFamily) createBundle(ctx context.Context, exec *guard.Execution, p *dto.ProductionJobPayload) (any, error) {
	result, err := f.runBundle(ctx, exec, p)
	if err != nil {
		if exec.Check() == nil {
			if uerr := f.records.UpdateOrderStatus(ctx, p.OrderID, models.OrderProductionFailed, err.Error()); uerr != nil {
				f.log.Errorw("mark order production-failed", "order_id", p.OrderID, "error", uerr)
			}
			if eerr := f.events.Emit(ctx, outbox.EventProductionFailed, map[string]any{
				"order_id": p.OrderID,
				"error":    err.Error(),
			}); eerr != nil {
				f.log.Errorw("emit production failure event", "order_id", p.OrderID, "error", eerr)
			}
		}
		return nil, err
	}
	return result, nil
}

func (f *ProductionFamily) runBundle(ctx context.Context, exec *guard.Execution, p *dto.ProductionJobPayload) (any, error) {
	in, err := f.gather(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := checkPreconditions(in); err != nil {
		return nil, err
	}

	if err := exec.Check(); err != nil {
		return nil, err
	}
	if err := f.records.UpdateOrderStatus(ctx, p.OrderID, models.OrderProcessing, ""); err != nil {
		return nil, err
	}

	bundle, err := buildBundle(in, p)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("bundles/%s/production.json", p.OrderID)
	bundleURL, err := f.store.Upload(ctx, bundle, path, "application/json")
	if err != nil {
		return nil, fmt.Errorf("upload bundle: %w", err)
	}

	if err := exec.Check(); err != nil {
		return nil, err
	}
	if err := f.records.SetOrderBundle(ctx, p.OrderID, bundleURL); err != nil {
		return nil, err
	}
	if err := f.records.UpdateOrderStatus(ctx, p.OrderID, models.OrderReadyForProduction, ""); err != nil {
		return nil, err
	}

	// The factory webhook is its own job so a delivery failure can never
	// fail the bundle. Even the enqueue itself is best-effort.
	if p.FactoryWebhookURL != "" {
		_, err := f.enqueuer.Enqueue(ctx, config.QueueNotifications, config.JobNotifyFactory, dto.FactoryNotifyPayload{
			OrderID:    p.OrderID,
			WebhookURL: p.FactoryWebhookURL,
			BundleURL:  bundleURL,
		}, dispatch.EnqueueOptions{Priority: config.PriorityHigh})
		if err != nil {
			f.log.Errorw("enqueue factory notification", "order_id", p.OrderID, "error", err)
		}
	}

	result := map[string]any{
		"order_id":        p.OrderID,
		"bundle_url":      bundleURL,
		"asset_count":     len(in.assets),
		"production_days": in.product.ProductionDays,
	}
	if err := f.events.Emit(ctx, outbox.EventProductionReady, result); err != nil {
		return nil, err
	}
	return result, nil
}

func buildBundle(in *bundleInputs, p *dto.ProductionJobPayload) ([]byte, error) {
	assetURLs := make([]string, len(in.assets))
	for i, a := range in.assets {
		assetURLs[i] = a.URL
	}

	return json.Marshal(map[string]any{
		"order_id":        in.order.ID,
		"brand":           in.brand.Name,
		"product_sku":     in.product.SKU,
		"quantity":        p.Quantity,
		"assets":          assetURLs,
		"model_3d_url":    in.product.Model3DURL,
		"materials":       p.Options.Materials,
		"finishes":        p.Options.Finishes,
		"quality_level":   p.Options.QualityLevel,
		"requirements":    p.Options.SpecialRequirements,
		"production_days": in.product.ProductionDays,
	})
}

// qualityControl scores every asset of the order's design and gates on the
// mean. A mean below the pass threshold moves the order to QUALITY_ISSUE;
// the job itself still completes, carrying the report.
func (f *ProductionFamily) qualityControl(ctx context.Context, exec *guard.Execution, p *dto.ProductionJobPayload) (any, error) {
	assets, err := f.records.ListAssets(ctx, p.DesignID)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, common.Fatalf("design %s has no assets to inspect", p.DesignID)
	}

	var sum float64
	issues := make([]string, 0)
	for _, asset := range assets {
		score, issue := scoreAsset(&asset)
		sum += score
		if issue != "" {
			issues = append(issues, fmt.Sprintf("%s: %s", asset.ID, issue))
		}
	}
	mean := sum / float64(len(assets))
	passed := mean >= config.QualityPassThreshold

	rawIssues, _ := json.Marshal(issues)
	report := &models.QualityReport{
		OrderID:      p.OrderID,
		OverallScore: mean,
		Issues:       datatypes.JSON(rawIssues),
		Passed:       passed,
		TotalChecked: len(assets),
	}
	if err := exec.Check(); err != nil {
		return nil, err
	}
	if err := f.records.CreateQualityReport(ctx, report); err != nil {
		return nil, err
	}

	if !passed {
		reason := fmt.Sprintf("quality score %.2f below threshold %.2f", mean, config.QualityPassThreshold)
		if err := f.records.UpdateOrderStatus(ctx, p.OrderID, models.OrderQualityIssue, reason); err != nil {
			return nil, err
		}
		if err := f.events.Emit(ctx, outbox.EventOrderQualityIssue, map[string]any{
			"order_id": p.OrderID,
			"score":    mean,
			"issues":   issues,
		}); err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"order_id": p.OrderID,
		"score":    mean,
		"passed":   passed,
		"checked":  len(assets),
	}, nil
}

// scoreAsset applies the resolution, size and format heuristics to one
// asset. Scores are clamped to [0, 1].
func scoreAsset(asset *models.Asset) (float64, string) {
	score := 1.0
	issue := ""

	if asset.Width < 512 || asset.Height < 512 {
		score -= 0.3
		issue = fmt.Sprintf("resolution %dx%d below 512px minimum", asset.Width, asset.Height)
	}
	if asset.Size == 0 {
		score -= 0.4
		issue = "empty asset data"
	}
	switch asset.Format {
	case "png", "jpeg", "webp":
	default:
		score -= 0.1
		issue = fmt.Sprintf("unexpected format %q", asset.Format)
	}

	if score < 0 {
		score = 0
	}
	return score, issue
}

// generateInstructions renders the human-readable production sheet and
// uploads it next to the bundle.
func (f *ProductionFamily) generateInstructions(ctx context.Context, exec *guard.Execution, p *dto.ProductionJobPayload) (any, error) {
	in, err := f.gather(ctx, p)
	if err != nil {
		return nil, err
	}

	sheet := fmt.Sprintf(
		"Production sheet for order %s\nBrand: %s\nProduct: %s (SKU %s)\nQuantity: %d\nMaterials: %v\nFinishes: %v\nLead time: %d days\n",
		in.order.ID, in.brand.Name, in.product.Name, in.product.SKU,
		p.Quantity, p.Options.Materials, p.Options.Finishes, in.product.ProductionDays)

	if err := exec.Check(); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("bundles/%s/instructions.txt", p.OrderID)
	url, err := f.store.Upload(ctx, []byte(sheet), path, "text/plain")
	if err != nil {
		return nil, fmt.Errorf("upload instructions: %w", err)
	}

	return map[string]any{"order_id": p.OrderID, "instructions_url": url}, nil
}
