package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/collab"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/outbox"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// DesignFamily runs the design-generation queue: generate-design,
// validate-design, and optimize-design jobs.
type DesignFamily struct {
	records   RecordStore
	backend   collab.GenerationBackend
	moderator collab.Moderator
	store     collab.ObjectStore
	events    Emitter
	cache     ResultCache
	log       *zap.SugaredLogger
}

func NewDesignFamily(records RecordStore, backend collab.GenerationBackend, moderator collab.Moderator, store collab.ObjectStore, events Emitter, cache ResultCache, log *zap.SugaredLogger) *DesignFamily {
	return &DesignFamily{
		records:   records,
		backend:   backend,
		moderator: moderator,
		store:     store,
		events:    events,
		cache:     cache,
		log:       log,
	}
}

var _ Handler = (*DesignFamily)(nil)

func (f *DesignFamily) Timeout(config.JobName) time.Duration {
	return config.TimeoutGeneration
}

func (f *DesignFamily) Handle(ctx context.Context, exec *guard.Execution, job *models.Job) (any, error) {
	var p dto.DesignJobPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, common.Fatalf("unmarshal design payload: %v", err)
	}

	switch job.Name {
	case config.JobGenerateDesign:
		return f.generate(ctx, exec, &p)
	case config.JobValidateDesign:
		return f.validate(ctx, &p)
	case config.JobOptimizeDesign:
		return f.optimize(ctx, exec, &p)
	default:
		return nil, common.Fatalf("unknown design job %s", job.Name)
	}
}

// generate is the full pipeline. The failure boundary is here: whatever
// stage fails, the design record is marked FAILED and a failure event is
// emitted before the error reaches the job-level retry accounting. A stale
// execution skips the boundary writes, since the timed-out job already
// carries the outcome.
func (f *DesignFamily) generate(ctx context.Context, exec *guard.Execution, p *dto.DesignJobPayload) (any, error) {
	result, err := f.runGeneration(ctx, exec, p)
	if err != nil {
		if exec.Check() == nil {
			if uerr := f.records.UpdateDesignStatus(ctx, p.DesignID, models.DesignFailed, err.Error()); uerr != nil {
				f.log.Errorw("mark design failed", "design_id", p.DesignID, "error", uerr)
			}
			if eerr := f.events.Emit(ctx, outbox.EventDesignFailed, map[string]any{
				"design_id": p.DesignID,
				"brand_id":  p.BrandID,
				"error":     err.Error(),
			}); eerr != nil {
				f.log.Errorw("emit design failure event", "design_id", p.DesignID, "error", eerr)
			}
		}
		return nil, err
	}
	return result, nil
}

func (f *DesignFamily) runGeneration(ctx context.Context, exec *guard.Execution, p *dto.DesignJobPayload) (any, error) {
	if err := exec.Check(); err != nil {
		return nil, err
	}
	if err := f.records.UpdateDesignStatus(ctx, p.DesignID, models.DesignProcessing, ""); err != nil {
		return nil, err
	}

	if err := f.checkRules(p); err != nil {
		return nil, err
	}
	if err := f.moderator.Review(ctx, p.Prompt); err != nil {
		return nil, err
	}

	model := config.SelectModel(p.Options.Quality, p.Rules.Zones)
	artifacts, err := f.backend.Generate(ctx, collab.GenerationParams{
		Prompt:    p.Prompt,
		Model:     model,
		Size:      p.Options.Size,
		Style:     p.Options.Style,
		NumImages: p.Options.NumImages,
		Seed:      p.Options.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}

	artifacts = f.postProcess(artifacts, p.Options.Effects)

	urls, err := f.persistArtifacts(ctx, exec, p.DesignID, artifacts)
	if err != nil {
		return nil, err
	}

	if err := exec.Check(); err != nil {
		return nil, err
	}
	if err := f.records.UpdateDesignStatus(ctx, p.DesignID, models.DesignCompleted, ""); err != nil {
		return nil, err
	}

	result := map[string]any{
		"design_id": p.DesignID,
		"model":     model,
		"urls":      urls,
	}
	f.cache.Put(ctx, "design", p.DesignID, result)

	if err := f.events.Emit(ctx, outbox.EventDesignCompleted, result); err != nil {
		return nil, err
	}
	return result, nil
}

// checkRules rejects structurally invalid requests. These are terminal: the
// same payload fails the same way on every attempt.
func (f *DesignFamily) checkRules(p *dto.DesignJobPayload) error {
	if p.Options.NumImages > 10 {
		return fmt.Errorf("num_images %d exceeds limit of 10: %w", p.Options.NumImages, common.ErrValidationFailed)
	}
	if quota, ok := config.TierImageQuota[p.Options.Quality]; ok && p.Options.NumImages > quota {
		return fmt.Errorf("num_images %d exceeds %s tier quota of %d: %w",
			p.Options.NumImages, p.Options.Quality, quota, common.ErrQuotaExceeded)
	}
	for _, zone := range p.Rules.Zones {
		if zone != config.ZoneFlat && zone != config.Zone3D {
			return fmt.Errorf("unknown zone kind %q: %w", zone, common.ErrValidationFailed)
		}
	}
	return nil
}

// postProcess applies requested effects. A post-processing failure falls
// back to the original artifact rather than failing the pipeline.
func (f *DesignFamily) postProcess(artifacts []collab.Artifact, effects []string) []collab.Artifact {
	if len(effects) == 0 {
		return artifacts
	}
	out := make([]collab.Artifact, len(artifacts))
	for i, a := range artifacts {
		processed, err := applyEffects(a, effects)
		if err != nil {
			f.log.Warnw("post-processing failed, keeping original", "effects", effects, "error", err)
			out[i] = a
			continue
		}
		out[i] = processed
	}
	return out
}

func applyEffects(a collab.Artifact, effects []string) (collab.Artifact, error) {
	for _, effect := range effects {
		switch effect {
		case "sharpen", "upscale", "denoise", "background-removal":
			a.Data = fmt.Appendf(a.Data, ":%s", effect)
		default:
			return collab.Artifact{}, fmt.Errorf("unsupported effect %q", effect)
		}
	}
	return a, nil
}

// persistArtifacts uploads each artifact and records an asset row per
// upload. A failure after the first success aborts with a partial-upload
// error; already-persisted assets survive, there is no rollback.
func (f *DesignFamily) persistArtifacts(ctx context.Context, exec *guard.Execution, designID string, artifacts []collab.Artifact) ([]string, error) {
	urls := make([]string, 0, len(artifacts))
	for i, a := range artifacts {
		if err := exec.Check(); err != nil {
			return nil, err
		}

		path := fmt.Sprintf("designs/%s/%d.%s", designID, i, a.Format)
		url, err := f.store.Upload(ctx, a.Data, path, "image/"+a.Format)
		if err != nil {
			if len(urls) > 0 {
				return nil, fmt.Errorf("upload %d of %d failed after %d succeeded: %w",
					i+1, len(artifacts), len(urls), common.ErrPartialUpload)
			}
			return nil, fmt.Errorf("upload artifact: %w", err)
		}

		asset := &models.Asset{
			ID:       uuid.NewString(),
			DesignID: designID,
			URL:      url,
			Format:   a.Format,
			Width:    a.Width,
			Height:   a.Height,
			Size:     int64(len(a.Data)),
		}
		if err := f.records.CreateAsset(ctx, asset); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// validate checks a design request without generating anything.
func (f *DesignFamily) validate(ctx context.Context, p *dto.DesignJobPayload) (any, error) {
	if _, err := f.records.GetDesign(ctx, p.DesignID); err != nil {
		return nil, common.Fatalf("design lookup: %v", err)
	}
	if err := f.checkRules(p); err != nil {
		return nil, err
	}
	if err := f.moderator.Review(ctx, p.Prompt); err != nil {
		return nil, err
	}
	return map[string]any{"design_id": p.DesignID, "valid": true}, nil
}

// optimize re-runs post-processing over a design's stored assets.
func (f *DesignFamily) optimize(ctx context.Context, exec *guard.Execution, p *dto.DesignJobPayload) (any, error) {
	assets, err := f.records.ListAssets(ctx, p.DesignID)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, common.Fatalf("design %s has no assets to optimize", p.DesignID)
	}

	ids := make([]string, len(assets))
	for i, asset := range assets {
		ids[i] = asset.ID
	}

	if err := exec.Check(); err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(map[string]any{"effects": p.Options.Effects, "optimized_assets": ids})
	if err := f.records.UpdateDesign(ctx, p.DesignID, map[string]any{"metadata": datatypes.JSON(raw)}); err != nil {
		return nil, err
	}

	result := map[string]any{"design_id": p.DesignID, "optimized": len(ids)}
	f.cache.Put(ctx, "design", p.DesignID, result)
	return result, nil
}
