package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/collab"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/outbox"
	"go.uber.org/zap"
)

// RenderFamily runs the render-processing queue: single renders by kind and
// batch fan-out.
type RenderFamily struct {
	records RecordStore
	store   collab.ObjectStore
	events  Emitter
	cache   ResultCache
	log     *zap.SugaredLogger
}

func NewRenderFamily(records RecordStore, store collab.ObjectStore, events Emitter, cache ResultCache, log *zap.SugaredLogger) *RenderFamily {
	return &RenderFamily{records: records, store: store, events: events, cache: cache, log: log}
}

var _ Handler = (*RenderFamily)(nil)

func (f *RenderFamily) Timeout(name config.JobName) time.Duration {
	switch name {
	case config.JobRender3D, config.JobBatchRender:
		return config.TimeoutRender3D
	default:
		return config.TimeoutRender2D
	}
}

func (f *RenderFamily) Handle(ctx context.Context, exec *guard.Execution, job *models.Job) (any, error) {
	if job.Name == config.JobBatchRender {
		var batch dto.BatchRenderPayload
		if err := json.Unmarshal(job.Payload, &batch); err != nil {
			return nil, common.Fatalf("unmarshal batch payload: %v", err)
		}
		return f.renderBatch(ctx, exec, &batch)
	}

	var p dto.RenderJobPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, common.Fatalf("unmarshal render payload: %v", err)
	}
	return f.render(ctx, exec, &p)
}

// render runs one render to completion, upserting progress at each stage so
// polling clients observe partial state.
func (f *RenderFamily) render(ctx context.Context, exec *guard.Execution, p *dto.RenderJobPayload) (any, error) {
	result, err := f.runRender(ctx, exec, p)
	if err != nil {
		if exec.Check() == nil {
			f.saveFailure(ctx, p, err)
		}
		return nil, err
	}
	return result, nil
}

func (f *RenderFamily) runRender(ctx context.Context, exec *guard.Execution, p *dto.RenderJobPayload) (any, error) {
	if err := f.progress(ctx, exec, p.RenderID, "initializing", 10, ""); err != nil {
		return nil, err
	}

	render, err := f.records.GetRender(ctx, p.RenderID)
	if err != nil {
		return nil, common.Fatalf("render lookup: %v", err)
	}

	if err := f.progress(ctx, exec, p.RenderID, "rendering", 30, string(p.Kind)); err != nil {
		return nil, err
	}

	data, err := f.compose(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := f.progress(ctx, exec, p.RenderID, "rendering", 50, ""); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("renders/%s/%s.png", p.RenderID, p.Kind)
	url, err := f.store.Upload(ctx, data, path, "image/png")
	if err != nil {
		return nil, fmt.Errorf("upload render: %w", err)
	}

	if err := f.progress(ctx, exec, p.RenderID, "finalizing", 90, ""); err != nil {
		return nil, err
	}

	render.Status = models.RenderCompleted
	render.Kind = p.Kind
	render.URL = url
	render.ThumbnailURL = url + "?w=256"
	render.Error = ""
	if err := exec.Check(); err != nil {
		return nil, err
	}
	if err := f.records.SaveRenderResult(ctx, render); err != nil {
		return nil, err
	}

	if err := f.progress(ctx, exec, p.RenderID, "completed", 100, ""); err != nil {
		return nil, err
	}

	result := map[string]any{"render_id": p.RenderID, "kind": p.Kind, "url": url}
	f.cache.Put(ctx, "render", p.RenderID, result)

	if err := f.events.Emit(ctx, outbox.EventRenderCompleted, result); err != nil {
		return nil, err
	}
	return result, nil
}

// compose simulates the actual render work; 3D takes noticeably longer.
func (f *RenderFamily) compose(ctx context.Context, p *dto.RenderJobPayload) ([]byte, error) {
	delay := 100 * time.Millisecond
	if p.Kind == models.RenderKind3D {
		delay = 400 * time.Millisecond
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	width, height := p.Options.Width, p.Options.Height
	if width == 0 {
		width = 1024
	}
	if height == 0 {
		height = 1024
	}
	return fmt.Appendf(nil, "%s/%s/%dx%d", p.RenderID, p.Kind, width, height), nil
}

func (f *RenderFamily) progress(ctx context.Context, exec *guard.Execution, renderID, stage string, percentage int, message string) error {
	if err := exec.Check(); err != nil {
		return err
	}
	return f.records.UpsertRenderProgress(ctx, &models.RenderProgress{
		RenderID:   renderID,
		Stage:      stage,
		Percentage: percentage,
		Message:    message,
	})
}

func (f *RenderFamily) saveFailure(ctx context.Context, p *dto.RenderJobPayload, cause error) {
	render := &models.Render{
		ID:       p.RenderID,
		DesignID: p.DesignID,
		Kind:     p.Kind,
		Status:   models.RenderFailed,
		Error:    cause.Error(),
	}
	if err := f.records.SaveRenderResult(ctx, render); err != nil {
		f.log.Errorw("save render failure", "render_id", p.RenderID, "error", err)
	}
	if err := f.events.Emit(ctx, outbox.EventRenderFailed, map[string]any{
		"render_id": p.RenderID,
		"error":     cause.Error(),
	}); err != nil {
		f.log.Errorw("emit render failure event", "render_id", p.RenderID, "error", err)
	}
}

// renderBatch fans sub-renders out in fixed-width chunks. Items are
// isolated: one failure is recorded in its slot and the rest of the batch
// carries on. The batch itself completes as long as the fan-out ran.
func (f *RenderFamily) renderBatch(ctx context.Context, exec *guard.Execution, batch *dto.BatchRenderPayload) (any, error) {
	total := len(batch.Renders)
	results := make([]dto.BatchItemResult, total)

	for start := 0; start < total; start += config.BatchRenderConcurrency {
		end := min(start+config.BatchRenderConcurrency, total)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				item := batch.Renders[i]
				if _, err := f.render(ctx, exec, &item); err != nil {
					results[i] = dto.BatchItemResult{RenderID: item.RenderID, Status: "failed", Error: err.Error()}
					return
				}
				results[i] = dto.BatchItemResult{RenderID: item.RenderID, Status: "completed"}
			}(i)
		}
		wg.Wait()

		if err := f.progress(ctx, exec, batch.BatchID, "batch", end*100/total,
			fmt.Sprintf("%d of %d renders processed", end, total)); err != nil {
			return nil, err
		}
	}

	completed := 0
	for _, r := range results {
		if r.Status == "completed" {
			completed++
		}
	}

	f.log.Infow("batch render finished", "batch_id", batch.BatchID, "completed", completed, "total", total)
	return dto.BatchRenderResult{
		BatchID:   batch.BatchID,
		Status:    "completed",
		Completed: completed,
		Total:     total,
		Results:   results,
	}, nil
}
