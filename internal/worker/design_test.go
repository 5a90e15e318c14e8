package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/collab"
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

type designDeps struct {
	records   *mocks.RecordStoreMock
	backend   *mocks.GenerationBackendMock
	moderator *mocks.ModeratorMock
	store     *mocks.ObjectStoreMock
	events    *mocks.EmitterMock
	cache     *mocks.ResultCacheMock
}

func newDesignFamily() (*DesignFamily, *designDeps) {
	d := &designDeps{
		records:   new(mocks.RecordStoreMock),
		backend:   new(mocks.GenerationBackendMock),
		moderator: new(mocks.ModeratorMock),
		store:     new(mocks.ObjectStoreMock),
		events:    new(mocks.EmitterMock),
		cache:     new(mocks.ResultCacheMock),
	}
	f := NewDesignFamily(d.records, d.backend, d.moderator, d.store, d.events, d.cache, zap.NewNop().Sugar())
	return f, d
}

func designJob(t *testing.T, p dto.DesignJobPayload) *models.Job {
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return &models.Job{
		ID:      "job-1",
		Queue:   config.QueueDesignGeneration,
		Name:    config.JobGenerateDesign,
		Payload: datatypes.JSON(raw),
	}
}

func basePayload() dto.DesignJobPayload {
	return dto.DesignJobPayload{
		DesignID: "d-1",
		BrandID:  "b-1",
		Prompt:   "a red hoodie with a fox",
		Options:  dto.DesignOptions{Quality: config.TierStandard, NumImages: 2},
	}
}

func TestDesignFamily_Generate_HappyPath(t *testing.T) {
	f, d := newDesignFamily()
	exec := &guard.Execution{JobID: "job-1"}

	d.records.On("UpdateDesignStatus", mock.Anything, "d-1", models.DesignProcessing, "").Return(nil)
	d.moderator.On("Review", mock.Anything, "a red hoodie with a fox").Return(nil)
	d.backend.On("Generate", mock.Anything, mock.MatchedBy(func(p collab.GenerationParams) bool {
		return p.Model == config.ModelSDXL && p.NumImages == 2
	})).Return([]collab.Artifact{
		{Data: []byte("img-0"), Format: "png", Width: 1024, Height: 1024},
		{Data: []byte("img-1"), Format: "png", Width: 1024, Height: 1024},
	}, nil)
	d.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/png").
		Return("https://cdn/designs/d-1/x.png", nil)
	d.records.On("CreateAsset", mock.Anything, mock.MatchedBy(func(a *models.Asset) bool {
		return a.DesignID == "d-1" && a.URL != ""
	})).Return(nil)
	d.records.On("UpdateDesignStatus", mock.Anything, "d-1", models.DesignCompleted, "").Return(nil)
	d.cache.On("Put", mock.Anything, "design", "d-1", mock.Anything).Return()
	d.events.On("Emit", mock.Anything, outbox.EventDesignCompleted, mock.Anything).Return(nil)

	result, err := f.Handle(context.Background(), exec, designJob(t, basePayload()))
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, "d-1", m["design_id"])
	assert.Len(t, m["urls"], 2)

	d.records.AssertNumberOfCalls(t, "CreateAsset", 2)
	d.records.AssertExpectations(t)
	d.events.AssertExpectations(t)
}

func TestDesignFamily_Generate_ModerationRejectionIsTerminal(t *testing.T) {
	f, d := newDesignFamily()
	exec := &guard.Execution{JobID: "job-1"}

	d.records.On("UpdateDesignStatus", mock.Anything, "d-1", models.DesignProcessing, "").Return(nil)
	d.moderator.On("Review", mock.Anything, mock.Anything).
		Return(common.ErrModerationRejected)
	d.records.On("UpdateDesignStatus", mock.Anything, "d-1", models.DesignFailed, mock.Anything).Return(nil)
	d.events.On("Emit", mock.Anything, outbox.EventDesignFailed, mock.Anything).Return(nil)

	_, err := f.Handle(context.Background(), exec, designJob(t, basePayload()))

	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
	d.backend.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	d.events.AssertExpectations(t)
}

func TestDesignFamily_Generate_ZoneOverridesModel(t *testing.T) {
	f, d := newDesignFamily()
	exec := &guard.Execution{JobID: "job-1"}

	p := basePayload()
	p.Options.NumImages = 1
	p.Rules.Zones = []config.ZoneKind{config.ZoneFlat, config.Zone3D}

	d.records.On("UpdateDesignStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.moderator.On("Review", mock.Anything, mock.Anything).Return(nil)
	d.backend.On("Generate", mock.Anything, mock.MatchedBy(func(gp collab.GenerationParams) bool {
		return gp.Model == config.ModelSD3D
	})).Return([]collab.Artifact{{Data: []byte("obj"), Format: "png"}}, nil)
	d.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://cdn/x", nil)
	d.records.On("CreateAsset", mock.Anything, mock.Anything).Return(nil)
	d.cache.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	d.events.On("Emit", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.Handle(context.Background(), exec, designJob(t, p))
	require.NoError(t, err)
	d.backend.AssertExpectations(t)
}

func TestDesignFamily_Generate_InvalidRulesAreTerminal(t *testing.T) {
	f, d := newDesignFamily()
	exec := &guard.Execution{JobID: "job-1"}

	p := basePayload()
	p.Options.NumImages = 11

	d.records.On("UpdateDesignStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.events.On("Emit", mock.Anything, outbox.EventDesignFailed, mock.Anything).Return(nil)

	_, err := f.Handle(context.Background(), exec, designJob(t, p))

	assert.ErrorIs(t, err, common.ErrValidationFailed)
	assert.True(t, common.IsFatal(err))
	d.moderator.AssertNotCalled(t, "Review", mock.Anything, mock.Anything)
}

func TestDesignFamily_Generate_TierQuotaIsTerminal(t *testing.T) {
	f, d := newDesignFamily()
	exec := &guard.Execution{JobID: "job-1"}

	p := basePayload()
	p.Options.Quality = config.TierUltra
	p.Options.NumImages = 5

	d.records.On("UpdateDesignStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.events.On("Emit", mock.Anything, outbox.EventDesignFailed, mock.Anything).Return(nil)

	_, err := f.Handle(context.Background(), exec, designJob(t, p))

	assert.ErrorIs(t, err, common.ErrQuotaExceeded)
	assert.True(t, common.IsFatal(err))
	d.moderator.AssertNotCalled(t, "Review", mock.Anything, mock.Anything)
	d.backend.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	d.events.AssertExpectations(t)
}

func TestDesignFamily_Generate_PartialUploadAbortsWithoutRollback(t *testing.T) {
	f, d := newDesignFamily()
	exec := &guard.Execution{JobID: "job-1"}

	d.records.On("UpdateDesignStatus", mock.Anything, "d-1", models.DesignProcessing, "").Return(nil)
	d.moderator.On("Review", mock.Anything, mock.Anything).Return(nil)
	d.backend.On("Generate", mock.Anything, mock.Anything).Return([]collab.Artifact{
		{Data: []byte("img-0"), Format: "png"},
		{Data: []byte("img-1"), Format: "png"},
	}, nil)

	d.store.On("Upload", mock.Anything, []byte("img-0"), mock.Anything, mock.Anything).
		Return("https://cdn/0.png", nil)
	d.store.On("Upload", mock.Anything, []byte("img-1"), mock.Anything, mock.Anything).
		Return("", errors.New("bucket gone"))
	d.records.On("CreateAsset", mock.Anything, mock.Anything).Return(nil)

	d.records.On("UpdateDesignStatus", mock.Anything, "d-1", models.DesignFailed, mock.Anything).Return(nil)
	d.events.On("Emit", mock.Anything, outbox.EventDesignFailed, mock.Anything).Return(nil)

	_, err := f.Handle(context.Background(), exec, designJob(t, basePayload()))

	assert.ErrorIs(t, err, common.ErrPartialUpload)
	// the first asset row stays, nothing is rolled back
	d.records.AssertNumberOfCalls(t, "CreateAsset", 1)
	d.records.AssertNotCalled(t, "UpdateDesignStatus", mock.Anything, "d-1", models.DesignCompleted, "")
}

func TestDesignFamily_PostProcess_KeepsOriginalOnFailure(t *testing.T) {
	f, _ := newDesignFamily()

	original := []collab.Artifact{{Data: []byte("img"), Format: "png"}}
	out := f.postProcess(original, []string{"sharpen", "not-a-real-effect"})

	require.Len(t, out, 1)
	assert.Equal(t, original[0], out[0], "failed post-processing must fall back to the original")
}

func TestDesignFamily_Validate(t *testing.T) {
	f, d := newDesignFamily()

	d.records.On("GetDesign", mock.Anything, "d-1").Return(&models.Design{ID: "d-1"}, nil)
	d.moderator.On("Review", mock.Anything, mock.Anything).Return(nil)

	job := designJob(t, basePayload())
	job.Name = config.JobValidateDesign

	result, err := f.Handle(context.Background(), &guard.Execution{}, job)
	require.NoError(t, err)
	assert.Equal(t, true, result.(map[string]any)["valid"])
}
