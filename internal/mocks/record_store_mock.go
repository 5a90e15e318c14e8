package mocks

import (
	"context"

	"github.com/fabriqd/fabriq/internal/models"
	"github.com/stretchr/testify/mock"
)

type RecordStoreMock struct {
	mock.Mock
}

func (m *RecordStoreMock) GetDesign(ctx context.Context, id string) (*models.Design, error) {
	args := m.Called(ctx, id)

	design, _ := args.Get(0).(*models.Design)
	return design, args.Error(1)
}

func (m *RecordStoreMock) UpdateDesignStatus(ctx context.Context, id string, status models.DesignStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *RecordStoreMock) UpdateDesign(ctx context.Context, id string, updates map[string]any) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *RecordStoreMock) CreateAsset(ctx context.Context, asset *models.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *RecordStoreMock) ListAssets(ctx context.Context, designID string) ([]models.Asset, error) {
	args := m.Called(ctx, designID)

	assets, _ := args.Get(0).([]models.Asset)
	return assets, args.Error(1)
}

func (m *RecordStoreMock) GetRender(ctx context.Context, id string) (*models.Render, error) {
	args := m.Called(ctx, id)

	render, _ := args.Get(0).(*models.Render)
	return render, args.Error(1)
}

func (m *RecordStoreMock) SaveRenderResult(ctx context.Context, render *models.Render) error {
	args := m.Called(ctx, render)
	return args.Error(0)
}

func (m *RecordStoreMock) UpsertRenderProgress(ctx context.Context, progress *models.RenderProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *RecordStoreMock) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)

	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *RecordStoreMock) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *RecordStoreMock) SetOrderBundle(ctx context.Context, id string, bundleURL string) error {
	args := m.Called(ctx, id, bundleURL)
	return args.Error(0)
}

func (m *RecordStoreMock) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)

	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *RecordStoreMock) GetBrand(ctx context.Context, id string) (*models.Brand, error) {
	args := m.Called(ctx, id)

	brand, _ := args.Get(0).(*models.Brand)
	return brand, args.Error(1)
}

func (m *RecordStoreMock) CreateQualityReport(ctx context.Context, report *models.QualityReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
