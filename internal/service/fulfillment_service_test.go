package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/models"
	"github.com/uninet-dev/campus-hub-api/internal/repository"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
)

type mockFulfillmentRepo struct {
	request    *models.Request
	getErr     error
	fulfillErr error
	lastParams *repository.FulfillParams
}

func (m *mockFulfillmentRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	copied := *m.request
	return &copied, nil
}

func (m *mockFulfillmentRepo) Fulfill(ctx context.Context, params repository.FulfillParams) error {
	if m.fulfillErr != nil {
		return m.fulfillErr
	}
	m.lastParams = &params
	return nil
}

type mockMaterialReader struct {
	material *models.Material
	err      error
}

func (m *mockMaterialReader) GetByID(ctx context.Context, id string) (*models.Material, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.material, nil
}

func pendingRequest() *models.Request {
	return &models.Request{ID: "req-1", Status: models.RequestStatusPending, RequestedBy: "owner"}
}

func TestFulfillmentServiceFulfill(t *testing.T) {
	repo := &mockFulfillmentRepo{request: pendingRequest()}
	materials := &mockMaterialReader{material: &models.Material{ID: "mat-1"}}
	audit := &mockAudit{}
	svc := NewFulfillmentService(repo, materials, audit, nil, zap.NewNop())

	fulfilled, err := svc.Fulfill(context.Background(), "req-1", "mat-1", studentClaims("helper"))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusFulfilled, fulfilled.Status)
	require.NotNil(t, fulfilled.FulfilledBy)
	assert.Equal(t, "helper", *fulfilled.FulfilledBy)
	require.NotNil(t, fulfilled.FulfilledMaterial)
	assert.Equal(t, "mat-1", *fulfilled.FulfilledMaterial)
	require.NotNil(t, repo.lastParams)
	assert.Equal(t, "helper", repo.lastParams.FulfilledBy)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestFulfill, audit.logs[0].Action)
}

func TestFulfillmentServiceAlreadyFulfilled(t *testing.T) {
	request := pendingRequest()
	request.Status = models.RequestStatusFulfilled
	repo := &mockFulfillmentRepo{request: request}
	svc := NewFulfillmentService(repo, &mockMaterialReader{}, nil, nil, zap.NewNop())

	_, err := svc.Fulfill(context.Background(), "req-1", "mat-1", studentClaims("helper"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyFulfilled.Code, appErr.Code)
}

func TestFulfillmentServiceExpiredRequest(t *testing.T) {
	request := pendingRequest()
	request.Status = models.RequestStatusExpired
	repo := &mockFulfillmentRepo{request: request}
	svc := NewFulfillmentService(repo, &mockMaterialReader{}, nil, nil, zap.NewNop())

	_, err := svc.Fulfill(context.Background(), "req-1", "mat-1", studentClaims("helper"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestFulfillmentServicePastDeadline(t *testing.T) {
	past := time.Now().Add(-time.Minute).UTC()
	request := pendingRequest()
	request.ExpiresAt = &past
	repo := &mockFulfillmentRepo{request: request}
	svc := NewFulfillmentService(repo, &mockMaterialReader{}, nil, nil, zap.NewNop())

	_, err := svc.Fulfill(context.Background(), "req-1", "mat-1", studentClaims("helper"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestFulfillmentServiceUnknownMaterial(t *testing.T) {
	repo := &mockFulfillmentRepo{request: pendingRequest()}
	materials := &mockMaterialReader{err: sql.ErrNoRows}
	svc := NewFulfillmentService(repo, materials, nil, nil, zap.NewNop())

	_, err := svc.Fulfill(context.Background(), "req-1", "mat-404", studentClaims("helper"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestFulfillmentServiceLosesWriteRace(t *testing.T) {
	repo := &mockFulfillmentRepo{request: pendingRequest(), fulfillErr: sql.ErrNoRows}
	materials := &mockMaterialReader{material: &models.Material{ID: "mat-1"}}
	svc := NewFulfillmentService(repo, materials, nil, nil, zap.NewNop())

	_, err := svc.Fulfill(context.Background(), "req-1", "mat-1", studentClaims("helper"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyFulfilled.Code, appErr.Code)
}

func TestFulfillmentServiceMaterialVanishesBeforeLink(t *testing.T) {
	repo := &mockFulfillmentRepo{request: pendingRequest(), fulfillErr: repository.ErrMaterialGone}
	materials := &mockMaterialReader{material: &models.Material{ID: "mat-1"}}
	svc := NewFulfillmentService(repo, materials, nil, nil, zap.NewNop())

	_, err := svc.Fulfill(context.Background(), "req-1", "mat-1", studentClaims("helper"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "mat-1")
}

func TestFulfillmentServiceRequestNotFound(t *testing.T) {
	repo := &mockFulfillmentRepo{getErr: sql.ErrNoRows}
	svc := NewFulfillmentService(repo, &mockMaterialReader{}, nil, nil, zap.NewNop())

	_, err := svc.Fulfill(context.Background(), "req-404", "mat-1", studentClaims("helper"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
