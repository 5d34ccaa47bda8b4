package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
)

type mockComplaintRepo struct {
	complaints map[string]*models.Complaint
	resolveErr error
}

func newMockComplaintRepo() *mockComplaintRepo {
	return &mockComplaintRepo{complaints: make(map[string]*models.Complaint)}
}

func (m *mockComplaintRepo) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = "cmp-generated"
	}
	m.complaints[complaint.ID] = complaint
	return nil
}

func (m *mockComplaintRepo) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	complaint, ok := m.complaints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *complaint
	return &copied, nil
}

func (m *mockComplaintRepo) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	result := make([]models.Complaint, 0, len(m.complaints))
	for _, complaint := range m.complaints {
		result = append(result, *complaint)
	}
	return result, nil
}

func (m *mockComplaintRepo) Resolve(ctx context.Context, id string, outcome models.ComplaintStatus, resolvedBy string, resolvedAt time.Time) error {
	if m.resolveErr != nil {
		return m.resolveErr
	}
	complaint, ok := m.complaints[id]
	if !ok || complaint.Status != models.ComplaintStatusPending {
		return sql.ErrNoRows
	}
	complaint.Status = outcome
	complaint.ResolvedBy = &resolvedBy
	complaint.ResolvedAt = &resolvedAt
	return nil
}

func validComplaint(kind models.ComplaintType) dto.CreateComplaintRequest {
	return dto.CreateComplaintRequest{
		Type:        kind,
		Title:       "Inappropriate content",
		Description: "The upload contains copyrighted exam solutions",
		Category:    "copyright",
		TargetID:    "target-1",
	}
}

func TestComplaintServiceCreateSetsSingleTarget(t *testing.T) {
	repo := newMockComplaintRepo()
	svc := NewComplaintService(repo, &mockAudit{}, zap.NewNop())

	created, err := svc.Create(context.Background(), validComplaint(models.ComplaintTypeMaterial), studentClaims("reporter"))
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusPending, created.Status)
	require.NotNil(t, created.AgainstMaterial)
	assert.Equal(t, "target-1", *created.AgainstMaterial)
	assert.Nil(t, created.AgainstUser)
	assert.Nil(t, created.AgainstPost)
	assert.Equal(t, "target-1", created.TargetID())
}

func TestComplaintServiceCreateForumPostTarget(t *testing.T) {
	repo := newMockComplaintRepo()
	svc := NewComplaintService(repo, nil, zap.NewNop())

	created, err := svc.Create(context.Background(), validComplaint(models.ComplaintTypeForumPost), studentClaims("reporter"))
	require.NoError(t, err)
	require.NotNil(t, created.AgainstPost)
	assert.Nil(t, created.AgainstMaterial)
	assert.Nil(t, created.AgainstUser)
}

func TestComplaintServiceCreateRejectsUnknownType(t *testing.T) {
	svc := NewComplaintService(newMockComplaintRepo(), nil, zap.NewNop())

	req := validComplaint("course")
	_, err := svc.Create(context.Background(), req, studentClaims("reporter"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestComplaintServiceCreateRequiresTarget(t *testing.T) {
	svc := NewComplaintService(newMockComplaintRepo(), nil, zap.NewNop())

	req := validComplaint(models.ComplaintTypeUser)
	req.TargetID = " "
	_, err := svc.Create(context.Background(), req, studentClaims("reporter"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "target_id")
}

func TestComplaintServiceResolve(t *testing.T) {
	repo := newMockComplaintRepo()
	repo.complaints["cmp-1"] = &models.Complaint{ID: "cmp-1", Type: models.ComplaintTypeMaterial, Status: models.ComplaintStatusPending}
	audit := &mockAudit{}
	svc := NewComplaintService(repo, audit, zap.NewNop())

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	resolved, err := svc.Resolve(context.Background(), "cmp-1", models.ComplaintStatusResolved, admin)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "admin-1", *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionComplaintResolve, audit.logs[0].Action)
}

func TestComplaintServiceResolveOnlyOnce(t *testing.T) {
	repo := newMockComplaintRepo()
	repo.complaints["cmp-1"] = &models.Complaint{ID: "cmp-1", Type: models.ComplaintTypeMaterial, Status: models.ComplaintStatusPending}
	svc := NewComplaintService(repo, nil, zap.NewNop())

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Resolve(context.Background(), "cmp-1", models.ComplaintStatusResolved, admin)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "cmp-1", models.ComplaintStatusRejected, admin)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestComplaintServiceResolveRejectsPendingOutcome(t *testing.T) {
	repo := newMockComplaintRepo()
	repo.complaints["cmp-1"] = &models.Complaint{ID: "cmp-1", Status: models.ComplaintStatusPending}
	svc := NewComplaintService(repo, nil, zap.NewNop())

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Resolve(context.Background(), "cmp-1", models.ComplaintStatusPending, admin)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestComplaintServiceResolveLosesRace(t *testing.T) {
	repo := newMockComplaintRepo()
	repo.complaints["cmp-1"] = &models.Complaint{ID: "cmp-1", Status: models.ComplaintStatusPending}
	repo.resolveErr = sql.ErrNoRows
	svc := NewComplaintService(repo, nil, zap.NewNop())

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Resolve(context.Background(), "cmp-1", models.ComplaintStatusResolved, admin)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}
