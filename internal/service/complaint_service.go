package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
)

type complaintStore interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
	Resolve(ctx context.Context, id string, outcome models.ComplaintStatus, resolvedBy string, resolvedAt time.Time) error
}

// ComplaintService manages moderation tickets.
type ComplaintService struct {
	repo   complaintStore
	audit  auditLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewComplaintService constructs the service.
func NewComplaintService(repo complaintStore, audit auditLogger, logger *zap.Logger) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		repo:   repo,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create files a complaint against a single target. The target is not
// required to exist at filing time; it may legitimately vanish before review
// and the detail view tolerates that.
func (s *ComplaintService) Create(ctx context.Context, req dto.CreateComplaintRequest, actor *models.JWTClaims) (*models.Complaint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.ValidComplaintType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported complaint type: %s", req.Type))
	}
	if err := validateRequiredFields(map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"category":    req.Category,
		"target_id":   req.TargetID,
	}); err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Status:      models.ComplaintStatusPending,
		ReportedBy:  actor.UserID,
	}
	complaint.SetTarget(strings.TrimSpace(req.TargetID))

	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionComplaintCreate, complaint.ID)
	return complaint, nil
}

// Get loads one complaint.
func (s *ComplaintService) Get(ctx context.Context, id string) (*models.Complaint, error) {
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	return complaint, nil
}

// List returns complaints matching the query, newest first.
func (s *ComplaintService) List(ctx context.Context, query dto.ComplaintQuery) ([]models.Complaint, error) {
	if query.Type != "" && !models.ValidComplaintType(query.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported complaint type: %s", query.Type))
	}
	complaints, err := s.repo.List(ctx, models.ComplaintFilter{
		Type:     query.Type,
		Status:   query.Status,
		Category: strings.TrimSpace(query.Category),
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return complaints, nil
}

// Resolve closes a pending complaint as resolved or rejected. A complaint is
// resolved at most once; the losing side of a concurrent resolve gets an
// invalid state error.
func (s *ComplaintService) Resolve(ctx context.Context, id string, outcome models.ComplaintStatus, actor *models.JWTClaims) (*models.Complaint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if outcome != models.ComplaintStatusResolved && outcome != models.ComplaintStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("outcome must be resolved or rejected, got %q", outcome))
	}
	complaint, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if complaint.Status != models.ComplaintStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("complaint is already %s", complaint.Status))
	}
	resolvedAt := s.now()
	if err := s.repo.Resolve(ctx, id, outcome, actor.UserID, resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "complaint is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve complaint")
	}
	complaint.Status = outcome
	complaint.ResolvedBy = &actor.UserID
	complaint.ResolvedAt = &resolvedAt
	s.emitAudit(ctx, actor.UserID, models.AuditActionComplaintResolve, id)
	return complaint, nil
}

func (s *ComplaintService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "complaint",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "complaint-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
