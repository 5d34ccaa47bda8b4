package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
	"github.com/uninet-dev/campus-hub-api/pkg/export"
)

type forumPostStore interface {
	GetByID(ctx context.Context, id string) (*models.ForumPost, error)
	Delete(ctx context.Context, id string) error
}

type moderatedUserStore interface {
	ProfileSummary(ctx context.Context, id string) (*models.UserProfileSummary, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Ban(ctx context.Context, id string, bannedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// ModerationService is the administrator-facing side of the complaint queue.
// It resolves complaint targets into a normalized detail view and executes
// moderation actions against them.
type ModerationService struct {
	complaints *ComplaintService
	materials  *MaterialService
	posts      forumPostStore
	users      moderatedUserStore
	audit      auditLogger
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
	now        func() time.Time
}

// NewModerationService constructs the service.
func NewModerationService(complaints *ComplaintService, materials *MaterialService, posts forumPostStore, users moderatedUserStore, audit auditLogger, logger *zap.Logger) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{
		complaints: complaints,
		materials:  materials,
		posts:      posts,
		users:      users,
		audit:      audit,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// FetchDetail resolves the target of a complaint into the detail payload for
// the moderation queue. It dispatches on the complaint type and reports a
// vanished target as found=false rather than an error, so stale tickets stay
// reviewable.
func (s *ModerationService) FetchDetail(ctx context.Context, complaintID string) (*models.ComplaintDetail, error) {
	complaint, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	detail := &models.ComplaintDetail{Type: complaint.Type}
	targetID := complaint.TargetID()
	if targetID == "" {
		return detail, nil
	}

	switch complaint.Type {
	case models.ComplaintTypeMaterial:
		material, err := s.materials.Get(ctx, targetID)
		if err != nil {
			return s.detailOrError(detail, err)
		}
		detail.Found = true
		detail.Material = material
	case models.ComplaintTypeUser:
		profile, err := s.users.ProfileSummary(ctx, targetID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return detail, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user profile")
		}
		detail.Found = true
		detail.User = profile
	case models.ComplaintTypeForumPost:
		post, err := s.posts.GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return detail, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load forum post")
		}
		detail.Found = true
		detail.Post = post
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("complaint %s has unknown type %q", complaint.ID, complaint.Type))
	}
	return detail, nil
}

// DeleteMaterial removes the offending material on behalf of a moderator.
func (s *ModerationService) DeleteMaterial(ctx context.Context, materialID string, actor *models.JWTClaims) error {
	return s.materials.Delete(ctx, materialID, actor)
}

// DeleteForumPost removes the offending forum post.
func (s *ModerationService) DeleteForumPost(ctx context.Context, postID string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load forum post")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete forum post")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionForumPostDelete, "forum_post", postID)
	return nil
}

// BanUser deactivates the account and revokes its refresh tokens. Banning an
// already inactive account is a no-op conflict.
func (s *ModerationService) BanUser(ctx context.Context, userID string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.UserID == userID {
		return appErrors.Clone(appErrors.ErrValidation, "administrators cannot ban themselves")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return appErrors.Clone(appErrors.ErrConflict, "account is already inactive")
	}
	if user.Role == models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "super admin accounts cannot be banned")
	}
	if err := s.users.Ban(ctx, userID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ban user")
	}
	if err := s.users.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens for banned user", zap.String("user_id", userID), zap.Error(err))
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionUserBan, "user", userID)
	return nil
}

// ExportComplaints renders the current complaint queue as CSV or PDF for
// offline review.
func (s *ModerationService) ExportComplaints(ctx context.Context, query dto.ComplaintExportQuery, actor *models.JWTClaims) ([]byte, string, error) {
	if actor == nil {
		return nil, "", appErrors.ErrUnauthorized
	}
	complaints, err := s.complaints.List(ctx, query.Query)
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"ID", "Type", "Title", "Category", "Status", "Target", "Reported By", "Created At"},
		Rows:    make([]map[string]string, 0, len(complaints)),
	}
	for i := range complaints {
		c := &complaints[i]
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":          c.ID,
			"Type":        string(c.Type),
			"Title":       c.Title,
			"Category":    c.Category,
			"Status":      string(c.Status),
			"Target":      c.TargetID(),
			"Reported By": c.ReportedBy,
			"Created At":  c.CreatedAt.Format(time.RFC3339),
		})
	}

	var payload []byte
	var contentType string
	switch query.Format {
	case "", "csv":
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Complaint Queue Export")
		contentType = "application/pdf"
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", query.Format))
	}
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionComplaintExport, "complaint", query.Format)
	return payload, contentType, nil
}

func (s *ModerationService) emitAudit(ctx context.Context, userID, action, resource, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "moderation-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *ModerationService) detailOrError(detail *models.ComplaintDetail, err error) (*models.ComplaintDetail, error) {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
		return detail, nil
	}
	return nil, err
}
