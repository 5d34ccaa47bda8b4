package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	UpdatePendingFields(ctx context.Context, request *models.Request) error
	DeletePending(ctx context.Context, id string) error
	MarkExpired(ctx context.Context, id string, now time.Time) error
	ExpireDue(ctx context.Context, now time.Time, limit int) (int64, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

const requestCachePrefix = "requests:list:"

// RequestService manages the material request lifecycle.
type RequestService struct {
	repo       requestStore
	audit      auditLogger
	cache      *CacheService
	logger     *zap.Logger
	sweepBatch int
	now        func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(repo requestStore, audit auditLogger, cache *CacheService, logger *zap.Logger, sweepBatch int) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sweepBatch <= 0 {
		sweepBatch = 100
	}
	return &RequestService{
		repo:       repo,
		audit:      audit,
		cache:      cache,
		logger:     logger,
		sweepBatch: sweepBatch,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new pending request.
func (s *RequestService) Create(ctx context.Context, req dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validateRequiredFields(map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"subject":     req.Subject,
		"campus":      req.Campus,
		"course":      req.Course,
		"year":        req.Year,
		"semester":    req.Semester,
	}); err != nil {
		return nil, err
	}
	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}
	if !models.ValidUrgency(urgency) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported urgency: %s", urgency))
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expires_at must be in the future")
	}

	request := &models.Request{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Subject:     strings.TrimSpace(req.Subject),
		Campus:      strings.TrimSpace(req.Campus),
		Course:      strings.TrimSpace(req.Course),
		Year:        strings.TrimSpace(req.Year),
		Semester:    strings.TrimSpace(req.Semester),
		Urgency:     urgency,
		Status:      models.RequestStatusPending,
		RequestedBy: actor.UserID,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	s.invalidateListCache(ctx)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRequestCreate,
		Resource:   "request",
		ResourceID: &request.ID,
	})
	return request, nil
}

// Get loads a request, applying the on-read expiry check.
func (s *RequestService) Get(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	s.expireOnRead(ctx, request)
	return request, nil
}

// Edit mutates the owner-editable fields of a pending request.
func (s *RequestService) Edit(ctx context.Context, id string, patch dto.UpdateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request is %s and can no longer be edited", request.Status))
	}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be empty")
		}
		request.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "description must not be empty")
		}
		request.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Urgency != nil {
		if !models.ValidUrgency(*patch.Urgency) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported urgency: %s", *patch.Urgency))
		}
		request.Urgency = *patch.Urgency
	}
	if err := s.repo.UpdatePendingFields(ctx, request); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The request left the pending state between the read and the write.
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	s.invalidateListCache(ctx)
	return request, nil
}

// Delete removes a pending request. Fulfilled and expired requests are kept
// for history and refuse deletion.
func (s *RequestService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	request, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if request.RequestedBy != actor.UserID && actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return appErrors.ErrForbidden
	}
	if request.Status != models.RequestStatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request is %s and can no longer be deleted", request.Status))
	}
	if err := s.repo.DeletePending(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}
	s.invalidateListCache(ctx)
	return nil
}

// List returns requests matching the query, newest first. Pending rows past
// their deadline are reported as expired and transitioned best-effort.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery) ([]models.Request, bool, error) {
	if query.Urgency != "" && !models.ValidUrgency(query.Urgency) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported urgency: %s", query.Urgency))
	}
	filter := models.RequestFilter{
		Campus:  strings.TrimSpace(query.Campus),
		Course:  strings.TrimSpace(query.Course),
		Subject: strings.TrimSpace(query.Subject),
		Urgency: query.Urgency,
		Status:  query.Status,
		Search:  strings.TrimSpace(query.Search),
		Limit:   query.Limit,
		Offset:  query.Offset,
	}

	cacheKey := requestListCacheKey(filter)
	var cached []models.Request
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	for i := range requests {
		s.expireOnRead(ctx, &requests[i])
	}
	if err := s.cache.Set(ctx, cacheKey, requests, 0); err != nil {
		s.logger.Warn("failed to cache request list", zap.Error(err))
	}
	return requests, false, nil
}

// ExpireSweep transitions all due pending requests. Invoked by the periodic
// background job; safe to re-run at any time.
func (s *RequestService) ExpireSweep(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireDue(ctx, s.now(), s.sweepBatch)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.invalidateListCache(ctx)
		s.logger.Info("expired due requests", zap.Int64("count", expired))
	}
	return expired, nil
}

func (s *RequestService) expireOnRead(ctx context.Context, request *models.Request) {
	if request.Status != models.RequestStatusPending || request.ExpiresAt == nil {
		return
	}
	if request.ExpiresAt.After(s.now()) {
		return
	}
	request.Status = models.RequestStatusExpired
	if err := s.repo.MarkExpired(ctx, request.ID, s.now()); err != nil {
		s.logger.Warn("failed to persist request expiry", zap.String("request_id", request.ID), zap.Error(err))
	}
}

func (s *RequestService) invalidateListCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, requestCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate request list cache", zap.Error(err))
	}
}

func (s *RequestService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "request-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func requestListCacheKey(filter models.RequestFilter) string {
	return fmt.Sprintf("%s%s|%s|%s|%s|%s|%s|%d|%d",
		requestCachePrefix,
		filter.Campus, filter.Course, filter.Subject,
		filter.Urgency, filter.Status, strings.ToLower(filter.Search),
		filter.Limit, filter.Offset,
	)
}

func validateRequiredFields(fields map[string]string) error {
	missing := make([]string, 0, len(fields))
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}
