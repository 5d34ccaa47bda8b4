package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/models"
	"github.com/uninet-dev/campus-hub-api/internal/repository"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
)

type fulfillmentStore interface {
	GetByID(ctx context.Context, id string) (*models.Request, error)
	Fulfill(ctx context.Context, params repository.FulfillParams) error
}

type materialReader interface {
	GetByID(ctx context.Context, id string) (*models.Material, error)
}

// FulfillmentService links pending requests to uploaded materials. The link
// is written at most once per request; concurrent attempts race on a guarded
// update and exactly one wins.
type FulfillmentService struct {
	requests  fulfillmentStore
	materials materialReader
	audit     auditLogger
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
}

// NewFulfillmentService constructs the service.
func NewFulfillmentService(requests fulfillmentStore, materials materialReader, audit auditLogger, cache *CacheService, logger *zap.Logger) *FulfillmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FulfillmentService{
		requests:  requests,
		materials: materials,
		audit:     audit,
		cache:     cache,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Fulfill marks the request fulfilled by the acting user with the given
// material and back-references the request from the material.
func (s *FulfillmentService) Fulfill(ctx context.Context, requestID, materialID string, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if materialID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fulfilled_material is required")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	switch request.Status {
	case models.RequestStatusFulfilled:
		return nil, appErrors.ErrAlreadyFulfilled
	case models.RequestStatusExpired:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has expired")
	}
	if request.ExpiresAt != nil && !request.ExpiresAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has expired")
	}

	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("material %s does not exist", materialID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}

	fulfilledAt := s.now()
	err = s.requests.Fulfill(ctx, repository.FulfillParams{
		ID:                request.ID,
		FulfilledBy:       actor.UserID,
		FulfilledMaterial: material.ID,
		FulfilledAt:       fulfilledAt,
	})
	if err != nil {
		if errors.Is(err, repository.ErrMaterialGone) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("material %s does not exist", materialID))
		}
		if errors.Is(err, sql.ErrNoRows) {
			// Another fulfiller won the race between our read and the write.
			return nil, appErrors.ErrAlreadyFulfilled
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fulfill request")
	}

	request.Status = models.RequestStatusFulfilled
	request.FulfilledBy = &actor.UserID
	request.FulfilledMaterial = &material.ID
	request.FulfilledAt = &fulfilledAt

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, requestCachePrefix+"*"); err != nil {
			s.logger.Warn("failed to invalidate request list cache", zap.Error(err))
		}
	}
	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionRequestFulfill,
			Resource:   "request",
			ResourceID: &request.ID,
			IPAddress:  "system",
			UserAgent:  "fulfillment-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	s.logger.Info("request fulfilled",
		zap.String("request_id", request.ID),
		zap.String("material_id", material.ID),
		zap.String("fulfilled_by", actor.UserID),
	)
	return request, nil
}
