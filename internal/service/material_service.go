package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	"github.com/uninet-dev/campus-hub-api/internal/repository"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
	"github.com/uninet-dev/campus-hub-api/pkg/storage"
)

type materialStore interface {
	Create(ctx context.Context, material *models.Material) error
	GetByID(ctx context.Context, id string) (*models.Material, error)
	List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error)
	IncrementCounter(ctx context.Context, id string, kind repository.MaterialCounterKind) (*models.MaterialCounters, error)
	Delete(ctx context.Context, id string) error
}

type fileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

const materialCachePrefix = "materials:list:"

// MaterialService manages uploaded study materials, their files and their
// engagement counters.
type MaterialService struct {
	repo         materialStore
	files        fileStore
	signer       *storage.SignedURLSigner
	audit        auditLogger
	cache        *CacheService
	logger       *zap.Logger
	maxFileBytes int64
	allowedMIMEs map[string]struct{}
}

// NewMaterialService constructs the service.
func NewMaterialService(repo materialStore, files fileStore, signer *storage.SignedURLSigner, audit auditLogger, cache *CacheService, logger *zap.Logger, maxFileBytes int64, allowedMIMEs []string) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(allowedMIMEs))
	for _, mime := range allowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(mime))] = struct{}{}
	}
	return &MaterialService{
		repo:         repo,
		files:        files,
		signer:       signer,
		audit:        audit,
		cache:        cache,
		logger:       logger,
		maxFileBytes: maxFileBytes,
		allowedMIMEs: allowed,
	}
}

// Upload validates metadata and files, persists the file streams and stores
// the material record. When fulfilled_request is supplied only the material's
// back-reference is written; the request itself is linked exclusively through
// the fulfillment flow.
func (s *MaterialService) Upload(ctx context.Context, req dto.CreateMaterialRequest, fileHeaders []*multipart.FileHeader, actor *models.JWTClaims) (*models.Material, error) {
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
	if len(fileHeaders) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one file is required")
	}
	for _, fh := range fileHeaders {
		if err := s.checkFileHeader(fh); err != nil {
			return nil, err
		}
	}

	material := &models.Material{
		ID:               uuid.New().String(),
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		Subject:          strings.TrimSpace(req.Subject),
		Campus:           strings.TrimSpace(req.Campus),
		Course:           strings.TrimSpace(req.Course),
		Year:             strings.TrimSpace(req.Year),
		Semester:         strings.TrimSpace(req.Semester),
		UploadedBy:       actor.UserID,
		Keywords:         splitKeywords(req.Keywords),
		FulfilledRequest: req.FulfilledRequest,
	}

	saved := make([]string, 0, len(fileHeaders))
	cleanup := func() {
		for _, rel := range saved {
			if err := s.files.Delete(rel); err != nil {
				s.logger.Warn("failed to remove orphaned upload", zap.String("path", rel), zap.Error(err))
			}
		}
	}
	for _, fh := range fileHeaders {
		src, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("failed to read uploaded file %s", fh.Filename))
		}
		rel := path.Join("materials", material.ID, sanitizeFilename(fh.Filename))
		if _, err := s.files.SaveStream(rel, src); err != nil {
			src.Close()
			cleanup()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store uploaded file")
		}
		src.Close()
		saved = append(saved, rel)
	}
	material.FilePaths = saved

	if err := s.repo.Create(ctx, material); err != nil {
		cleanup()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create material")
	}
	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionMaterialUpload, material.ID)
	return material, nil
}

// Get loads one material.
func (s *MaterialService) Get(ctx context.Context, id string) (*models.Material, error) {
	material, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	return material, nil
}

// List returns materials matching the query.
func (s *MaterialService) List(ctx context.Context, query dto.MaterialQuery) ([]models.Material, bool, error) {
	filter := models.MaterialFilter{
		Campus:  strings.TrimSpace(query.Campus),
		Course:  strings.TrimSpace(query.Course),
		Subject: strings.TrimSpace(query.Subject),
		Search:  strings.TrimSpace(query.Search),
		Limit:   query.Limit,
		Offset:  query.Offset,
	}
	cacheKey := fmt.Sprintf("%s%s|%s|%s|%s|%d|%d", materialCachePrefix,
		filter.Campus, filter.Course, filter.Subject, strings.ToLower(filter.Search), filter.Limit, filter.Offset)
	var cached []models.Material
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, true, nil
	}
	materials, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	if err := s.cache.Set(ctx, cacheKey, materials, 0); err != nil {
		s.logger.Warn("failed to cache material list", zap.Error(err))
	}
	return materials, false, nil
}

// Like registers a like. Counters are increment-only.
func (s *MaterialService) Like(ctx context.Context, id string) (*models.MaterialCounters, error) {
	return s.bump(ctx, id, repository.CounterLike)
}

// Unlike registers a dislike. It never undoes a prior like.
func (s *MaterialService) Unlike(ctx context.Context, id string) (*models.MaterialCounters, error) {
	return s.bump(ctx, id, repository.CounterUnlike)
}

// Download records a download and returns the updated counters together with
// a signed URL for the material's primary file.
func (s *MaterialService) Download(ctx context.Context, id string) (*dto.DownloadResponse, error) {
	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(material.FilePaths) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "material has no stored files")
	}
	counters, err := s.bump(ctx, id, repository.CounterDownload)
	if err != nil {
		return nil, err
	}
	token, _, err := s.signer.Generate(material.ID, material.FilePaths[0])
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &dto.DownloadResponse{
		Counters:    *counters,
		DownloadURL: "/api/v1/materials/file?token=" + token,
	}, nil
}

// SignedURLs produces signed download locations for every file of a material.
func (s *MaterialService) SignedURLs(material *models.Material) []string {
	if material == nil || s.signer == nil {
		return nil
	}
	urls := make([]string, 0, len(material.FilePaths))
	for _, rel := range material.FilePaths {
		token, _, err := s.signer.Generate(material.ID, rel)
		if err != nil {
			s.logger.Warn("failed to sign file url", zap.String("material_id", material.ID), zap.Error(err))
			continue
		}
		urls = append(urls, "/api/v1/materials/file?token="+token)
	}
	return urls
}

// OpenByToken validates a signed token and opens the underlying file.
func (s *MaterialService) OpenByToken(token string) (*os.File, string, error) {
	_, rel, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	file, err := s.files.Open(rel)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file no longer available")
	}
	return file, filepath.Base(rel), nil
}

// Delete removes a material and its stored files. Uploader and moderators
// may delete; any request that pointed at this material keeps its link and
// readers tolerate the gap.
func (s *MaterialService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	material, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if material.UploadedBy != actor.UserID && actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	for _, rel := range material.FilePaths {
		if err := s.files.Delete(rel); err != nil {
			s.logger.Warn("failed to remove material file", zap.String("path", rel), zap.Error(err))
		}
	}
	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionMaterialDelete, id)
	return nil
}

func (s *MaterialService) bump(ctx context.Context, id string, kind repository.MaterialCounterKind) (*models.MaterialCounters, error) {
	counters, err := s.repo.IncrementCounter(ctx, id, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update counters")
	}
	return counters, nil
}

func (s *MaterialService) checkFileHeader(fh *multipart.FileHeader) error {
	if s.maxFileBytes > 0 && fh.Size > s.maxFileBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %s exceeds the maximum size of %d bytes", fh.Filename, s.maxFileBytes))
	}
	if len(s.allowedMIMEs) == 0 {
		return nil
	}
	mime := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if _, ok := s.allowedMIMEs[mime]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported content type %q for file %s", mime, fh.Filename))
	}
	return nil
}

func (s *MaterialService) invalidateListCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, materialCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate material list cache", zap.Error(err))
	}
}

func (s *MaterialService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "material",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "material-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." || base == ".." {
		base = "upload"
	}
	return base
}
