package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uninet-dev/campus-hub-api/internal/models"
)

const materialColumns = `id, title, description, subject, campus, course, year, semester, uploaded_by,
       keywords, file_paths, like_count, unlike_count, download_count, rating, created_at, fulfilled_request`

// MaterialCounterKind selects which engagement counter to bump.
type MaterialCounterKind string

const (
	CounterLike     MaterialCounterKind = "like_count"
	CounterUnlike   MaterialCounterKind = "unlike_count"
	CounterDownload MaterialCounterKind = "download_count"
)

// MaterialRepository persists uploaded study materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// Create inserts a new material row with counters at zero.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.CreatedAt.IsZero() {
		material.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO materials
	(id, title, description, subject, campus, course, year, semester, uploaded_by, keywords, file_paths,
	 like_count, unlike_count, download_count, rating, created_at, fulfilled_request)
	VALUES (:id, :title, :description, :subject, :campus, :course, :year, :semester, :uploaded_by, :keywords, :file_paths,
	 0, 0, 0, :rating, :created_at, :fulfilled_request)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// GetByID fetches a material by identifier.
func (r *MaterialRepository) GetByID(ctx context.Context, id string) (*models.Material, error) {
	query := fmt.Sprintf("SELECT %s FROM materials WHERE id = $1", materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// List returns materials matching the filter, newest first.
func (r *MaterialRepository) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM materials", materialColumns))

	conditions := make([]string, 0, 5)
	if filter.Campus != "" {
		args = append(args, filter.Campus)
		conditions = append(conditions, fmt.Sprintf("campus = $%d", len(args)))
	}
	if filter.Course != "" {
		args = append(args, filter.Course)
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)))
	}
	if filter.UploadedBy != "" {
		args = append(args, filter.UploadedBy)
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d OR LOWER(subject) LIKE $%d)", idx, idx, idx))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// IncrementCounter bumps one engagement counter atomically and returns the
// updated counter triple. Counters are increment-only in this subsystem.
func (r *MaterialRepository) IncrementCounter(ctx context.Context, id string, kind MaterialCounterKind) (*models.MaterialCounters, error) {
	switch kind {
	case CounterLike, CounterUnlike, CounterDownload:
	default:
		return nil, fmt.Errorf("unknown counter kind: %s", kind)
	}
	query := fmt.Sprintf(`UPDATE materials SET %s = %s + 1 WHERE id = $1
	RETURNING like_count, unlike_count, download_count`, kind, kind)
	var counters models.MaterialCounters
	row := r.db.QueryRowxContext(ctx, query, id)
	if err := row.Scan(&counters.LikeCount, &counters.UnlikeCount, &counters.DownloadCount); err != nil {
		return nil, err
	}
	return &counters, nil
}

// Delete removes a material row. A fulfilled request keeps its now dangling
// material reference; readers tolerate it.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return requireRowsAffected(result)
}

// CountByUploader returns how many materials a user has published.
func (r *MaterialRepository) CountByUploader(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM materials WHERE uploaded_by = $1`, userID); err != nil {
		return 0, fmt.Errorf("count materials by uploader: %w", err)
	}
	return count, nil
}
