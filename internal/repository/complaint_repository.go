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

const complaintColumns = `id, type, title, description, category, status, reported_by, created_at,
       resolved_by, resolved_at, against_material, against_user, against_post`

// ComplaintRepository persists moderation tickets.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository constructs the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a new complaint row.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	if complaint.Status == "" {
		complaint.Status = models.ComplaintStatusPending
	}
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO complaints
	(id, type, title, description, category, status, reported_by, created_at, against_material, against_user, against_post)
	VALUES (:id, :type, :title, :description, :category, :status, :reported_by, :created_at, :against_material, :against_user, :against_post)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// GetByID fetches a complaint by identifier.
func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := fmt.Sprintf("SELECT %s FROM complaints WHERE id = $1", complaintColumns)
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, id); err != nil {
		return nil, err
	}
	return &complaint, nil
}

// List returns complaints matching the filter, newest first.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM complaints", complaintColumns))

	conditions := make([]string, 0, 4)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.ReportedBy != "" {
		args = append(args, filter.ReportedBy)
		conditions = append(conditions, fmt.Sprintf("reported_by = $%d", len(args)))
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

	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, nil
}

// Resolve performs the compare-and-set pending→resolved|rejected transition.
// A complaint already decided stays decided: the loser of a concurrent
// double-resolution sees sql.ErrNoRows.
func (r *ComplaintRepository) Resolve(ctx context.Context, id string, outcome models.ComplaintStatus, resolvedBy string, resolvedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE complaints SET status = $2, resolved_by = $3, resolved_at = $4
	WHERE id = $1 AND status = '%s'`, models.ComplaintStatusPending)
	result, err := r.db.ExecContext(ctx, query, id, outcome, resolvedBy, resolvedAt)
	if err != nil {
		return fmt.Errorf("resolve complaint: %w", err)
	}
	return requireRowsAffected(result)
}
