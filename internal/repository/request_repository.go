package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uninet-dev/campus-hub-api/internal/models"
)

const requestColumns = `id, title, description, subject, campus, course, year, semester, urgency, status,
       requested_by, created_at, expires_at, fulfilled_by, fulfilled_material, fulfilled_at`

// RequestRepository persists material requests and their lifecycle state.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requests
	(id, title, description, subject, campus, course, year, semester, urgency, status, requested_by, created_at, expires_at)
	VALUES (:id, :title, :description, :subject, :campus, :course, :year, :semester, :urgency, :status, :requested_by, :created_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE id = $1", requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 7)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM requests", requestColumns))

	conditions := make([]string, 0, 6)
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
	if filter.Urgency != "" {
		args = append(args, filter.Urgency)
		conditions = append(conditions, fmt.Sprintf("urgency = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
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

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// UpdatePendingFields mutates the owner-editable columns. The status guard
// keeps edits from landing on fulfilled or expired rows.
func (r *RequestRepository) UpdatePendingFields(ctx context.Context, request *models.Request) error {
	query := fmt.Sprintf(`UPDATE requests SET title = :title, description = :description, urgency = :urgency
	WHERE id = :id AND status = '%s'`, models.RequestStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, request)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return requireRowsAffected(result)
}

// DeletePending removes a request only while it is still pending.
func (r *RequestRepository) DeletePending(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM requests WHERE id = $1 AND status = '%s'", models.RequestStatusPending)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return requireRowsAffected(result)
}

// MarkExpired transitions a pending request past its deadline to expired.
// Idempotent: already expired or fulfilled rows are untouched.
func (r *RequestRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	query := fmt.Sprintf(`UPDATE requests SET status = '%s'
	WHERE id = $1 AND status = '%s' AND expires_at IS NOT NULL AND expires_at <= $2`,
		models.RequestStatusExpired, models.RequestStatusPending)
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("expire request: %w", err)
	}
	return nil
}

// ExpireDue sweeps all pending requests whose deadline has passed and
// returns how many rows transitioned.
func (r *RequestRepository) ExpireDue(ctx context.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`UPDATE requests SET status = '%s'
	WHERE id IN (
		SELECT id FROM requests
		WHERE status = '%s' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT %d
	)`, models.RequestStatusExpired, models.RequestStatusPending, limit)
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire due requests: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check expired rows: %w", err)
	}
	return rows, nil
}

// ErrMaterialGone reports that the material row disappeared before the
// fulfillment back-reference could be written. Distinct from the CAS loss,
// which surfaces as sql.ErrNoRows.
var ErrMaterialGone = errors.New("material no longer exists")

// FulfillParams groups the columns written by the fulfillment transition.
type FulfillParams struct {
	ID                string
	FulfilledBy       string
	FulfilledMaterial string
	FulfilledAt       time.Time
}

// Fulfill performs the atomic pending→fulfilled transition and cross-links
// the material's back-reference in one transaction. The conditional update
// is the compare-and-set that makes concurrent fulfillment first-writer-wins:
// the loser sees sql.ErrNoRows.
func (r *RequestRepository) Fulfill(ctx context.Context, params FulfillParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fulfill tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`UPDATE requests
	SET status = '%s', fulfilled_by = $2, fulfilled_material = $3, fulfilled_at = $4
	WHERE id = $1 AND status = '%s'`, models.RequestStatusFulfilled, models.RequestStatusPending)
	result, err := tx.ExecContext(ctx, query, params.ID, params.FulfilledBy, params.FulfilledMaterial, params.FulfilledAt)
	if err != nil {
		return fmt.Errorf("fulfill request: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}

	const linkQuery = `UPDATE materials SET fulfilled_request = $2 WHERE id = $1`
	linkResult, err := tx.ExecContext(ctx, linkQuery, params.FulfilledMaterial, params.ID)
	if err != nil {
		return fmt.Errorf("link material to request: %w", err)
	}
	if err := requireRowsAffected(linkResult); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMaterialGone
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fulfill tx: %w", err)
	}
	return nil
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
