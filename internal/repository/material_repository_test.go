package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/uninet-dev/campus-hub-api/internal/models"
)

func TestMaterialRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO materials")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	material := &models.Material{
		Title:       "Calculus Notes",
		Description: "Scanned notes",
		Subject:     "Mathematics",
		Campus:      "Malabe",
		Course:      "IT",
		Year:        "2",
		Semester:    "1",
		UploadedBy:  "student-42",
		Keywords:    pq.StringArray{"calculus", "notes"},
		FilePaths:   pq.StringArray{"materials/mat-1/notes.pdf"},
	}
	require.NoError(t, repo.Create(context.Background(), material))
	require.NotEmpty(t, material.ID)

	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "subject", "campus", "course", "year", "semester",
		"uploaded_by", "keywords", "file_paths", "like_count", "unlike_count",
		"download_count", "rating", "created_at", "fulfilled_request",
	}).AddRow(material.ID, "Calculus Notes", "Scanned notes", "Mathematics", "Malabe", "IT", "2", "1",
		"student-42", `{calculus,notes}`, `{materials/mat-1/notes.pdf}`, 0, 0, 0, 0.0, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, subject")).
		WithArgs(material.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), material.ID)
	require.NoError(t, err)
	require.Equal(t, material.ID, found.ID)
	require.Zero(t, found.LikeCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryIncrementCounter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	rows := sqlmock.NewRows([]string{"like_count", "unlike_count", "download_count"}).
		AddRow(4, 1, 12)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE materials SET like_count = like_count + 1")).
		WithArgs("mat-1").
		WillReturnRows(rows)

	counters, err := repo.IncrementCounter(context.Background(), "mat-1", CounterLike)
	require.NoError(t, err)
	require.Equal(t, 4, counters.LikeCount)
	require.Equal(t, 12, counters.DownloadCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryIncrementCounterUnknownKind(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	_, err := repo.IncrementCounter(context.Background(), "mat-1", MaterialCounterKind("rating"))
	require.Error(t, err)
}

func TestMaterialRepositoryIncrementCounterMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE materials SET download_count = download_count + 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.IncrementCounter(context.Background(), "missing", CounterDownload)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM materials")).
		WithArgs("mat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "mat-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM materials")).
		WithArgs("mat-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "mat-1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
