package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	"github.com/uninet-dev/campus-hub-api/internal/repository"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
	"github.com/uninet-dev/campus-hub-api/pkg/storage"
)

type mockMaterialRepo struct {
	materials    map[string]*models.Material
	counters     models.MaterialCounters
	counterKinds []repository.MaterialCounterKind
	incrementErr error
	deleteErr    error
}

func newMockMaterialRepo() *mockMaterialRepo {
	return &mockMaterialRepo{materials: make(map[string]*models.Material)}
}

func (m *mockMaterialRepo) Create(ctx context.Context, material *models.Material) error {
	m.materials[material.ID] = material
	return nil
}

func (m *mockMaterialRepo) GetByID(ctx context.Context, id string) (*models.Material, error) {
	material, ok := m.materials[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *material
	return &copied, nil
}

func (m *mockMaterialRepo) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error) {
	result := make([]models.Material, 0, len(m.materials))
	for _, material := range m.materials {
		result = append(result, *material)
	}
	return result, nil
}

func (m *mockMaterialRepo) IncrementCounter(ctx context.Context, id string, kind repository.MaterialCounterKind) (*models.MaterialCounters, error) {
	if m.incrementErr != nil {
		return nil, m.incrementErr
	}
	if _, ok := m.materials[id]; !ok {
		return nil, sql.ErrNoRows
	}
	m.counterKinds = append(m.counterKinds, kind)
	switch kind {
	case repository.CounterLike:
		m.counters.LikeCount++
	case repository.CounterUnlike:
		m.counters.UnlikeCount++
	case repository.CounterDownload:
		m.counters.DownloadCount++
	}
	counters := m.counters
	return &counters, nil
}

func (m *mockMaterialRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.materials[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.materials, id)
	return nil
}

type mockFileStore struct {
	dir     string
	saved   []string
	deleted []string
	saveErr error
}

func newMockFileStore(t *testing.T) *mockFileStore {
	return &mockFileStore{dir: t.TempDir()}
}

func (m *mockFileStore) SaveStream(filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	full := filepath.Join(m.dir, filepath.FromSlash(filename))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	m.saved = append(m.saved, filename)
	return full, nil
}

func (m *mockFileStore) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(m.dir, filepath.FromSlash(filename)))
}

func (m *mockFileStore) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return os.Remove(filepath.Join(m.dir, filepath.FromSlash(filename)))
}

func newTestMaterialService(t *testing.T, repo *mockMaterialRepo, files *mockFileStore) *MaterialService {
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewMaterialService(repo, files, signer, &mockAudit{}, nil, zap.NewNop(), 1<<20, []string{"application/pdf", "text/plain"})
}

// buildFileHeaders assembles real multipart file headers so Upload exercises
// the same Open path gin hands it.
func buildFileHeaders(t *testing.T, contentType string, names ...string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range names {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="files"; filename="` + name + `"`}
		header["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("file body for " + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&body, writer.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"]
}

func validUpload() dto.CreateMaterialRequest {
	return dto.CreateMaterialRequest{
		Title:       "Calculus II summary",
		Description: "Condensed notes for the final",
		Subject:     "Calculus II",
		Campus:      "north",
		Course:      "mathematics",
		Year:        "2025",
		Semester:    "1",
		Keywords:    "calculus, integrals , ",
	}
}

func TestMaterialServiceUpload(t *testing.T) {
	repo := newMockMaterialRepo()
	files := newMockFileStore(t)
	svc := newTestMaterialService(t, repo, files)

	headers := buildFileHeaders(t, "application/pdf", "notes.pdf", "extra sheet.pdf")
	material, err := svc.Upload(context.Background(), validUpload(), headers, studentClaims("uploader"))
	require.NoError(t, err)
	assert.NotEmpty(t, material.ID)
	assert.Equal(t, "uploader", material.UploadedBy)
	assert.Equal(t, []string{"calculus", "integrals"}, []string(material.Keywords))
	require.Len(t, material.FilePaths, 2)
	assert.Contains(t, material.FilePaths[1], "extra_sheet.pdf")
	assert.Len(t, files.saved, 2)
	assert.Contains(t, repo.materials, material.ID)
}

func TestMaterialServiceUploadRequiresFiles(t *testing.T) {
	svc := newTestMaterialService(t, newMockMaterialRepo(), newMockFileStore(t))

	_, err := svc.Upload(context.Background(), validUpload(), nil, studentClaims("uploader"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMaterialServiceUploadRejectsContentType(t *testing.T) {
	svc := newTestMaterialService(t, newMockMaterialRepo(), newMockFileStore(t))

	headers := buildFileHeaders(t, "application/x-msdownload", "tool.exe")
	_, err := svc.Upload(context.Background(), validUpload(), headers, studentClaims("uploader"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMaterialServiceLikeAndUnlikeAccumulate(t *testing.T) {
	repo := newMockMaterialRepo()
	repo.materials["mat-1"] = &models.Material{ID: "mat-1"}
	svc := newTestMaterialService(t, repo, newMockFileStore(t))

	counters, err := svc.Like(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counters.LikeCount)

	counters, err = svc.Unlike(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counters.LikeCount)
	assert.Equal(t, 1, counters.UnlikeCount)

	counters, err = svc.Like(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, 2, counters.LikeCount)
	assert.Equal(t, 1, counters.UnlikeCount)
}

func TestMaterialServiceLikeNotFound(t *testing.T) {
	svc := newTestMaterialService(t, newMockMaterialRepo(), newMockFileStore(t))

	_, err := svc.Like(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestMaterialServiceDownload(t *testing.T) {
	repo := newMockMaterialRepo()
	repo.materials["mat-1"] = &models.Material{ID: "mat-1", FilePaths: []string{"materials/mat-1/notes.pdf"}}
	svc := newTestMaterialService(t, repo, newMockFileStore(t))

	res, err := svc.Download(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counters.DownloadCount)
	assert.Contains(t, res.DownloadURL, "/materials/file?token=")
}

func TestMaterialServiceDownloadWithoutFiles(t *testing.T) {
	repo := newMockMaterialRepo()
	repo.materials["mat-1"] = &models.Material{ID: "mat-1"}
	svc := newTestMaterialService(t, repo, newMockFileStore(t))

	_, err := svc.Download(context.Background(), "mat-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestMaterialServiceOpenByToken(t *testing.T) {
	repo := newMockMaterialRepo()
	files := newMockFileStore(t)
	svc := newTestMaterialService(t, repo, files)

	_, err := files.SaveStream("materials/mat-1/notes.pdf", bytes.NewReader([]byte("pdf body")))
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	token, _, err := signer.Generate("mat-1", "materials/mat-1/notes.pdf")
	require.NoError(t, err)

	file, name, err := svc.OpenByToken(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "notes.pdf", name)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "pdf body", string(body))
}

func TestMaterialServiceOpenByTokenRejectsForged(t *testing.T) {
	svc := newTestMaterialService(t, newMockMaterialRepo(), newMockFileStore(t))

	_, _, err := svc.OpenByToken("mat-1.12345.cGF0aA.not-a-signature")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestMaterialServiceDeleteOwnerAndFiles(t *testing.T) {
	repo := newMockMaterialRepo()
	files := newMockFileStore(t)
	_, err := files.SaveStream("materials/mat-1/notes.pdf", bytes.NewReader([]byte("pdf body")))
	require.NoError(t, err)
	repo.materials["mat-1"] = &models.Material{ID: "mat-1", UploadedBy: "uploader", FilePaths: []string{"materials/mat-1/notes.pdf"}}
	svc := newTestMaterialService(t, repo, files)

	require.NoError(t, svc.Delete(context.Background(), "mat-1", studentClaims("uploader")))
	assert.Empty(t, repo.materials)
	assert.Equal(t, []string{"materials/mat-1/notes.pdf"}, files.deleted)
}

func TestMaterialServiceDeleteForbiddenForStrangers(t *testing.T) {
	repo := newMockMaterialRepo()
	repo.materials["mat-1"] = &models.Material{ID: "mat-1", UploadedBy: "uploader"}
	svc := newTestMaterialService(t, repo, newMockFileStore(t))

	err := svc.Delete(context.Background(), "mat-1", studentClaims("stranger"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestMaterialServiceDeleteAllowsModerator(t *testing.T) {
	repo := newMockMaterialRepo()
	repo.materials["mat-1"] = &models.Material{ID: "mat-1", UploadedBy: "uploader"}
	svc := newTestMaterialService(t, repo, newMockFileStore(t))

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(context.Background(), "mat-1", admin))
	assert.Empty(t, repo.materials)
}
