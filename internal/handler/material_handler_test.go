package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/middleware"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	"github.com/uninet-dev/campus-hub-api/internal/repository"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
)

type materialServiceMock struct {
	material  *models.Material
	counters  *models.MaterialCounters
	download  *dto.DownloadResponse
	file      *os.File
	fileName  string
	err       error
	lastFiles int
}

func (m *materialServiceMock) Upload(ctx context.Context, req dto.CreateMaterialRequest, fileHeaders []*multipart.FileHeader, actor *models.JWTClaims) (*models.Material, error) {
	m.lastFiles = len(fileHeaders)
	return m.material, m.err
}

func (m *materialServiceMock) Get(ctx context.Context, id string) (*models.Material, error) {
	return m.material, m.err
}

func (m *materialServiceMock) List(ctx context.Context, query dto.MaterialQuery) ([]models.Material, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	if m.material == nil {
		return nil, false, nil
	}
	return []models.Material{*m.material}, false, nil
}

func (m *materialServiceMock) Like(ctx context.Context, id string) (*models.MaterialCounters, error) {
	return m.counters, m.err
}

func (m *materialServiceMock) Unlike(ctx context.Context, id string) (*models.MaterialCounters, error) {
	return m.counters, m.err
}

func (m *materialServiceMock) Download(ctx context.Context, id string) (*dto.DownloadResponse, error) {
	return m.download, m.err
}

func (m *materialServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	return m.err
}

func (m *materialServiceMock) SignedURLs(material *models.Material) []string {
	return []string{"/api/v1/materials/file?token=signed"}
}

func (m *materialServiceMock) OpenByToken(token string) (*os.File, string, error) {
	return m.file, m.fileName, m.err
}

func multipartUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("title", "Calculus II summary"))
	part, err := writer.CreateFormFile("files", "notes.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("pdf body"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestMaterialHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &materialServiceMock{material: &models.Material{ID: "mat-1"}}
	handler := NewMaterialHandler(mockSvc)

	body, contentType := multipartUpload(t)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/materials", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "uploader", Role: models.RoleStudent})

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, mockSvc.lastFiles)
	assert.Contains(t, w.Body.String(), "download_urls")
}

func TestMaterialHandlerUploadRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMaterialHandler(&materialServiceMock{})

	c, w := newGinContext(http.MethodPost, "/materials", nil)
	handler.Upload(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMaterialHandlerLike(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &materialServiceMock{counters: &models.MaterialCounters{LikeCount: 5}}
	handler := NewMaterialHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/materials/mat-1/like", nil)
	c.Params = gin.Params{{Key: "id", Value: "mat-1"}}
	handler.Like(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"like_count":5`)
}

func TestMaterialHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &materialServiceMock{download: &dto.DownloadResponse{
		Counters:    models.MaterialCounters{DownloadCount: 3},
		DownloadURL: "/api/v1/materials/file?token=signed",
	}}
	handler := NewMaterialHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/materials/mat-1/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "mat-1"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token=signed")
}

func TestMaterialDownloadWithoutAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	userRepo := repository.NewUserRepository(sqlx.NewDb(db, "sqlmock"))

	mockSvc := &materialServiceMock{download: &dto.DownloadResponse{
		Counters:    models.MaterialCounters{DownloadCount: 7},
		DownloadURL: "/api/v1/materials/file?token=signed",
	}}
	handler := NewMaterialHandler(mockSvc)

	r := gin.New()
	r.POST("/api/v1/materials/:id/download",
		middleware.OptionalJWT(nil),
		middleware.Audit(userRepo, models.AuditActionMaterialDownload, "material"),
		handler.Download)

	dbMock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/materials/mat-1/download", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token=signed")
	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestMaterialHandlerFileStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp(t.TempDir(), "notes*.pdf")
	require.NoError(t, err)
	_, _ = file.WriteString("pdf body")
	_, _ = file.Seek(0, 0)

	mockSvc := &materialServiceMock{file: file, fileName: "notes.pdf"}
	handler := NewMaterialHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/materials/file?token=abc", nil)
	handler.File(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf body", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.pdf")
}

func TestMaterialHandlerFileMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMaterialHandler(&materialServiceMock{})

	c, w := newGinContext(http.MethodGet, "/materials/file", nil)
	handler.File(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaterialHandlerDeleteForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &materialServiceMock{err: appErrors.ErrForbidden}
	handler := NewMaterialHandler(mockSvc)

	c, w := authedContext(http.MethodDelete, "/materials/mat-1", nil, &models.JWTClaims{UserID: "stranger"})
	c.Params = gin.Params{{Key: "id", Value: "mat-1"}}
	handler.Delete(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}
