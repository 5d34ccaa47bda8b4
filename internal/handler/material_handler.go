package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/middleware"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
	"github.com/uninet-dev/campus-hub-api/pkg/response"
)

type materialService interface {
	Upload(ctx context.Context, req dto.CreateMaterialRequest, fileHeaders []*multipart.FileHeader, actor *models.JWTClaims) (*models.Material, error)
	Get(ctx context.Context, id string) (*models.Material, error)
	List(ctx context.Context, query dto.MaterialQuery) ([]models.Material, bool, error)
	Like(ctx context.Context, id string) (*models.MaterialCounters, error)
	Unlike(ctx context.Context, id string) (*models.MaterialCounters, error)
	Download(ctx context.Context, id string) (*dto.DownloadResponse, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	SignedURLs(material *models.Material) []string
	OpenByToken(token string) (*os.File, string, error)
}

// MaterialHandler exposes REST endpoints for study materials.
type MaterialHandler struct {
	service materialService
}

// NewMaterialHandler constructs the handler.
func NewMaterialHandler(service materialService) *MaterialHandler {
	return &MaterialHandler{service: service}
}

// Upload godoc
// @Summary Upload a study material with files
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param files formData file true "Material files"
// @Success 201 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid material payload"))
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart form required"))
		return
	}
	material, err := h.service.Upload(c.Request.Context(), req, form.File["files"], claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.MaterialResponse{Material: *material, DownloadURLs: h.service.SignedURLs(material)})
}

// List godoc
// @Summary List study materials
// @Tags Materials
// @Produce json
// @Param campus query string false "Campus filter"
// @Param course query string false "Course filter"
// @Param subject query string false "Subject filter"
// @Param search query string false "Free text search"
// @Success 200 {object} response.Envelope
// @Router /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	query := dto.MaterialQuery{
		Campus:  c.Query("campus"),
		Course:  c.Query("course"),
		Subject: c.Query("subject"),
		Search:  c.Query("search"),
		Limit:   queryInt(c, "limit", 0),
		Offset:  queryInt(c, "offset", 0),
	}
	materials, cached, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, materials, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get one study material
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id} [get]
func (h *MaterialHandler) Get(c *gin.Context) {
	material, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MaterialResponse{Material: *material, DownloadURLs: h.service.SignedURLs(material)}, nil)
}

// Like godoc
// @Summary Like a material
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id}/like [post]
func (h *MaterialHandler) Like(c *gin.Context) {
	counters, err := h.service.Like(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counters, nil)
}

// Unlike godoc
// @Summary Dislike a material
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id}/unlike [post]
func (h *MaterialHandler) Unlike(c *gin.Context) {
	counters, err := h.service.Unlike(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counters, nil)
}

// Download godoc
// @Summary Record a download and obtain a signed file URL
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id}/download [post]
func (h *MaterialHandler) Download(c *gin.Context) {
	res, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// File godoc
// @Summary Stream a material file referenced by a signed token
// @Tags Materials
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /materials/file [get]
func (h *MaterialHandler) File(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}
	file, name, err := h.service.OpenByToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}

// Delete godoc
// @Summary Delete a material and its files
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
