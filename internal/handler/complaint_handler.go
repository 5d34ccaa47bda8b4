package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
	"github.com/uninet-dev/campus-hub-api/pkg/response"
)

type complaintService interface {
	Create(ctx context.Context, req dto.CreateComplaintRequest, actor *models.JWTClaims) (*models.Complaint, error)
	Get(ctx context.Context, id string) (*models.Complaint, error)
	List(ctx context.Context, query dto.ComplaintQuery) ([]models.Complaint, error)
	Resolve(ctx context.Context, id string, outcome models.ComplaintStatus, actor *models.JWTClaims) (*models.Complaint, error)
}

type complaintDetailService interface {
	FetchDetail(ctx context.Context, complaintID string) (*models.ComplaintDetail, error)
	ExportComplaints(ctx context.Context, query dto.ComplaintExportQuery, actor *models.JWTClaims) ([]byte, string, error)
}

// ComplaintHandler exposes REST endpoints for the moderation queue.
type ComplaintHandler struct {
	service    complaintService
	moderation complaintDetailService
}

// NewComplaintHandler constructs the handler.
func NewComplaintHandler(service complaintService, moderation complaintDetailService) *ComplaintHandler {
	return &ComplaintHandler{service: service, moderation: moderation}
}

// Create godoc
// @Summary File a complaint against a material, user or forum post
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body dto.CreateComplaintRequest true "Complaint payload"
// @Success 201 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	var req dto.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid complaint payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	complaint, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, complaint)
}

// List godoc
// @Summary List complaints
// @Tags Complaints
// @Produce json
// @Param type query string false "Complaint type"
// @Param status query string false "Complaint status"
// @Param category query string false "Category filter"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	complaints, err := h.service.List(c.Request.Context(), complaintQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaints, nil)
}

// Get godoc
// @Summary Get one complaint
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	complaint, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}

// Detail godoc
// @Summary Resolve the complaint target into its detail view
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id}/detail [get]
func (h *ComplaintHandler) Detail(c *gin.Context) {
	detail, err := h.moderation.FetchDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Resolve godoc
// @Summary Close a pending complaint as resolved or rejected
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.ResolveComplaintRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id} [put]
func (h *ComplaintHandler) Resolve(c *gin.Context) {
	var req dto.ResolveComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid complaint payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	complaint, err := h.service.Resolve(c.Request.Context(), c.Param("id"), req.Status, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}

// Export godoc
// @Summary Export the complaint queue as CSV or PDF
// @Tags Complaints
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /complaints/export [get]
func (h *ComplaintHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ComplaintExportQuery{
		Query:  complaintQueryFromContext(c),
		Format: strings.ToLower(c.DefaultQuery("format", "csv")),
	}
	payload, contentType, err := h.moderation.ExportComplaints(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "complaints-" + time.Now().UTC().Format("20060102-150405")
	if query.Format == "pdf" {
		filename += ".pdf"
	} else {
		filename += ".csv"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

func complaintQueryFromContext(c *gin.Context) dto.ComplaintQuery {
	return dto.ComplaintQuery{
		Type:     models.ComplaintType(strings.ToLower(c.Query("type"))),
		Status:   models.ComplaintStatus(strings.ToLower(c.Query("status"))),
		Category: c.Query("category"),
		Limit:    queryInt(c, "limit", 0),
		Offset:   queryInt(c, "offset", 0),
	}
}
