package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uninet-dev/campus-hub-api/internal/dto"
	"github.com/uninet-dev/campus-hub-api/internal/middleware"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
	"github.com/uninet-dev/campus-hub-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, req dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error)
	Get(ctx context.Context, id string) (*models.Request, error)
	Edit(ctx context.Context, id string, patch dto.UpdateRequestRequest, actor *models.JWTClaims) (*models.Request, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	List(ctx context.Context, query dto.RequestQuery) ([]models.Request, bool, error)
}

type requestFulfiller interface {
	Fulfill(ctx context.Context, requestID, materialID string, actor *models.JWTClaims) (*models.Request, error)
}

// RequestHandler exposes REST endpoints for material requests.
type RequestHandler struct {
	service   requestService
	fulfiller requestFulfiller
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService, fulfiller requestFulfiller) *RequestHandler {
	return &RequestHandler{service: service, fulfiller: fulfiller}
}

// Create godoc
// @Summary Post a new material request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List material requests
// @Tags Requests
// @Produce json
// @Param campus query string false "Campus filter"
// @Param course query string false "Course filter"
// @Param subject query string false "Subject filter"
// @Param urgency query string false "Urgency filter"
// @Param status query string false "Status filter"
// @Param search query string false "Free text search"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	query := dto.RequestQuery{
		Campus:  c.Query("campus"),
		Course:  c.Query("course"),
		Subject: c.Query("subject"),
		Search:  c.Query("search"),
		Urgency: models.RequestUrgency(strings.ToLower(c.Query("urgency"))),
		Status:  models.RequestStatus(strings.ToLower(c.Query("status"))),
		Limit:   queryInt(c, "limit", 0),
		Offset:  queryInt(c, "offset", 0),
	}
	requests, cached, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, requests, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get one material request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Update godoc
// @Summary Edit a pending material request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateRequestRequest true "Editable fields"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [put]
func (h *RequestHandler) Update(c *gin.Context) {
	var patch dto.UpdateRequestRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Edit(c.Request.Context(), c.Param("id"), patch, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Delete a pending material request
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204
// @Router /requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
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

// Fulfill godoc
// @Summary Fulfill a pending request with an uploaded material
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.FulfillRequestRequest true "Material link"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/fulfill [put]
func (h *RequestHandler) Fulfill(c *gin.Context) {
	var req dto.FulfillRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.fulfiller.Fulfill(c.Request.Context(), c.Param("id"), req.FulfilledMaterial, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
