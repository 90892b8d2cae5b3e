package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/internal/service"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
	"github.com/noah-isme/academy-program-api/pkg/response"
)

// ApplicationHandler exposes the intake and review workflow.
type ApplicationHandler struct {
	applications *service.ApplicationService
}

// NewApplicationHandler constructs an application handler.
func NewApplicationHandler(applications *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Submit godoc
// @Summary Submit a program application
// @Tags applications
// @Accept json
// @Produce json
// @Param payload body service.SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Envelope{data=models.Application}
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req service.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	application, err := h.applications.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// List godoc
// @Summary List applications
// @Tags applications
// @Produce json
// @Param status query string false "Filter by status"
// @Param program_id query string false "Filter by program"
// @Param search query string false "Search name or email"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Application}
// @Security BearerAuth
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := models.ApplicationFilter{
		Status:    models.ApplicationStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		ProgramID: strings.TrimSpace(c.Query("program_id")),
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      page,
		PageSize:  limit,
	}

	applications, pagination, err := h.applications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Get an application by ID
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope{data=models.Application}
// @Security BearerAuth
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	application, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Approve godoc
// @Summary Approve a pending application
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope{data=models.Application}
// @Security BearerAuth
// @Router /applications/{id}/approve [put]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	application, err := h.applications.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Reject godoc
// @Summary Reject a pending application
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope{data=models.Application}
// @Security BearerAuth
// @Router /applications/{id}/reject [put]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	application, err := h.applications.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}
