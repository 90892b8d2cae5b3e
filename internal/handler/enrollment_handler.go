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

// EnrollmentHandler exposes the enrollment lifecycle and statements.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	statements  *service.StatementService
}

// NewEnrollmentHandler constructs an enrollment handler. statements may
// be nil when statement downloads are disabled.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, statements *service.StatementService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, statements: statements}
}

// List godoc
// @Summary List enrollments with live balances
// @Tags enrollments
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param program_id query string false "Filter by program"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.EnrollmentDetail}
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := models.EnrollmentFilter{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		ProgramID: strings.TrimSpace(c.Query("program_id")),
		Status:    models.EnrollmentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:      page,
		PageSize:  limit,
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get an enrollment by ID
// @Tags enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=models.EnrollmentDetail}
// @Security BearerAuth
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Create godoc
// @Summary Create an enrollment directly
// @Tags enrollments
// @Accept json
// @Produce json
// @Param payload body service.CreateEnrollmentRequest true "Enrollment"
// @Success 201 {object} response.Envelope{data=models.Enrollment}
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	enrollment, err := h.enrollments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Withdraw godoc
// @Summary Withdraw an active enrollment
// @Tags enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=models.Enrollment}
// @Security BearerAuth
// @Router /enrollments/{id}/withdraw [put]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	enrollment, err := h.enrollments.Withdraw(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Complete godoc
// @Summary Mark an active enrollment as completed
// @Tags enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=models.Enrollment}
// @Security BearerAuth
// @Router /enrollments/{id}/complete [put]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	enrollment, err := h.enrollments.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Statement godoc
// @Summary Download a payment statement for an enrollment
// @Tags enrollments
// @Produce text/csv
// @Param id path string true "Enrollment ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /enrollments/{id}/statement [get]
func (h *EnrollmentHandler) Statement(c *gin.Context) {
	if h.statements == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "statement downloads are not enabled"))
		return
	}

	file, err := h.statements.Render(c.Request.Context(), c.Param("id"), strings.ToLower(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
