package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/internal/service"
	"github.com/noah-isme/academy-program-api/pkg/response"
)

// StudentHandler exposes student read endpoints.
type StudentHandler struct {
	students *service.StudentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags students
// @Produce json
// @Param search query string false "Search name, email or student number"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Student}
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := models.StudentFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   models.StudentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:     page,
		PageSize: limit,
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get a student by ID
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=models.Student}
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
