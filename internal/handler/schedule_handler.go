package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-program-api/internal/service"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
	"github.com/noah-isme/academy-program-api/pkg/response"
)

// ScheduleHandler exposes slot generation, slot mutations, and the
// progress views derived from the grid.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	metrics   *service.MetricsService
}

// NewScheduleHandler constructs a schedule handler. metrics may be nil.
func NewScheduleHandler(schedules *service.ScheduleService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, metrics: metrics}
}

// Generate godoc
// @Summary Generate the full class slot grid for an enrollment
// @Tags schedules
// @Accept json
// @Produce json
// @Param payload body service.GenerateScheduleRequest true "Weekly pattern"
// @Success 201 {object} response.Envelope{data=service.GenerateScheduleResult}
// @Security BearerAuth
// @Router /schedules/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req service.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.schedules.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSlotsGenerated(result.SlotsCreated)
	}
	response.Created(c, result)
}

// UpsertSlot godoc
// @Summary Create or reschedule a single class slot
// @Tags schedules
// @Accept json
// @Produce json
// @Param payload body service.UpsertSlotRequest true "Slot"
// @Success 200 {object} response.Envelope{data=models.ClassSlot}
// @Security BearerAuth
// @Router /schedules/slot [put]
func (h *ScheduleHandler) UpsertSlot(c *gin.Context) {
	var req service.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	slot, err := h.schedules.UpsertSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// CompleteSlot godoc
// @Summary Mark a class slot as completed
// @Tags schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope{data=models.ClassSlot}
// @Security BearerAuth
// @Router /schedules/{id}/complete [put]
func (h *ScheduleHandler) CompleteSlot(c *gin.Context) {
	slot, err := h.schedules.CompleteSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// ListSlots godoc
// @Summary List class slots for a student and program
// @Tags schedules
// @Produce json
// @Param id path string true "Student ID"
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope{data=[]models.ClassSlot}
// @Security BearerAuth
// @Router /students/{id}/programs/{programId}/slots [get]
func (h *ScheduleHandler) ListSlots(c *gin.Context) {
	slots, err := h.schedules.ListSlots(c.Request.Context(), c.Param("id"), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Progress godoc
// @Summary Progress snapshot with per-year stats and the active week
// @Tags schedules
// @Produce json
// @Param id path string true "Student ID"
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope{data=models.ProgressSnapshot}
// @Security BearerAuth
// @Router /students/{id}/programs/{programId}/progress [get]
func (h *ScheduleHandler) Progress(c *gin.Context) {
	snapshot, err := h.schedules.Progress(c.Request.Context(), c.Param("id"), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
