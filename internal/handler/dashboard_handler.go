package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-program-api/internal/service"
	"github.com/noah-isme/academy-program-api/pkg/response"
)

// DashboardHandler serves the cached admin summary.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Admin dashboard counters
// @Tags dashboard
// @Produce json
// @Success 200 {object} response.Envelope{data=service.DashboardSummary}
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
