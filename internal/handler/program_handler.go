package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-program-api/internal/service"
	"github.com/noah-isme/academy-program-api/pkg/response"
)

// ProgramHandler serves the public program catalog.
type ProgramHandler struct {
	catalog *service.ProgramCatalog
}

// NewProgramHandler constructs a program handler.
func NewProgramHandler(catalog *service.ProgramCatalog) *ProgramHandler {
	return &ProgramHandler{catalog: catalog}
}

// List godoc
// @Summary List programs
// @Tags programs
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.Program}
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.List(), nil)
}

// Get godoc
// @Summary Get a program by ID
// @Tags programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope{data=models.Program}
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}
