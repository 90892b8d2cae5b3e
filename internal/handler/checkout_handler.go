package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-program-api/internal/service"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
	"github.com/noah-isme/academy-program-api/pkg/response"
)

// CheckoutHandler opens payment gateway checkout sessions.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler constructs a checkout handler.
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// CreateSession godoc
// @Summary Open a gateway checkout session for one installment
// @Tags checkout
// @Accept json
// @Produce json
// @Param payload body service.CreateCheckoutRequest true "Checkout request"
// @Success 201 {object} response.Envelope{data=service.CheckoutSessionResult}
// @Router /checkout/session [post]
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req service.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	session, err := h.checkout.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}
