package handler

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/internal/service"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
	"github.com/noah-isme/academy-program-api/pkg/response"
	"github.com/noah-isme/academy-program-api/pkg/storage"
)

// gatewayNotification is the settlement callback payload posted by the
// payment gateway. Custom fields round-trip the checkout metadata so
// the webhook can attribute the charge without local session state.
type gatewayNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	FraudStatus       string `json:"fraud_status"`
	StudentID         string `json:"custom_field1"`
	ProgramID         string `json:"custom_field2"`
	PlanType          string `json:"custom_field3"`
}

// PaymentHandler exposes the payment ledger: the gateway webhook,
// manual submissions with proof upload, and the verification workflow.
type PaymentHandler struct {
	payments  *service.PaymentService
	proofs    *storage.ProofStore
	signer    *storage.SignedURLSigner
	metrics   *service.MetricsService
	serverKey string
}

// NewPaymentHandler constructs a payment handler. metrics may be nil.
func NewPaymentHandler(
	payments *service.PaymentService,
	proofs *storage.ProofStore,
	signer *storage.SignedURLSigner,
	metrics *service.MetricsService,
	serverKey string,
) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		proofs:    proofs,
		signer:    signer,
		metrics:   metrics,
		serverKey: serverKey,
	}
}

// Webhook godoc
// @Summary Payment gateway settlement callback
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var notif gatewayNotification
	if err := c.ShouldBindJSON(&notif); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if h.serverKey != "" && !h.validSignature(notif) {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid webhook signature"))
		return
	}

	// Only settled charges touch the ledger. Everything else is
	// acknowledged so the gateway stops retrying.
	status := strings.ToLower(notif.TransactionStatus)
	if status != "settlement" && !(status == "capture" && notif.FraudStatus != "deny") {
		response.JSON(c, http.StatusOK, gin.H{"status": "ignored", "transaction_status": notif.TransactionStatus}, nil)
		return
	}

	amount, err := parseGrossAmount(notif.GrossAmount)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid gross amount"))
		return
	}

	payment, err := h.payments.RecordGatewayPayment(c.Request.Context(), service.RecordGatewayPaymentRequest{
		StudentID:   notif.StudentID,
		ProgramID:   notif.ProgramID,
		PlanType:    models.PlanType(strings.ToUpper(notif.PlanType)),
		AmountCents: amount,
		GatewayRef:  notif.OrderID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordMetric(payment)
	response.JSON(c, http.StatusOK, payment, nil)
}

// SubmitManual godoc
// @Summary Submit a manual payment with proof of transfer
// @Tags payments
// @Accept multipart/form-data
// @Produce json
// @Param student_id formData string true "Student ID"
// @Param program_id formData string true "Program ID"
// @Param plan_type formData string true "Plan type"
// @Param amount_cents formData int true "Amount in cents"
// @Param academic_year formData int true "Academic year"
// @Param proof formData file true "Proof document"
// @Success 201 {object} response.Envelope{data=models.Payment}
// @Router /payments/manual [post]
func (h *PaymentHandler) SubmitManual(c *gin.Context) {
	amount, err := strconv.ParseInt(c.PostForm("amount_cents"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid amount_cents"))
		return
	}
	year, err := strconv.Atoi(c.DefaultPostForm("academic_year", "1"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid academic_year"))
		return
	}

	var dueDate *time.Time
	if raw := strings.TrimSpace(c.PostForm("due_date")); raw != "" {
		parsed, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "due_date must be RFC3339"))
			return
		}
		dueDate = &parsed
	}

	file, header, err := c.Request.FormFile("proof")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "proof file is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	if err := h.proofs.Validate(header.Header.Get("Content-Type"), header.Size); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}

	studentID := strings.TrimSpace(c.PostForm("student_id"))
	relPath := fmt.Sprintf("proofs/%s/%s%s", studentID, uuid.NewString(), filepath.Ext(header.Filename))
	proofRef, err := h.proofs.Save(relPath, file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proof"))
		return
	}

	payment, err := h.payments.SubmitManualPayment(c.Request.Context(), service.SubmitManualPaymentRequest{
		StudentID:    studentID,
		ProgramID:    strings.TrimSpace(c.PostForm("program_id")),
		PlanType:     models.PlanType(strings.ToUpper(strings.TrimSpace(c.PostForm("plan_type")))),
		AmountCents:  amount,
		AcademicYear: year,
		DueDate:      dueDate,
		ProofRef:     proofRef,
		Notes:        strings.TrimSpace(c.PostForm("notes")),
	})
	if err != nil {
		// The submission failed; the stored file has no owning row.
		_ = h.proofs.Delete(proofRef)
		response.Error(c, err)
		return
	}

	h.recordMetric(payment)
	response.Created(c, payment)
}

// ListPending godoc
// @Summary List manual payments awaiting verification
// @Tags payments
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.PaymentDetail}
// @Security BearerAuth
// @Router /payments/pending [get]
func (h *PaymentHandler) ListPending(c *gin.Context) {
	payments, err := h.payments.ListPendingVerification(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// List godoc
// @Summary List payments
// @Tags payments
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param enrollment_id query string false "Filter by enrollment"
// @Param status query string false "Filter by status"
// @Param channel query string false "Filter by channel"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Payment}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := models.PaymentFilter{
		StudentID:    strings.TrimSpace(c.Query("student_id")),
		EnrollmentID: strings.TrimSpace(c.Query("enrollment_id")),
		Status:       models.PaymentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Channel:      models.PaymentChannel(strings.ToUpper(strings.TrimSpace(c.Query("channel")))),
		Page:         page,
		PageSize:     limit,
	}

	payments, pagination, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Get godoc
// @Summary Get a payment by ID
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope{data=models.Payment}
// @Security BearerAuth
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

type verifyPaymentRequest struct {
	Notes string `json:"notes"`
}

// Verify godoc
// @Summary Verify a pending manual payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body verifyPaymentRequest false "Optional notes"
// @Success 200 {object} response.Envelope{data=models.Payment}
// @Security BearerAuth
// @Router /payments/{id}/verify [put]
func (h *PaymentHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req verifyPaymentRequest
	_ = c.ShouldBindJSON(&req)

	payment, err := h.payments.Verify(c.Request.Context(), c.Param("id"), claims.UserID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordMetric(payment)
	response.JSON(c, http.StatusOK, payment, nil)
}

type rejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject godoc
// @Summary Reject a pending manual payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body rejectPaymentRequest true "Rejection reason"
// @Success 200 {object} response.Envelope{data=models.Payment}
// @Security BearerAuth
// @Router /payments/{id}/reject [put]
func (h *PaymentHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req rejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}

	payment, err := h.payments.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordMetric(payment)
	response.JSON(c, http.StatusOK, payment, nil)
}

// ProofURL godoc
// @Summary Issue a signed download URL for a payment proof
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id}/proof-url [get]
func (h *PaymentHandler) ProofURL(c *gin.Context) {
	payment, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if payment.ProofRef == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "payment has no proof document"))
		return
	}

	token, expiresAt, err := h.signer.Generate(payment.ID, *payment.ProofRef)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign proof URL"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/api/v1/payments/proofs/" + token,
		"expires_at": expiresAt,
	}, nil)
}

// DownloadProof godoc
// @Summary Download a payment proof via signed token
// @Tags payments
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /payments/proofs/{token} [get]
func (h *PaymentHandler) DownloadProof(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired proof token"))
		return
	}

	file, err := h.proofs.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "proof document not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat proof"))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filepath.Base(relPath)))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

// validSignature checks the gateway HMAC over order, status and amount.
func (h *PaymentHandler) validSignature(notif gatewayNotification) bool {
	payload := notif.OrderID + notif.StatusCode + notif.GrossAmount + h.serverKey
	sum := sha512.Sum512([]byte(payload))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(notif.SignatureKey))) == 1
}

func (h *PaymentHandler) recordMetric(payment *models.Payment) {
	if h.metrics != nil && payment != nil {
		h.metrics.RecordPayment(string(payment.Channel), string(payment.Status))
	}
}

// parseGrossAmount converts the gateway's decimal string into cents.
// Checkout sessions are opened with cent-denominated gross amounts, so
// the callback value is already in cents.
func parseGrossAmount(raw string) (int64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(value)), nil
}
