package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/internal/repository"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByGatewayRef(ctx context.Context, gatewayRef string) (*models.Payment, error)
	ListPendingManual(ctx context.Context) ([]models.PaymentDetail, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	SumVerifiedByPair(ctx context.Context, studentID, programID string) (int64, error)
	MarkVerified(ctx context.Context, id, verifierID, notes string, verifiedAt time.Time) (bool, error)
	MarkRejected(ctx context.Context, id, verifierID, reason string, rejectedAt time.Time) (bool, error)
	AttachEnrollment(ctx context.Context, studentID, programID, enrollmentID string) error
}

type ledgerStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	Activate(ctx context.Context, id, studentNumber, credentialHash string) (bool, error)
}

type ledgerEnrollmentRepository interface {
	FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type notificationPublisher interface {
	Publish(notification models.Notification)
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context)
}

// RecordGatewayPaymentRequest is the parsed settlement event from the
// payment gateway webhook. GatewayRef doubles as the idempotency key.
type RecordGatewayPaymentRequest struct {
	StudentID    string          `json:"student_id"`
	StudentEmail string          `json:"student_email" validate:"omitempty,email"`
	ProgramID    string          `json:"program_id" validate:"required"`
	PlanType     models.PlanType `json:"plan_type" validate:"required"`
	AmountCents  int64           `json:"amount_cents" validate:"gt=0"`
	GatewayRef   string          `json:"gateway_ref" validate:"required"`
}

// SubmitManualPaymentRequest records a proof-of-payment submission that
// awaits admin verification.
type SubmitManualPaymentRequest struct {
	StudentID    string          `json:"student_id" validate:"required"`
	ProgramID    string          `json:"program_id" validate:"required"`
	PlanType     models.PlanType `json:"plan_type" validate:"required"`
	AmountCents  int64           `json:"amount_cents" validate:"gt=0"`
	AcademicYear int             `json:"academic_year" validate:"gte=1"`
	DueDate      *time.Time      `json:"due_date"`
	ProofRef     string          `json:"proof_ref" validate:"required"`
	Notes        string          `json:"notes"`
}

// PaymentService owns the payment ledger: webhook settlements, manual
// submissions, and the verify/reject workflow. Verified payments are
// the only rows that count toward totals, and totals are always
// recomputed from rows.
type PaymentService struct {
	payments      paymentRepository
	students      ledgerStudentRepository
	enrollments   ledgerEnrollmentRepository
	catalog       *ProgramCatalog
	notifications notificationPublisher
	dashboard     summaryInvalidator
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewPaymentService constructs the payment service. notifications and
// dashboard may be nil.
func NewPaymentService(
	payments paymentRepository,
	students ledgerStudentRepository,
	enrollments ledgerEnrollmentRepository,
	catalog *ProgramCatalog,
	notifications notificationPublisher,
	dashboard summaryInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewProgramCatalog()
	}
	return &PaymentService{
		payments:      payments,
		students:      students,
		enrollments:   enrollments,
		catalog:       catalog,
		notifications: notifications,
		dashboard:     dashboard,
		validator:     validate,
		logger:        logger,
	}
}

// RecordGatewayPayment applies a confirmed gateway charge to the
// ledger. Replays of the same gateway reference return the original
// row without side effects. A settled charge is never refused, even
// past the remaining balance; the overage is noted for reconciliation.
func (s *PaymentService) RecordGatewayPayment(ctx context.Context, req RecordGatewayPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid gateway payment payload")
	}
	if req.StudentID == "" && req.StudentEmail == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id or email is required")
	}

	if existing, err := s.payments.FindByGatewayRef(ctx, req.GatewayRef); err == nil {
		s.logger.Info("gateway payment replay ignored",
			zap.String("gateway_ref", req.GatewayRef), zap.String("payment_id", existing.ID))
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check gateway reference")
	}

	student, err := s.resolveStudent(ctx, req.StudentID, req.StudentEmail)
	if err != nil {
		return nil, err
	}
	program, err := s.catalog.Get(req.ProgramID)
	if err != nil {
		return nil, err
	}
	fees, err := s.feesForPair(ctx, student.ID, program, req.PlanType)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.SumVerifiedByPair(ctx, student.ID, program.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
	}

	var notes string
	if paid+req.AmountCents > fees {
		notes = "settled amount exceeds remaining balance, flagged for reconciliation"
		s.logger.Warn("settled charge exceeds remaining balance",
			zap.String("student_id", student.ID),
			zap.String("program_id", program.ID),
			zap.String("gateway_ref", req.GatewayRef),
			zap.Int64("amount_cents", req.AmountCents),
			zap.Int64("remaining_balance_cents", fees-paid),
		)
	}

	now := time.Now().UTC()
	ref := req.GatewayRef
	payment := &models.Payment{
		StudentID:    student.ID,
		ProgramID:    program.ID,
		PlanType:     req.PlanType,
		AmountCents:  req.AmountCents,
		Channel:      models.PaymentChannelGateway,
		Status:       models.PaymentStatusVerified,
		AcademicYear: academicYearFor(program, req.PlanType, paid),
		GatewayRef:   &ref,
		Notes:        notes,
		VerifiedAt:   &now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		if repository.IsUniqueViolation(err) {
			// Lost the race against a concurrent replay; adopt its row.
			existing, findErr := s.payments.FindByGatewayRef(ctx, req.GatewayRef)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record gateway payment")
	}

	if err := s.applyVerifiedPayment(ctx, student, program, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// SubmitManualPayment records a pending proof-of-payment submission.
// The amount must not exceed the remaining balance at submission time.
// Verify re-checks the balance because several pending submissions can
// each pass this gate before any of them is verified.
func (s *PaymentService) SubmitManualPayment(ctx context.Context, req SubmitManualPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual payment payload")
	}

	student, err := s.resolveStudent(ctx, req.StudentID, "")
	if err != nil {
		return nil, err
	}
	program, err := s.catalog.Get(req.ProgramID)
	if err != nil {
		return nil, err
	}
	if req.AcademicYear > program.Years {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("academic year out of range, program has %d year(s)", program.Years))
	}

	var enrollmentID *string
	fees, err := s.feesForPair(ctx, student.ID, program, req.PlanType)
	if err != nil {
		return nil, err
	}
	if enrollment, findErr := s.enrollments.FindByStudentAndProgram(ctx, student.ID, program.ID); findErr == nil {
		enrollmentID = &enrollment.ID
	} else if !errors.Is(findErr, sql.ErrNoRows) {
		return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	paid, err := s.payments.SumVerifiedByPair(ctx, student.ID, program.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
	}
	if paid+req.AmountCents > fees {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidPaymentAmount, map[string]interface{}{
			"remaining_balance_cents": fees - paid,
			"amount_cents":            req.AmountCents,
		})
	}

	proofRef := req.ProofRef
	payment := &models.Payment{
		StudentID:    student.ID,
		ProgramID:    program.ID,
		EnrollmentID: enrollmentID,
		PlanType:     req.PlanType,
		AmountCents:  req.AmountCents,
		Channel:      models.PaymentChannelManual,
		Status:       models.PaymentStatusPending,
		AcademicYear: req.AcademicYear,
		DueDate:      req.DueDate,
		ProofRef:     &proofRef,
		Notes:        req.Notes,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record manual payment")
	}
	s.invalidateSummary(ctx)
	return payment, nil
}

// ListPendingVerification returns the admin verification queue ordered
// by due date.
func (s *PaymentService) ListPendingVerification(ctx context.Context) ([]models.PaymentDetail, error) {
	payments, err := s.payments.ListPendingManual(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending payments")
	}
	return payments, nil
}

// List returns payments and pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single payment.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// Verify transitions a pending manual payment to VERIFIED and applies
// the lifecycle side effects: first verified payment activates the
// student and materializes the enrollment. The remaining balance is
// re-checked here so that pending submissions verified one after the
// other cannot collect past the contractual total.
func (s *PaymentService) Verify(ctx context.Context, paymentID, verifierID, notes string) (*models.Payment, error) {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is not pending")
	}

	program, err := s.catalog.Get(payment.ProgramID)
	if err != nil {
		return nil, err
	}
	fees, err := s.feesForPair(ctx, payment.StudentID, program, payment.PlanType)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.SumVerifiedByPair(ctx, payment.StudentID, payment.ProgramID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
	}
	if paid+payment.AmountCents > fees {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidPaymentAmount, map[string]interface{}{
			"remaining_balance_cents": fees - paid,
			"amount_cents":            payment.AmountCents,
		})
	}

	now := time.Now().UTC()
	won, err := s.payments.MarkVerified(ctx, paymentID, verifierID, notes, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify payment")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is not pending")
	}

	payment.Status = models.PaymentStatusVerified
	payment.VerifiedBy = &verifierID
	payment.VerifiedAt = &now
	if notes != "" {
		payment.Notes = notes
	}

	student, err := s.resolveStudent(ctx, payment.StudentID, "")
	if err != nil {
		return nil, err
	}
	if err := s.applyVerifiedPayment(ctx, student, program, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Reject transitions a pending payment to REJECTED. A reason is
// mandatory; rejected amounts never count toward totals.
func (s *PaymentService) Reject(ctx context.Context, paymentID, verifierID, reason string) (*models.Payment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	won, err := s.payments.MarkRejected(ctx, paymentID, verifierID, reason, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject payment")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is not pending")
	}

	payment.Status = models.PaymentStatusRejected
	payment.VerifiedBy = &verifierID
	payment.VerifiedAt = &now
	payment.Notes = reason

	if student, findErr := s.resolveStudent(ctx, payment.StudentID, ""); findErr == nil {
		s.publish(models.Notification{
			Kind:      models.NotifyPaymentRejected,
			Recipient: student.Email,
			StudentID: student.ID,
			ProgramID: payment.ProgramID,
			PaymentID: payment.ID,
			Data:      map[string]string{"reason": reason},
		})
	}
	s.invalidateSummary(ctx)
	return payment, nil
}

// applyVerifiedPayment runs the post-verification lifecycle: one-shot
// student activation with generated credentials, enrollment creation on
// first verified payment, and notification intents.
func (s *PaymentService) applyVerifiedPayment(ctx context.Context, student *models.Student, program models.Program, payment *models.Payment) error {
	if student.Status == models.StudentStatusPendingPayment {
		studentNumber := newStudentNumber()
		password, hash, err := newCredential()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
		}
		// The status guard in Activate keeps a concurrent verifier from
		// regenerating credentials; only the winner sends the welcome.
		activated, err := s.students.Activate(ctx, student.ID, studentNumber, hash)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate student")
		}
		if activated {
			s.publish(models.Notification{
				Kind:      models.NotifyWelcome,
				Recipient: student.Email,
				StudentID: student.ID,
				ProgramID: program.ID,
				Data: map[string]string{
					"student_number": studentNumber,
					"password":       password,
				},
			})
		}
	}

	enrollment, err := s.ensureEnrollment(ctx, student.ID, program, payment.PlanType)
	if err != nil {
		return err
	}
	if err := s.payments.AttachEnrollment(ctx, student.ID, program.ID, enrollment.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach enrollment")
	}
	payment.EnrollmentID = &enrollment.ID

	s.publish(models.Notification{
		Kind:      models.NotifyPaymentVerified,
		Recipient: student.Email,
		StudentID: student.ID,
		ProgramID: program.ID,
		PaymentID: payment.ID,
		Data:      map[string]string{"amount_cents": fmt.Sprintf("%d", payment.AmountCents)},
	})
	s.invalidateSummary(ctx)
	return nil
}

// ensureEnrollment returns the enrollment for the pair, creating it on
// the first verified payment. Concurrent creators collapse onto the
// unique index; the loser adopts the winner's row.
func (s *PaymentService) ensureEnrollment(ctx context.Context, studentID string, program models.Program, plan models.PlanType) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByStudentAndProgram(ctx, studentID, program.ID)
	if err == nil {
		return enrollment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	fees, err := s.catalog.TotalFees(program.ID, plan)
	if err != nil {
		return nil, err
	}
	created := &models.Enrollment{
		StudentID:      studentID,
		ProgramID:      program.ID,
		PlanType:       plan,
		Status:         models.EnrollmentStatusActive,
		TotalFeesCents: fees,
	}
	if createErr := s.enrollments.Create(ctx, created); createErr != nil {
		if repository.IsUniqueViolation(createErr) {
			return s.enrollments.FindByStudentAndProgram(ctx, studentID, program.ID)
		}
		return nil, appErrors.Wrap(createErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return created, nil
}

// feesForPair prefers the contractual total frozen on the enrollment
// and falls back to catalog pricing before the enrollment exists.
func (s *PaymentService) feesForPair(ctx context.Context, studentID string, program models.Program, plan models.PlanType) (int64, error) {
	enrollment, err := s.enrollments.FindByStudentAndProgram(ctx, studentID, program.ID)
	if err == nil {
		return enrollment.TotalFeesCents, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return s.catalog.TotalFees(program.ID, plan)
}

func (s *PaymentService) resolveStudent(ctx context.Context, id, email string) (*models.Student, error) {
	var (
		student *models.Student
		err     error
	)
	if id != "" {
		student, err = s.students.FindByID(ctx, id)
	} else {
		student, err = s.students.FindByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *PaymentService) publish(notification models.Notification) {
	if s.notifications != nil {
		s.notifications.Publish(notification)
	}
}

func (s *PaymentService) invalidateSummary(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}

// academicYearFor derives which program year a gateway installment
// belongs to from the amount already paid.
func academicYearFor(program models.Program, plan models.PlanType, paidCents int64) int {
	year := 1
	switch plan {
	case models.PlanAnnual:
		if program.AnnualFeeCents > 0 {
			year = int(paidCents/program.AnnualFeeCents) + 1
		}
	case models.PlanMonthly:
		if program.MonthlyFeeCents > 0 {
			months := paidCents / program.MonthlyFeeCents
			year = int(months/12) + 1
		}
	}
	if year > program.Years {
		year = program.Years
	}
	if year < 1 {
		year = 1
	}
	return year
}

func newStudentNumber() string {
	return fmt.Sprintf("ACP-%d-%s", time.Now().UTC().Year(),
		strings.ToUpper(strings.ReplaceAll(uuid.NewString()[:8], "-", "")))
}

// newCredential returns a random one-time password and its bcrypt hash.
// The plaintext leaves the process only inside the welcome notification.
func newCredential() (string, string, error) {
	raw := make([]byte, 9)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	password := base64.RawURLEncoding.EncodeToString(raw)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return password, string(hash), nil
}
