package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/gateway"
	"github.com/noah-isme/academy-program-api/internal/models"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

type checkoutStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateGatewayRef(ctx context.Context, id string, ref *string) error
}

// CreateCheckoutRequest opens a hosted checkout for one installment.
type CreateCheckoutRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	ProgramID string          `json:"program_id" validate:"required"`
	PlanType  models.PlanType `json:"plan_type" validate:"required"`
}

// CheckoutSessionResult is the session handle returned to the caller.
type CheckoutSessionResult struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	AmountCents int64  `json:"amount_cents"`
}

// CheckoutService opens gateway checkout sessions. The cached customer
// reference on the student is revalidated before reuse and silently
// replaced when stale.
type CheckoutService struct {
	gateway   gateway.Client
	students  checkoutStudentRepository
	catalog   *ProgramCatalog
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCheckoutService constructs the checkout service.
func NewCheckoutService(gw gateway.Client, students checkoutStudentRepository, catalog *ProgramCatalog, validate *validator.Validate, logger *zap.Logger) *CheckoutService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewProgramCatalog()
	}
	return &CheckoutService{gateway: gw, students: students, catalog: catalog, validator: validate, logger: logger}
}

// CreateSession opens a checkout for the next installment of the given
// plan. The installment amount comes from the catalog, never from the
// caller.
func (s *CheckoutService) CreateSession(ctx context.Context, req CreateCheckoutRequest) (*CheckoutSessionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	program, err := s.catalog.Get(req.ProgramID)
	if err != nil {
		return nil, err
	}
	amount, err := s.catalog.PaymentAmount(program.ID, req.PlanType)
	if err != nil {
		return nil, err
	}

	customerRef, err := s.ensureCustomerRef(ctx, student)
	if err != nil {
		return nil, err
	}

	orderID := "ord-" + uuid.NewString()
	session, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		OrderID:     orderID,
		AmountCents: amount,
		Description: fmt.Sprintf("%s (%s)", program.Name, req.PlanType),
		Customer: gateway.CustomerInput{
			FullName: student.FullName,
			Email:    student.Email,
			Phone:    student.Phone,
		},
		StudentID:   student.ID,
		ProgramID:   program.ID,
		PlanType:    string(req.PlanType),
		CustomerRef: customerRef,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open checkout session")
	}

	return &CheckoutSessionResult{
		OrderID:     orderID,
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
		AmountCents: amount,
	}, nil
}

// ensureCustomerRef returns a usable gateway customer reference,
// revalidating the cached one and replacing it when the gateway no
// longer recognizes it.
func (s *CheckoutService) ensureCustomerRef(ctx context.Context, student *models.Student) (string, error) {
	if student.GatewayCustomerRef != nil && *student.GatewayCustomerRef != "" {
		valid, err := s.gateway.ValidateCustomer(ctx, *student.GatewayCustomerRef)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate gateway customer")
		}
		if valid {
			return *student.GatewayCustomerRef, nil
		}
		s.logger.Info("replacing stale gateway customer ref",
			zap.String("student_id", student.ID))
	}

	ref, err := s.gateway.EnsureCustomer(ctx, gateway.CustomerInput{
		FullName: student.FullName,
		Email:    student.Email,
		Phone:    student.Phone,
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create gateway customer")
	}
	if err := s.students.UpdateGatewayRef(ctx, student.ID, &ref); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store gateway customer ref")
	}
	student.GatewayCustomerRef = &ref
	return ref, nil
}
