package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/internal/repository"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, closedAt *time.Time) error
}

// CreateEnrollmentRequest is the admin payload for creating an
// enrollment directly, outside the verified-payment flow.
type CreateEnrollmentRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	ProgramID string          `json:"program_id" validate:"required"`
	PlanType  models.PlanType `json:"plan_type" validate:"required"`
}

// EnrollmentService handles enrollment lifecycle use-cases.
type EnrollmentService struct {
	enrollments enrollmentRepository
	catalog     *ProgramCatalog
	dashboard   summaryInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the enrollment service. dashboard may
// be nil.
func NewEnrollmentService(enrollments enrollmentRepository, catalog *ProgramCatalog, dashboard summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewProgramCatalog()
	}
	return &EnrollmentService{enrollments: enrollments, catalog: catalog, dashboard: dashboard, validator: validate, logger: logger}
}

// List returns enrollment details and pagination metadata. Balances are
// derived from the live payment aggregate on every call.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	for i := range enrollments {
		enrollments[i].BalanceRemainingCents = remainingBalance(enrollments[i].TotalFeesCents, enrollments[i].TotalPaidCents)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with student context and live totals.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.enrollments.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	detail.BalanceRemainingCents = remainingBalance(detail.TotalFeesCents, detail.TotalPaidCents)
	return detail, nil
}

// Create registers an enrollment explicitly. A second enrollment for
// the same (student, program) pair is rejected, whether detected by the
// pre-check or by the unique index under a concurrent create.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	fees, err := s.catalog.TotalFees(req.ProgramID, req.PlanType)
	if err != nil {
		return nil, err
	}

	if existing, findErr := s.enrollments.FindByStudentAndProgram(ctx, req.StudentID, req.ProgramID); findErr == nil {
		return nil, appErrors.WithDetails(appErrors.ErrDuplicateEnrollment, map[string]interface{}{
			"existing_enrollment_id": existing.ID,
		})
	} else if !errors.Is(findErr, sql.ErrNoRows) {
		return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		ProgramID:      req.ProgramID,
		PlanType:       req.PlanType,
		Status:         models.EnrollmentStatusActive,
		TotalFeesCents: fees,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.invalidateSummary(ctx)
	return enrollment, nil
}

// Withdraw closes an active enrollment as WITHDRAWN.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string) (*models.Enrollment, error) {
	return s.close(ctx, id, models.EnrollmentStatusWithdrawn)
}

// Complete closes an active enrollment as COMPLETED.
func (s *EnrollmentService) Complete(ctx context.Context, id string) (*models.Enrollment, error) {
	return s.close(ctx, id, models.EnrollmentStatusCompleted)
}

func (s *EnrollmentService) close(ctx context.Context, id string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrEnrollmentNotActive, "enrollment is already closed")
	}

	now := time.Now().UTC()
	if err := s.enrollments.UpdateStatus(ctx, id, status, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close enrollment")
	}
	enrollment.Status = status
	enrollment.ClosedAt = &now
	s.invalidateSummary(ctx)
	return enrollment, nil
}

func (s *EnrollmentService) invalidateSummary(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}

func remainingBalance(fees, paid int64) int64 {
	if paid >= fees {
		return 0
	}
	return fees - paid
}
