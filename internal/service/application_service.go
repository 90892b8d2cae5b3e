package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, reviewerID string, reviewedAt time.Time) error
}

type applicationStudentRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

// SubmitApplicationRequest is the public intake payload.
type SubmitApplicationRequest struct {
	FullName     string `json:"full_name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	ProgramID    string `json:"program_id" validate:"required"`
	Availability string `json:"availability"`
}

// ApplicationService handles the intake and review workflow. Approval
// converts the applicant into a PENDING_PAYMENT student; enrollment
// only materializes on the first verified payment.
type ApplicationService struct {
	applications  applicationRepository
	students      applicationStudentRepository
	catalog       *ProgramCatalog
	notifications notificationPublisher
	dashboard     summaryInvalidator
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewApplicationService constructs the application service.
// notifications and dashboard may be nil.
func NewApplicationService(
	applications applicationRepository,
	students applicationStudentRepository,
	catalog *ProgramCatalog,
	notifications notificationPublisher,
	dashboard summaryInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewProgramCatalog()
	}
	return &ApplicationService{
		applications:  applications,
		students:      students,
		catalog:       catalog,
		notifications: notifications,
		dashboard:     dashboard,
		validator:     validate,
		logger:        logger,
	}
}

// Submit records a new application against a known program.
func (s *ApplicationService) Submit(ctx context.Context, req SubmitApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if _, err := s.catalog.Get(req.ProgramID); err != nil {
		return nil, err
	}

	app := &models.Application{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		ProgramID:    req.ProgramID,
		Availability: req.Availability,
		Status:       models.ApplicationStatusPending,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.invalidateSummary(ctx)
	return app, nil
}

// List returns applications and pagination metadata.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	apps, total, err := s.applications.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return apps, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one application.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}

// Approve marks a pending application approved and converts the
// applicant into a student awaiting first payment. Re-applying with an
// email that already has a student record reuses that record.
func (s *ApplicationService) Approve(ctx context.Context, id, reviewerID string) (*models.Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already reviewed")
	}

	now := time.Now().UTC()
	if err := s.applications.UpdateStatus(ctx, id, models.ApplicationStatusApproved, reviewerID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve application")
	}
	app.Status = models.ApplicationStatusApproved
	app.ReviewedBy = &reviewerID
	app.ReviewedAt = &now

	student, err := s.students.FindByEmail(ctx, app.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
		}
		student = &models.Student{
			FullName: app.FullName,
			Email:    app.Email,
			Phone:    app.Phone,
			Status:   models.StudentStatusPendingPayment,
		}
		if createErr := s.students.Create(ctx, student); createErr != nil {
			return nil, appErrors.Wrap(createErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
	}

	s.publish(models.Notification{
		Kind:      models.NotifyApplicationApproved,
		Recipient: app.Email,
		StudentID: student.ID,
		ProgramID: app.ProgramID,
	})
	s.invalidateSummary(ctx)
	return app, nil
}

// Reject marks a pending application rejected.
func (s *ApplicationService) Reject(ctx context.Context, id, reviewerID string) (*models.Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already reviewed")
	}

	now := time.Now().UTC()
	if err := s.applications.UpdateStatus(ctx, id, models.ApplicationStatusRejected, reviewerID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject application")
	}
	app.Status = models.ApplicationStatusRejected
	app.ReviewedBy = &reviewerID
	app.ReviewedAt = &now
	s.invalidateSummary(ctx)
	return app, nil
}

func (s *ApplicationService) publish(notification models.Notification) {
	if s.notifications != nil {
		s.notifications.Publish(notification)
	}
}

func (s *ApplicationService) invalidateSummary(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}
