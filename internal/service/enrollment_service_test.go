package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	details     map[string]models.EnrollmentDetail
	createErr   error
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{
		enrollments: make(map[string]models.Enrollment),
		details:     make(map[string]models.EnrollmentDetail),
	}
}

func (m *mockEnrollmentRepo) add(detail models.EnrollmentDetail) {
	m.enrollments[detail.ID] = detail.Enrollment
	m.details[detail.ID] = detail
}

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-" + enrollment.StudentID
	}
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByStudentAndProgram(_ context.Context, studentID, programID string) (*models.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.ProgramID == programID {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(_ context.Context, id string) (*models.EnrollmentDetail, error) {
	if d, ok := m.details[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) List(_ context.Context, _ models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, d := range m.details {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockEnrollmentRepo) UpdateStatus(_ context.Context, id string, status models.EnrollmentStatus, closedAt *time.Time) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	e.ClosedAt = closedAt
	m.enrollments[id] = e
	return nil
}

func newEnrollmentService(repo *mockEnrollmentRepo) *EnrollmentService {
	return NewEnrollmentService(repo, NewProgramCatalog(), &mockInvalidator{}, validator.New(), zap.NewNop())
}

func TestEnrollmentCreateComputesFees(t *testing.T) {
	repo := newMockEnrollmentRepo()
	svc := newEnrollmentService(repo)

	enrollment, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID: "stu-1",
		ProgramID: "intensive",
		PlanType:  models.PlanAnnual,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(59000), enrollment.TotalFeesCents)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
}

func TestEnrollmentCreateDuplicateRejected(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.add(models.EnrollmentDetail{Enrollment: models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", ProgramID: "intensive",
		Status: models.EnrollmentStatusActive,
	}})
	svc := newEnrollmentService(repo)

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID: "stu-1",
		ProgramID: "intensive",
		PlanType:  models.PlanAnnual,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErr.Code)
	assert.Equal(t, "enr-1", appErr.Details["existing_enrollment_id"])
}

func TestEnrollmentCreateConcurrentDuplicateRejected(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.createErr = &pq.Error{Code: "23505"}
	svc := newEnrollmentService(repo)

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID: "stu-1",
		ProgramID: "intensive",
		PlanType:  models.PlanAnnual,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErr.Code)
}

func TestEnrollmentGetDerivesBalance(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.add(models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID: "enr-1", StudentID: "stu-1", ProgramID: "essentials",
			Status: models.EnrollmentStatusActive, TotalFeesCents: 84000,
		},
		StudentName:    "Ada Lovelace",
		TotalPaidCents: 10500,
	})
	svc := newEnrollmentService(repo)

	detail, err := svc.Get(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(73500), detail.BalanceRemainingCents)
}

func TestEnrollmentBalanceNeverNegative(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.add(models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID: "enr-1", StudentID: "stu-1", ProgramID: "foundations",
			Status: models.EnrollmentStatusCompleted, TotalFeesCents: 48000,
		},
		TotalPaidCents: 48000,
	})
	svc := newEnrollmentService(repo)

	detail, err := svc.Get(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Zero(t, detail.BalanceRemainingCents)
}

func TestEnrollmentWithdraw(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.add(models.EnrollmentDetail{Enrollment: models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", ProgramID: "essentials",
		Status: models.EnrollmentStatusActive,
	}})
	svc := newEnrollmentService(repo)

	enrollment, err := svc.Withdraw(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, enrollment.Status)
	require.NotNil(t, enrollment.ClosedAt)
}

func TestEnrollmentCloseTwiceRejected(t *testing.T) {
	repo := newMockEnrollmentRepo()
	closedAt := time.Now().UTC()
	repo.add(models.EnrollmentDetail{Enrollment: models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", ProgramID: "essentials",
		Status: models.EnrollmentStatusWithdrawn, ClosedAt: &closedAt,
	}})
	svc := newEnrollmentService(repo)

	_, err := svc.Complete(context.Background(), "enr-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrEnrollmentNotActive.Code, appErr.Code)
}
