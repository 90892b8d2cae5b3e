package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

type mockApplicationRepo struct {
	applications map[string]models.Application
}

func newMockApplicationRepo(apps ...models.Application) *mockApplicationRepo {
	m := &mockApplicationRepo{applications: make(map[string]models.Application)}
	for _, a := range apps {
		m.applications[a.ID] = a
	}
	return m
}

func (m *mockApplicationRepo) Create(_ context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = "app-" + app.Email
	}
	m.applications[app.ID] = *app
	return nil
}

func (m *mockApplicationRepo) FindByID(_ context.Context, id string) (*models.Application, error) {
	if a, ok := m.applications[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) List(_ context.Context, _ models.ApplicationFilter) ([]models.Application, int, error) {
	var out []models.Application
	for _, a := range m.applications {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockApplicationRepo) UpdateStatus(_ context.Context, id string, status models.ApplicationStatus, reviewerID string, reviewedAt time.Time) error {
	a, ok := m.applications[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	a.ReviewedBy = &reviewerID
	a.ReviewedAt = &reviewedAt
	m.applications[id] = a
	return nil
}

type mockApplicationStudents struct {
	students map[string]models.Student
	created  []models.Student
}

func newMockApplicationStudents(students ...models.Student) *mockApplicationStudents {
	m := &mockApplicationStudents{students: make(map[string]models.Student)}
	for _, s := range students {
		m.students[s.Email] = s
	}
	return m
}

func (m *mockApplicationStudents) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	if s, ok := m.students[email]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationStudents) Create(_ context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "stu-" + student.Email
	}
	m.students[student.Email] = *student
	m.created = append(m.created, *student)
	return nil
}

func newApplicationService(apps *mockApplicationRepo, students *mockApplicationStudents, publisher *mockPublisher) *ApplicationService {
	return NewApplicationService(apps, students, NewProgramCatalog(), publisher, &mockInvalidator{}, validator.New(), zap.NewNop())
}

func pendingApplication() models.Application {
	return models.Application{
		ID:        "app-1",
		FullName:  "Grace Hopper",
		Email:     "grace@example.com",
		Phone:     "+15550100",
		ProgramID: "intensive",
		Status:    models.ApplicationStatusPending,
	}
}

func TestSubmitApplicationUnknownProgram(t *testing.T) {
	svc := newApplicationService(newMockApplicationRepo(), newMockApplicationStudents(), &mockPublisher{})

	_, err := svc.Submit(context.Background(), SubmitApplicationRequest{
		FullName:  "Grace Hopper",
		Email:     "grace@example.com",
		ProgramID: "masterclass",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidProgram.Code, appErr.Code)
}

func TestSubmitApplicationPending(t *testing.T) {
	repo := newMockApplicationRepo()
	svc := newApplicationService(repo, newMockApplicationStudents(), &mockPublisher{})

	app, err := svc.Submit(context.Background(), SubmitApplicationRequest{
		FullName:  "Grace Hopper",
		Email:     "grace@example.com",
		ProgramID: "intensive",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Len(t, repo.applications, 1)
}

func TestApproveCreatesPendingPaymentStudent(t *testing.T) {
	repo := newMockApplicationRepo(pendingApplication())
	students := newMockApplicationStudents()
	publisher := &mockPublisher{}
	svc := newApplicationService(repo, students, publisher)

	app, err := svc.Approve(context.Background(), "app-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, app.Status)

	require.Len(t, students.created, 1)
	assert.Equal(t, models.StudentStatusPendingPayment, students.created[0].Status)
	assert.Equal(t, "grace@example.com", students.created[0].Email)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, models.NotifyApplicationApproved, publisher.published[0].Kind)
}

func TestApproveReusesExistingStudent(t *testing.T) {
	repo := newMockApplicationRepo(pendingApplication())
	students := newMockApplicationStudents(models.Student{
		ID: "stu-9", Email: "grace@example.com", Status: models.StudentStatusEnrolled,
	})
	svc := newApplicationService(repo, students, &mockPublisher{})

	_, err := svc.Approve(context.Background(), "app-1", "admin-1")
	require.NoError(t, err)
	assert.Empty(t, students.created)
}

func TestApproveAlreadyReviewed(t *testing.T) {
	app := pendingApplication()
	app.Status = models.ApplicationStatusRejected
	svc := newApplicationService(newMockApplicationRepo(app), newMockApplicationStudents(), &mockPublisher{})

	_, err := svc.Approve(context.Background(), "app-1", "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRejectApplication(t *testing.T) {
	repo := newMockApplicationRepo(pendingApplication())
	students := newMockApplicationStudents()
	svc := newApplicationService(repo, students, &mockPublisher{})

	app, err := svc.Reject(context.Background(), "app-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, app.Status)
	require.NotNil(t, app.ReviewedBy)
	assert.Equal(t, "admin-1", *app.ReviewedBy)
	assert.Empty(t, students.created)
}
