package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-program-api/internal/models"
)

var enrollmentDetailColumns = []string{
	"id", "student_id", "program_id", "plan_type", "status", "total_fees_cents", "enrolled_at", "closed_at",
	"student_name", "student_email", "total_paid_cents",
}

func TestEnrollmentCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{
		StudentID:      "stu-1",
		ProgramID:      "essentials",
		PlanType:       models.PlanMonthly,
		TotalFeesCents: 84000,
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreateDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{
		StudentID:      "stu-1",
		ProgramID:      "essentials",
		PlanType:       models.PlanMonthly,
		TotalFeesCents: 84000,
	}
	err := repo.Create(context.Background(), enrollment)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentFindDetailByIDComputesTotals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow("enr-1", "stu-1", "essentials", string(models.PlanMonthly), string(models.EnrollmentStatusActive),
			84000, now, nil, "Ada Lovelace", "ada@example.com", 10500)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10500), detail.TotalPaidCents)
	assert.Equal(t, "Ada Lovelace", detail.StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow("enr-1", "stu-1", "essentials", string(models.PlanMonthly), string(models.EnrollmentStatusActive),
			84000, now, nil, "Ada Lovelace", "ada@example.com", 0)
	mock.ExpectQuery(regexp.QuoteMeta("e.status = $1")).
		WithArgs(string(models.EnrollmentStatusActive)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(string(models.EnrollmentStatusActive)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{Status: models.EnrollmentStatusActive})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentSumOutstandingBalance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("FROM enrollments e").
		WithArgs(string(models.EnrollmentStatusActive)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(157500))

	total, err := repo.SumOutstandingBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(157500), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
