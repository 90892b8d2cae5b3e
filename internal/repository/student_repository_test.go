package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-program-api/internal/models"
)

var studentRowColumns = []string{
	"id", "full_name", "email", "phone", "student_number", "credential_hash", "status",
	"gateway_customer_ref", "created_at", "updated_at",
}

func TestStudentCreateDefaultsToPendingPayment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{FullName: "Ada Lovelace", Email: "ada@example.com"}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusPendingPayment, student.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentActivateWins(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET student_number").WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.Activate(context.Background(), "stu-1", "ACP-2026-ABCD1234", "hash")
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentActivateAlreadyEnrolled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET student_number").WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.Activate(context.Background(), "stu-1", "ACP-2026-ABCD1234", "hash")
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentFindByEmailCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("stu-1", "Ada Lovelace", "ada@example.com", "", nil, nil,
			string(models.StudentStatusPendingPayment), nil, now, now)
	mock.ExpectQuery(`LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Ada@Example.com").
		WillReturnRows(rows)

	student, err := repo.FindByEmail(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
