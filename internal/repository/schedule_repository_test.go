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

var slotRowColumns = []string{
	"id", "student_id", "program_id", "academic_year", "week_number", "class_type", "day_of_week", "start_time",
	"meeting_link", "status", "completed_at", "created_at",
}

func TestScheduleInsertBatchCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO class_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO class_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	slots := []models.ClassSlot{
		{StudentID: "stu-1", ProgramID: "essentials", AcademicYear: 1, WeekNumber: 1, ClassType: models.ClassTypeMain, DayOfWeek: "MONDAY", StartTime: "16:00"},
		{StudentID: "stu-1", ProgramID: "essentials", AcademicYear: 1, WeekNumber: 1, ClassType: models.ClassTypeShort, DayOfWeek: "THURSDAY", StartTime: "17:00"},
	}
	err := repo.InsertBatch(context.Background(), slots)
	require.NoError(t, err)
	assert.NotEmpty(t, slots[0].ID)
	assert.Equal(t, models.SlotStatusScheduled, slots[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleInsertBatchRollsBackOnConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO class_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO class_slots").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	slots := []models.ClassSlot{
		{StudentID: "stu-1", ProgramID: "essentials", AcademicYear: 1, WeekNumber: 1, ClassType: models.ClassTypeMain, DayOfWeek: "MONDAY", StartTime: "16:00"},
		{StudentID: "stu-1", ProgramID: "essentials", AcademicYear: 1, WeekNumber: 1, ClassType: models.ClassTypeShort, DayOfWeek: "THURSDAY", StartTime: "17:00"},
	}
	err := repo.InsertBatch(context.Background(), slots)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleInsertBatchEmptyIsNoOp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleCountByPair(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_slots")).
		WithArgs("stu-1", "essentials").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(208))

	total, err := repo.CountByPair(context.Background(), "stu-1", "essentials")
	require.NoError(t, err)
	assert.Equal(t, 208, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleListByPairGridOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(slotRowColumns).
		AddRow("slot-1", "stu-1", "essentials", 1, 1, string(models.ClassTypeMain), "MONDAY", "16:00",
			"", string(models.SlotStatusScheduled), nil, now).
		AddRow("slot-2", "stu-1", "essentials", 1, 1, string(models.ClassTypeShort), "THURSDAY", "17:00",
			"", string(models.SlotStatusScheduled), nil, now)
	mock.ExpectQuery("ORDER BY academic_year ASC, week_number ASC, class_type ASC").
		WithArgs("stu-1", "essentials").
		WillReturnRows(rows)

	slots, err := repo.ListByPair(context.Background(), "stu-1", "essentials")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, models.ClassTypeMain, slots[0].ClassType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleMarkComplete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("UPDATE class_slots SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkComplete(context.Background(), "slot-1", time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
