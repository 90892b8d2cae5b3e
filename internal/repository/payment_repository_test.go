package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-program-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var paymentRowColumns = []string{
	"id", "student_id", "program_id", "enrollment_id", "plan_type", "amount_cents", "channel", "status",
	"academic_year", "due_date", "gateway_ref", "proof_ref", "notes", "verified_by", "verified_at", "created_at",
}

func TestPaymentCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{
		StudentID:   "stu-1",
		ProgramID:   "essentials",
		PlanType:    models.PlanMonthly,
		AmountCents: 3500,
		Channel:     models.PaymentChannelManual,
		Status:      models.PaymentStatusPending,
	}
	err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentFindByGatewayRef(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	ref := "ord-1"
	rows := sqlmock.NewRows(paymentRowColumns).
		AddRow("pay-1", "stu-1", "essentials", nil, string(models.PlanMonthly), 3500,
			string(models.PaymentChannelGateway), string(models.PaymentStatusVerified),
			1, nil, ref, nil, "", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE gateway_ref = $1")).
		WithArgs("ord-1").
		WillReturnRows(rows)

	payment, err := repo.FindByGatewayRef(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", payment.ID)
	require.NotNil(t, payment.GatewayRef)
	assert.Equal(t, "ord-1", *payment.GatewayRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSumVerifiedByPair(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"coalesce"}).AddRow(7000)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount_cents), 0) FROM payments")).
		WithArgs("stu-1", "essentials", string(models.PaymentStatusVerified)).
		WillReturnRows(rows)

	total, err := repo.SumVerifiedByPair(context.Background(), "stu-1", "essentials")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentMarkVerifiedWins(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("UPDATE payments SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.MarkVerified(context.Background(), "pay-1", "admin-1", "", time.Now())
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentMarkVerifiedAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("UPDATE payments SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.MarkVerified(context.Background(), "pay-1", "admin-1", "", time.Now())
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentListPendingManual(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	columns := append(append([]string{}, paymentRowColumns...), "student_name", "student_email")
	rows := sqlmock.NewRows(columns).
		AddRow("pay-1", "stu-1", "essentials", nil, string(models.PlanMonthly), 3500,
			string(models.PaymentChannelManual), string(models.PaymentStatusPending),
			1, now, nil, "proofs/stu-1/a.pdf", "", nil, nil, now, "Ada Lovelace", "ada@example.com")
	mock.ExpectQuery("FROM payments p").
		WithArgs(string(models.PaymentStatusPending), string(models.PaymentChannelManual)).
		WillReturnRows(rows)

	payments, err := repo.ListPendingManual(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "Ada Lovelace", payments[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(paymentRowColumns).
		AddRow("pay-1", "stu-1", "essentials", nil, string(models.PlanMonthly), 3500,
			string(models.PaymentChannelManual), string(models.PaymentStatusPending),
			1, nil, nil, nil, "", nil, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	payments, total, err := repo.List(context.Background(), models.PaymentFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
