package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
)

type mockStatementPayments struct {
	payments []models.Payment
}

func (m *mockStatementPayments) ListByPair(_ context.Context, _, _ string) ([]models.Payment, error) {
	return m.payments, nil
}

func statementFixture() (*mockEnrollmentRepo, *mockStatementPayments) {
	enrollments := newMockEnrollmentRepo()
	enrollments.add(models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID: "enr-1", StudentID: "stu-1", ProgramID: "essentials",
			PlanType: models.PlanMonthly, Status: models.EnrollmentStatusActive,
			TotalFeesCents: 84000,
		},
		StudentName:    "Ada Lovelace",
		StudentEmail:   "ada@example.com",
		TotalPaidCents: 7000,
	})
	payments := &mockStatementPayments{payments: []models.Payment{
		{
			ID: "pay-1", StudentID: "stu-1", ProgramID: "essentials",
			AmountCents: 3500, Channel: models.PaymentChannelGateway,
			Status: models.PaymentStatusVerified, AcademicYear: 1,
			CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "pay-2", StudentID: "stu-1", ProgramID: "essentials",
			AmountCents: 3500, Channel: models.PaymentChannelManual,
			Status: models.PaymentStatusVerified, AcademicYear: 1,
			Notes:     "bank transfer",
			CreatedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		},
	}}
	return enrollments, payments
}

func TestStatementRenderCSV(t *testing.T) {
	enrollments, payments := statementFixture()
	svc := NewStatementService(enrollments, payments, NewProgramCatalog(), zap.NewNop())

	file, err := svc.Render(context.Background(), "enr-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	body := string(file.Content)
	assert.Contains(t, body, "2026-01-05,GATEWAY,VERIFIED,1,35.00")
	assert.Contains(t, body, "bank transfer")
	assert.Contains(t, body, "TOTAL FEES")
	assert.Contains(t, body, "840.00")
	assert.Contains(t, body, "TOTAL PAID")
	assert.Contains(t, body, "70.00")
	assert.Contains(t, body, "BALANCE")
	assert.Contains(t, body, "770.00")
}

func TestStatementRenderPDF(t *testing.T) {
	enrollments, payments := statementFixture()
	svc := NewStatementService(enrollments, payments, NewProgramCatalog(), zap.NewNop())

	file, err := svc.Render(context.Background(), "enr-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestStatementRenderDefaultsToCSV(t *testing.T) {
	enrollments, payments := statementFixture()
	svc := NewStatementService(enrollments, payments, NewProgramCatalog(), zap.NewNop())

	file, err := svc.Render(context.Background(), "enr-1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
}

func TestStatementRenderUnknownFormat(t *testing.T) {
	enrollments, payments := statementFixture()
	svc := NewStatementService(enrollments, payments, NewProgramCatalog(), zap.NewNop())

	_, err := svc.Render(context.Background(), "enr-1", "xlsx")
	require.Error(t, err)
}

func TestStatementRenderUnknownEnrollment(t *testing.T) {
	enrollments, payments := statementFixture()
	svc := NewStatementService(enrollments, payments, NewProgramCatalog(), zap.NewNop())

	_, err := svc.Render(context.Background(), "missing", "csv")
	require.Error(t, err)
}
