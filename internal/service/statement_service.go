package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
	"github.com/noah-isme/academy-program-api/pkg/export"
)

type statementEnrollmentRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type statementPaymentRepository interface {
	ListByPair(ctx context.Context, studentID, programID string) ([]models.Payment, error)
}

// Statement export formats.
const (
	StatementFormatCSV = "csv"
	StatementFormatPDF = "pdf"
)

// StatementFile is a rendered statement ready to stream to the client.
type StatementFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StatementService renders the payment history of one enrollment as a
// downloadable statement. Totals on the statement come from the same
// ledger aggregate the API serves, never a second bookkeeping pass.
type StatementService struct {
	enrollments statementEnrollmentRepository
	payments    statementPaymentRepository
	catalog     *ProgramCatalog
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewStatementService constructs the statement service.
func NewStatementService(enrollments statementEnrollmentRepository, payments statementPaymentRepository, catalog *ProgramCatalog, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewProgramCatalog()
	}
	return &StatementService{
		enrollments: enrollments,
		payments:    payments,
		catalog:     catalog,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

var statementHeaders = []string{"Date", "Channel", "Status", "Year", "Amount", "Notes"}

// Render produces the statement for an enrollment in the requested
// format ("csv" or "pdf").
func (s *StatementService) Render(ctx context.Context, enrollmentID, format string) (*StatementFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = StatementFormatCSV
	}
	if format != StatementFormatCSV && format != StatementFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported statement format: "+format)
	}

	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	program, err := s.catalog.Get(detail.ProgramID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByPair(ctx, detail.StudentID, detail.ProgramID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	dataset := export.Dataset{Headers: statementHeaders}
	for _, p := range payments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    p.CreatedAt.Format("2006-01-02"),
			"Channel": string(p.Channel),
			"Status":  string(p.Status),
			"Year":    fmt.Sprintf("%d", p.AcademicYear),
			"Amount":  formatCents(p.AmountCents),
			"Notes":   p.Notes,
		})
	}
	dataset.Rows = append(dataset.Rows,
		map[string]string{"Date": "", "Channel": "", "Status": "", "Year": "", "Amount": "", "Notes": ""},
		map[string]string{"Channel": "TOTAL FEES", "Amount": formatCents(detail.TotalFeesCents)},
		map[string]string{"Channel": "TOTAL PAID", "Amount": formatCents(detail.TotalPaidCents)},
		map[string]string{"Channel": "BALANCE", "Amount": formatCents(remainingBalance(detail.TotalFeesCents, detail.TotalPaidCents))},
	)

	stamp := time.Now().UTC().Format("20060102")
	title := fmt.Sprintf("Payment Statement - %s - %s", detail.StudentName, program.Name)

	switch format {
	case StatementFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
		}
		return &StatementFile{
			Filename:    fmt.Sprintf("statement-%s-%s.pdf", enrollmentID, stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
		}
		return &StatementFile{
			Filename:    fmt.Sprintf("statement-%s-%s.csv", enrollmentID, stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
