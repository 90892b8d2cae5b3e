package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-program-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments. The
// enrollments table carries a unique index on (student_id, program_id);
// Create surfaces that conflict unmapped so callers can decide between
// rejecting and adopting the existing row.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// detailColumns joins student context and aggregates verified payments
// so totals are always derived from ledger rows at read time.
const detailColumns = `e.id, e.student_id, e.program_id, e.plan_type, e.status, e.total_fees_cents, e.enrolled_at, e.closed_at,
        s.full_name AS student_name, s.email AS student_email,
        COALESCE((SELECT SUM(p.amount_cents) FROM payments p WHERE p.student_id = e.student_id AND p.program_id = e.program_id AND p.status = 'VERIFIED'), 0) AS total_paid_cents`

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, student_id, program_id, plan_type, status, total_fees_cents, enrolled_at, closed_at)
        VALUES (:id, :student_id, :program_id, :plan_type, :status, :total_fees_cents, :enrolled_at, :closed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, program_id, plan_type, status, total_fees_cents, enrolled_at, closed_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndProgram returns the enrollment for a pair.
func (r *EnrollmentRepository) FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, program_id, plan_type, status, total_fees_cents, enrolled_at, closed_at
        FROM enrollments WHERE student_id = $1 AND program_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, programID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student context and live totals.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        WHERE e.id = $1`, detailColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns enrollment details filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e LEFT JOIN students s ON s.id = e.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("e.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d`,
		detailColumns, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// UpdateStatus closes or reopens an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, closedAt *time.Time) error {
	const query = `UPDATE enrollments SET status = $2, closed_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, closedAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// CountByStatus returns the number of enrollments in the given status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, status models.EnrollmentStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE status = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, status); err != nil {
		return 0, fmt.Errorf("count enrollments by status: %w", err)
	}
	return total, nil
}

// SumOutstandingBalance returns the total unpaid fees over active
// enrollments, computed from ledger rows.
func (r *EnrollmentRepository) SumOutstandingBalance(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(SUM(GREATEST(e.total_fees_cents - COALESCE(paid.total, 0), 0)), 0)
        FROM enrollments e
        LEFT JOIN (
            SELECT student_id, program_id, SUM(amount_cents) AS total
            FROM payments WHERE status = 'VERIFIED'
            GROUP BY student_id, program_id
        ) paid ON paid.student_id = e.student_id AND paid.program_id = e.program_id
        WHERE e.status = $1`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("sum outstanding balance: %w", err)
	}
	return total, nil
}
