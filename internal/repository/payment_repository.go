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

// PaymentRepository handles persistence of the payment ledger. Gateway
// payments carry a unique index on gateway_ref, which backs webhook
// replay idempotency.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, student_id, program_id, enrollment_id, plan_type, amount_cents, channel, status,
        academic_year, due_date, gateway_ref, proof_ref, notes, verified_by, verified_at, created_at`

// Create persists a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, student_id, program_id, enrollment_id, plan_type, amount_cents, channel, status,
        academic_year, due_date, gateway_ref, proof_ref, notes, verified_by, verified_at, created_at)
        VALUES (:id, :student_id, :program_id, :enrollment_id, :plan_type, :amount_cents, :channel, :status,
        :academic_year, :due_date, :gateway_ref, :proof_ref, :notes, :verified_by, :verified_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID returns a payment by its ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByGatewayRef returns the payment recorded for an external gateway
// reference, if any. Used to detect webhook replays before insert.
func (r *PaymentRepository) FindByGatewayRef(ctx context.Context, gatewayRef string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE gateway_ref = $1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, gatewayRef); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPendingManual returns the verification queue: pending manual
// payments ordered by due date ascending.
func (r *PaymentRepository) ListPendingManual(ctx context.Context) ([]models.PaymentDetail, error) {
	const query = `SELECT p.id, p.student_id, p.program_id, p.enrollment_id, p.plan_type, p.amount_cents, p.channel, p.status,
        p.academic_year, p.due_date, p.gateway_ref, p.proof_ref, p.notes, p.verified_by, p.verified_at, p.created_at,
        s.full_name AS student_name, s.email AS student_email
        FROM payments p
        LEFT JOIN students s ON s.id = p.student_id
        WHERE p.status = $1 AND p.channel = $2
        ORDER BY p.due_date ASC NULLS LAST, p.created_at ASC`
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, models.PaymentStatusPending, models.PaymentChannelManual); err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return payments, nil
}

// List returns payments filtered by the provided criteria.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	base := "FROM payments"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Channel != "" {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", len(args)+1))
		args = append(args, filter.Channel)
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, paymentColumns, base+clause, size, offset)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// ListByPair returns all payments for a (student, program) pair ordered
// chronologically. Used for statements.
func (r *PaymentRepository) ListByPair(ctx context.Context, studentID, programID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE student_id = $1 AND program_id = $2 ORDER BY created_at ASC`, paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID, programID); err != nil {
		return nil, fmt.Errorf("list payments for pair: %w", err)
	}
	return payments, nil
}

// SumVerifiedByPair aggregates verified payment amounts for a pair.
// This is the authoritative total_paid; it is always recomputed from
// rows, never read from a counter.
func (r *PaymentRepository) SumVerifiedByPair(ctx context.Context, studentID, programID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount_cents), 0) FROM payments
        WHERE student_id = $1 AND program_id = $2 AND status = $3`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, studentID, programID, models.PaymentStatusVerified); err != nil {
		return 0, fmt.Errorf("sum verified payments: %w", err)
	}
	return total, nil
}

// MarkVerified transitions a pending payment to VERIFIED. The status
// guard makes the transition single-shot under concurrent verifiers.
func (r *PaymentRepository) MarkVerified(ctx context.Context, id, verifierID, notes string, verifiedAt time.Time) (bool, error) {
	const query = `UPDATE payments SET status = $2, verified_by = $3, verified_at = $4,
        notes = CASE WHEN $5 = '' THEN notes ELSE $5 END
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusVerified, verifierID, verifiedAt, notes, models.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("verify payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("verify payment rows: %w", err)
	}
	return affected == 1, nil
}

// MarkRejected transitions a pending payment to REJECTED with the
// mandatory reason.
func (r *PaymentRepository) MarkRejected(ctx context.Context, id, verifierID, reason string, rejectedAt time.Time) (bool, error) {
	const query = `UPDATE payments SET status = $2, verified_by = $3, verified_at = $4, notes = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusRejected, verifierID, rejectedAt, reason, models.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("reject payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject payment rows: %w", err)
	}
	return affected == 1, nil
}

// AttachEnrollment backfills enrollment_id on payments recorded before
// the enrollment row existed.
func (r *PaymentRepository) AttachEnrollment(ctx context.Context, studentID, programID, enrollmentID string) error {
	const query = `UPDATE payments SET enrollment_id = $3 WHERE student_id = $1 AND program_id = $2 AND enrollment_id IS NULL`
	if _, err := r.db.ExecContext(ctx, query, studentID, programID, enrollmentID); err != nil {
		return fmt.Errorf("attach enrollment to payments: %w", err)
	}
	return nil
}

// CountPendingManual returns the size of the verification queue.
func (r *PaymentRepository) CountPendingManual(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM payments WHERE status = $1 AND channel = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.PaymentStatusPending, models.PaymentChannelManual); err != nil {
		return 0, fmt.Errorf("count pending payments: %w", err)
	}
	return total, nil
}
