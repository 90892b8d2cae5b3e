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

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create persists a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.Status == "" {
		student.Status = models.StudentStatusPendingPayment
	}
	const query = `INSERT INTO students (id, full_name, email, phone, student_number, credential_hash, status, gateway_customer_ref, created_at, updated_at)
        VALUES (:id, :full_name, :email, :phone, :student_number, :credential_hash, :status, :gateway_customer_ref, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, email, phone, student_number, credential_hash, status, gateway_customer_ref, created_at, updated_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail returns a student by email.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	const query = `SELECT id, full_name, email, phone, student_number, credential_hash, status, gateway_customer_ref, created_at, updated_at
        FROM students WHERE LOWER(email) = LOWER($1)`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf(`SELECT id, full_name, email, phone, student_number, credential_hash, status, gateway_customer_ref, created_at, updated_at
        %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Activate assigns the student number and credential hash exactly once
// and moves the student to ENROLLED. The status guard in the WHERE
// clause keeps a concurrent second verification from regenerating
// credentials; the returned bool reports whether this call won.
func (r *StudentRepository) Activate(ctx context.Context, id, studentNumber, credentialHash string) (bool, error) {
	const query = `UPDATE students SET student_number = $2, credential_hash = $3, status = $4, updated_at = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, studentNumber, credentialHash,
		models.StudentStatusEnrolled, time.Now().UTC(), models.StudentStatusPendingPayment)
	if err != nil {
		return false, fmt.Errorf("activate student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("activate student rows: %w", err)
	}
	return affected == 1, nil
}

// UpdateGatewayRef stores or replaces the cached gateway customer reference.
func (r *StudentRepository) UpdateGatewayRef(ctx context.Context, id string, ref *string) error {
	const query = `UPDATE students SET gateway_customer_ref = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ref, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student gateway ref: %w", err)
	}
	return nil
}

// UpdateStatus changes the lifecycle status of a student.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}
