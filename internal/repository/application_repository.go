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

// ApplicationRepository handles persistence of program applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create persists a new application record.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	if app.Status == "" {
		app.Status = models.ApplicationStatusPending
	}
	const query = `INSERT INTO applications (id, full_name, email, phone, program_id, availability, status, reviewed_by, reviewed_at, created_at)
        VALUES (:id, :full_name, :email, :phone, :program_id, :availability, :status, :reviewed_by, :reviewed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	const query = `SELECT id, full_name, email, phone, program_id, availability, status, reviewed_by, reviewed_at, created_at
        FROM applications WHERE id = $1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns applications filtered by the provided criteria.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	base := "FROM applications"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
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

	query := fmt.Sprintf(`SELECT id, full_name, email, phone, program_id, availability, status, reviewed_by, reviewed_at, created_at
        %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// CountByStatus returns the number of applications in the given status.
func (r *ApplicationRepository) CountByStatus(ctx context.Context, status models.ApplicationStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM applications WHERE status = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, status); err != nil {
		return 0, fmt.Errorf("count applications by status: %w", err)
	}
	return total, nil
}

// UpdateStatus records the review decision for an application.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, reviewerID string, reviewedAt time.Time) error {
	const query = `UPDATE applications SET status = $2, reviewed_by = $3, reviewed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, reviewedAt); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}
