package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-program-api/internal/models"
)

// ScheduleRepository manages the class slot grid. The class_slots table
// carries a unique index on (student_id, program_id, academic_year,
// week_number, class_type); bulk generation leans on it so retries after
// a partial failure are idempotent.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const slotColumns = `id, student_id, program_id, academic_year, week_number, class_type, day_of_week, start_time,
        meeting_link, status, completed_at, created_at`

// InsertBatch writes one batch of slots inside a transaction. Either
// the whole batch commits or none of it does, so callers can report an
// exact committed count on failure.
func (r *ScheduleRepository) InsertBatch(ctx context.Context, slots []models.ClassSlot) error {
	if len(slots) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin slot batch: %w", err)
	}
	now := time.Now().UTC()

	const query = `INSERT INTO class_slots (id, student_id, program_id, academic_year, week_number, class_type,
        day_of_week, start_time, meeting_link, status, completed_at, created_at)
        VALUES (:id, :student_id, :program_id, :academic_year, :week_number, :class_type,
        :day_of_week, :start_time, :meeting_link, :status, :completed_at, :created_at)`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if slot.Status == "" {
			slot.Status = models.SlotStatusScheduled
		}
		if _, err := tx.NamedExecContext(ctx, query, slot); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert class slot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit slot batch: %w", err)
	}
	return nil
}

// Upsert creates or updates a single slot keyed on the grid cell.
func (r *ScheduleRepository) Upsert(ctx context.Context, slot *models.ClassSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	if slot.Status == "" {
		slot.Status = models.SlotStatusScheduled
	}
	const query = `INSERT INTO class_slots (id, student_id, program_id, academic_year, week_number, class_type,
        day_of_week, start_time, meeting_link, status, completed_at, created_at)
        VALUES (:id, :student_id, :program_id, :academic_year, :week_number, :class_type,
        :day_of_week, :start_time, :meeting_link, :status, :completed_at, :created_at)
        ON CONFLICT (student_id, program_id, academic_year, week_number, class_type) DO UPDATE
        SET day_of_week = EXCLUDED.day_of_week,
            start_time = EXCLUDED.start_time,
            meeting_link = EXCLUDED.meeting_link`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("upsert class slot: %w", err)
	}
	return nil
}

// FindByID returns a slot by its ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_slots WHERE id = $1`, slotColumns)
	var slot models.ClassSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListByPair returns every slot for a (student, program) pair in grid order.
func (r *ScheduleRepository) ListByPair(ctx context.Context, studentID, programID string) ([]models.ClassSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_slots WHERE student_id = $1 AND program_id = $2
        ORDER BY academic_year ASC, week_number ASC, class_type ASC`, slotColumns)
	var slots []models.ClassSlot
	if err := r.db.SelectContext(ctx, &slots, query, studentID, programID); err != nil {
		return nil, fmt.Errorf("list class slots: %w", err)
	}
	return slots, nil
}

// CountByPair returns the number of slots already materialized for a pair.
func (r *ScheduleRepository) CountByPair(ctx context.Context, studentID, programID string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_slots WHERE student_id = $1 AND program_id = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID, programID); err != nil {
		return 0, fmt.Errorf("count class slots: %w", err)
	}
	return total, nil
}

// MarkComplete sets a slot to COMPLETED with its completion timestamp.
func (r *ScheduleRepository) MarkComplete(ctx context.Context, id string, completedAt time.Time) error {
	const query = `UPDATE class_slots SET status = $2, completed_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.SlotStatusCompleted, completedAt); err != nil {
		return fmt.Errorf("complete class slot: %w", err)
	}
	return nil
}
