package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/internal/repository"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

type scheduleRepository interface {
	InsertBatch(ctx context.Context, slots []models.ClassSlot) error
	Upsert(ctx context.Context, slot *models.ClassSlot) error
	FindByID(ctx context.Context, id string) (*models.ClassSlot, error)
	ListByPair(ctx context.Context, studentID, programID string) ([]models.ClassSlot, error)
	CountByPair(ctx context.Context, studentID, programID string) (int, error)
	MarkComplete(ctx context.Context, id string, completedAt time.Time) error
}

type scheduleEnrollmentRepository interface {
	FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error)
}

// GenerateScheduleRequest seeds the full class grid for one enrollment.
// The weekly pattern repeats across every week of the program.
type GenerateScheduleRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	ProgramID   string `json:"program_id" validate:"required"`
	MainDay     string `json:"main_day" validate:"required"`
	MainTime    string `json:"main_time" validate:"required"`
	ShortDay    string `json:"short_day" validate:"required"`
	ShortTime   string `json:"short_time" validate:"required"`
	MeetingLink string `json:"meeting_link"`
}

// GenerateScheduleResult reports the outcome of bulk generation.
type GenerateScheduleResult struct {
	SlotsCreated int `json:"slots_created"`
	Batches      int `json:"batches"`
}

// UpsertSlotRequest creates or reschedules one grid cell.
type UpsertSlotRequest struct {
	StudentID    string           `json:"student_id" validate:"required"`
	ProgramID    string           `json:"program_id" validate:"required"`
	AcademicYear int              `json:"academic_year" validate:"gte=1"`
	WeekNumber   int              `json:"week_number" validate:"gte=1"`
	ClassType    models.ClassType `json:"class_type" validate:"required,oneof=MAIN SHORT"`
	DayOfWeek    string           `json:"day_of_week" validate:"required"`
	StartTime    string           `json:"start_time" validate:"required"`
	MeetingLink  string           `json:"meeting_link"`
}

// ScheduleService owns the class slot grid and the progress views
// derived from it. Every mutation is gated on an ACTIVE enrollment.
type ScheduleService struct {
	slots       scheduleRepository
	enrollments scheduleEnrollmentRepository
	catalog     *ProgramCatalog
	batchSize   int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(slots scheduleRepository, enrollments scheduleEnrollmentRepository, catalog *ProgramCatalog, batchSize int, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewProgramCatalog()
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ScheduleService{
		slots:       slots,
		enrollments: enrollments,
		catalog:     catalog,
		batchSize:   batchSize,
		validator:   validate,
		logger:      logger,
	}
}

// Generate materializes the full grid for an enrollment: two slots per
// week over every program week, written in batches. On a mid-run
// failure the error reports exactly how many rows committed; earlier
// batches stay committed and a retry is rejected as already generated.
func (s *ScheduleService) Generate(ctx context.Context, req GenerateScheduleRequest) (*GenerateScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	program, err := s.catalog.Get(req.ProgramID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveEnrollment(ctx, req.StudentID, req.ProgramID); err != nil {
		return nil, err
	}

	existing, err := s.slots.CountByPair(ctx, req.StudentID, req.ProgramID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count slots")
	}
	if existing > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrScheduleAlreadyGenerated, map[string]interface{}{
			"existing_slots": existing,
		})
	}

	slots := buildGrid(program, req)
	total := len(slots)
	committed := 0
	batches := 0
	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		if err := s.slots.InsertBatch(ctx, slots[start:end]); err != nil {
			if repository.IsUniqueViolation(err) {
				// A concurrent generation won; its rows satisfy the grid.
				return nil, appErrors.Clone(appErrors.ErrScheduleAlreadyGenerated, "")
			}
			s.logger.Error("schedule generation failed partway",
				zap.String("student_id", req.StudentID),
				zap.String("program_id", req.ProgramID),
				zap.Int("committed", committed),
				zap.Int("total", total),
				zap.Error(err),
			)
			return nil, appErrors.WithDetails(appErrors.ErrPartialBatchFailure, map[string]interface{}{
				"rows_committed": committed,
				"rows_total":     total,
				"failed_batch":   batches + 1,
			})
		}
		committed = end
		batches++
	}

	s.logger.Info("schedule generated",
		zap.String("student_id", req.StudentID),
		zap.String("program_id", req.ProgramID),
		zap.Int("slots", total),
		zap.Int("batches", batches),
	)
	return &GenerateScheduleResult{SlotsCreated: total, Batches: batches}, nil
}

// UpsertSlot creates or reschedules a single grid cell. The unique
// index on the cell key turns a reschedule into an in-place update.
func (s *ScheduleService) UpsertSlot(ctx context.Context, req UpsertSlotRequest) (*models.ClassSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	program, err := s.catalog.Get(req.ProgramID)
	if err != nil {
		return nil, err
	}
	if req.AcademicYear > program.Years {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("academic year out of range, program has %d year(s)", program.Years))
	}
	if req.WeekNumber > program.WeeksPerYear {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("week out of range, program has %d weeks per year", program.WeeksPerYear))
	}
	if err := s.requireActiveEnrollment(ctx, req.StudentID, req.ProgramID); err != nil {
		return nil, err
	}

	slot := &models.ClassSlot{
		StudentID:    req.StudentID,
		ProgramID:    req.ProgramID,
		AcademicYear: req.AcademicYear,
		WeekNumber:   req.WeekNumber,
		ClassType:    req.ClassType,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		MeetingLink:  req.MeetingLink,
		Status:       models.SlotStatusScheduled,
	}
	if err := s.slots.Upsert(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert slot")
	}
	return slot, nil
}

// CompleteSlot marks a slot as held. Completing an already completed
// slot is a no-op.
func (s *ScheduleService) CompleteSlot(ctx context.Context, slotID string) (*models.ClassSlot, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if err := s.requireActiveEnrollment(ctx, slot.StudentID, slot.ProgramID); err != nil {
		return nil, err
	}
	if slot.Status == models.SlotStatusCompleted {
		return slot, nil
	}

	now := time.Now().UTC()
	if err := s.slots.MarkComplete(ctx, slotID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete slot")
	}
	slot.Status = models.SlotStatusCompleted
	slot.CompletedAt = &now
	return slot, nil
}

// ListSlots returns the full grid for a pair in grid order.
func (s *ScheduleService) ListSlots(ctx context.Context, studentID, programID string) ([]models.ClassSlot, error) {
	slots, err := s.slots.ListByPair(ctx, studentID, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// Progress derives the live progress snapshot for a pair. Nothing here
// is cached or stored; every caller sees the same numbers.
func (s *ScheduleService) Progress(ctx context.Context, studentID, programID string) (*models.ProgressSnapshot, error) {
	program, err := s.catalog.Get(programID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByPair(ctx, studentID, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}

	perYear, overall := ProgressStats(slots, program.Years, program.WeeksPerYear)
	return &models.ProgressSnapshot{
		StudentID:  studentID,
		ProgramID:  programID,
		ActiveWeek: CurrentActiveWeek(slots, program.Years, program.WeeksPerYear),
		PerYear:    perYear,
		Overall:    overall,
	}, nil
}

func (s *ScheduleService) requireActiveEnrollment(ctx context.Context, studentID, programID string) error {
	enrollment, err := s.enrollments.FindByStudentAndProgram(ctx, studentID, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return appErrors.Clone(appErrors.ErrEnrollmentNotActive, "")
	}
	return nil
}

// buildGrid lays out the weekly pattern over the whole program in grid
// order: year-major, week-minor, MAIN before SHORT.
func buildGrid(program models.Program, req GenerateScheduleRequest) []models.ClassSlot {
	slots := make([]models.ClassSlot, 0, program.TotalWeeks()*slotsPerWeek)
	for year := 1; year <= program.Years; year++ {
		for week := 1; week <= program.WeeksPerYear; week++ {
			slots = append(slots, models.ClassSlot{
				StudentID:    req.StudentID,
				ProgramID:    req.ProgramID,
				AcademicYear: year,
				WeekNumber:   week,
				ClassType:    models.ClassTypeMain,
				DayOfWeek:    req.MainDay,
				StartTime:    req.MainTime,
				MeetingLink:  req.MeetingLink,
				Status:       models.SlotStatusScheduled,
			}, models.ClassSlot{
				StudentID:    req.StudentID,
				ProgramID:    req.ProgramID,
				AcademicYear: year,
				WeekNumber:   week,
				ClassType:    models.ClassTypeShort,
				DayOfWeek:    req.ShortDay,
				StartTime:    req.ShortTime,
				MeetingLink:  req.MeetingLink,
				Status:       models.SlotStatusScheduled,
			})
		}
	}
	return slots
}
