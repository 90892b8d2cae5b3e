package models

import "time"

// ClassType distinguishes the two weekly sessions in the grid.
type ClassType string

// Possible class types.
const (
	ClassTypeMain  ClassType = "MAIN"
	ClassTypeShort ClassType = "SHORT"
)

// SlotStatus represents completion of a single class slot.
type SlotStatus string

// Possible slot statuses.
const (
	SlotStatusScheduled SlotStatus = "SCHEDULED"
	SlotStatusCompleted SlotStatus = "COMPLETED"
)

// ClassSlot is one scheduled class occurrence. The store enforces a
// unique index on (student_id, program_id, academic_year, week_number,
// class_type), which makes bulk generation retries idempotent.
type ClassSlot struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	ProgramID    string     `db:"program_id" json:"program_id"`
	AcademicYear int        `db:"academic_year" json:"academic_year"`
	WeekNumber   int        `db:"week_number" json:"week_number"`
	ClassType    ClassType  `db:"class_type" json:"class_type"`
	DayOfWeek    string     `db:"day_of_week" json:"day_of_week"`
	StartTime    string     `db:"start_time" json:"start_time"`
	MeetingLink  string     `db:"meeting_link" json:"meeting_link"`
	Status       SlotStatus `db:"status" json:"status"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// WeekPointer identifies the earliest week not yet fully completed.
type WeekPointer struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// YearProgress aggregates completion for one academic year.
type YearProgress struct {
	Year      int `json:"year"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Pct       int `json:"pct"`
}

// ProgressSnapshot is derived on demand from the slot grid; it is never
// stored, so the three consumer views cannot drift apart.
type ProgressSnapshot struct {
	StudentID  string         `json:"student_id"`
	ProgramID  string         `json:"program_id"`
	ActiveWeek WeekPointer    `json:"active_week"`
	PerYear    []YearProgress `json:"per_year"`
	Overall    YearProgress   `json:"overall"`
}
