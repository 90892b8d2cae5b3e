package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment is a student's paid relationship to one program. At most
// one row exists per (student, program); the unique index in the store
// backs that invariant. TotalFeesCents is fixed by the plan at creation.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ProgramID      string           `db:"program_id" json:"program_id"`
	PlanType       PlanType         `db:"plan_type" json:"plan_type"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	TotalFeesCents int64            `db:"total_fees_cents" json:"total_fees_cents"`
	EnrolledAt     time.Time        `db:"enrolled_at" json:"enrolled_at"`
	ClosedAt       *time.Time       `db:"closed_at" json:"closed_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with student context and live
// ledger totals. TotalPaidCents is an aggregate over verified payments,
// recomputed on every read, never a stored counter.
type EnrollmentDetail struct {
	Enrollment
	StudentName           string `db:"student_name" json:"student_name"`
	StudentEmail          string `db:"student_email" json:"student_email"`
	TotalPaidCents        int64  `db:"total_paid_cents" json:"total_paid_cents"`
	BalanceRemainingCents int64  `json:"balance_remaining_cents"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	ProgramID string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
}
