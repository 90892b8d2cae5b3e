package models

import "time"

// ApplicationStatus represents the review state of an application.
type ApplicationStatus string

// Possible application statuses.
const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// Application captures a prospective student's submission. Terminal once
// approved-and-converted or rejected.
type Application struct {
	ID           string            `db:"id" json:"id"`
	FullName     string            `db:"full_name" json:"full_name"`
	Email        string            `db:"email" json:"email"`
	Phone        string            `db:"phone" json:"phone"`
	ProgramID    string            `db:"program_id" json:"program_id"`
	Availability string            `db:"availability" json:"availability"`
	Status       ApplicationStatus `db:"status" json:"status"`
	ReviewedBy   *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// ApplicationFilter encapsulates allowed search parameters for listing.
type ApplicationFilter struct {
	Status    ApplicationStatus
	ProgramID string
	Search    string
	Page      int
	PageSize  int
}
