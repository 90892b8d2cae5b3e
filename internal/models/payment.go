package models

import "time"

// PaymentStatus represents the verification state of a payment.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
)

// PaymentChannel distinguishes gateway-confirmed charges from manually
// uploaded proof-of-payment submissions.
type PaymentChannel string

// Possible payment channels.
const (
	PaymentChannelGateway PaymentChannel = "GATEWAY"
	PaymentChannelManual  PaymentChannel = "MANUAL_UPLOAD"
)

// Payment records one payment attempt against a (student, program)
// pair. EnrollmentID is filled once the owning enrollment exists.
// GatewayRef is unique for gateway payments and is the idempotency key
// for webhook replays. ProofRef points at the uploaded evidence for
// manual payments.
type Payment struct {
	ID           string         `db:"id" json:"id"`
	StudentID    string         `db:"student_id" json:"student_id"`
	ProgramID    string         `db:"program_id" json:"program_id"`
	EnrollmentID *string        `db:"enrollment_id" json:"enrollment_id,omitempty"`
	PlanType     PlanType       `db:"plan_type" json:"plan_type"`
	AmountCents  int64          `db:"amount_cents" json:"amount_cents"`
	Channel      PaymentChannel `db:"channel" json:"channel"`
	Status       PaymentStatus  `db:"status" json:"status"`
	AcademicYear int            `db:"academic_year" json:"academic_year"`
	DueDate      *time.Time     `db:"due_date" json:"due_date,omitempty"`
	GatewayRef   *string        `db:"gateway_ref" json:"gateway_ref,omitempty"`
	ProofRef     *string        `db:"proof_ref" json:"proof_ref,omitempty"`
	Notes        string         `db:"notes" json:"notes"`
	VerifiedBy   *string        `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt   *time.Time     `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// PaymentDetail enriches Payment with student context for the admin
// verification queue.
type PaymentDetail struct {
	Payment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// PaymentFilter provides filters for listing payments.
type PaymentFilter struct {
	StudentID    string
	EnrollmentID string
	Status       PaymentStatus
	Channel      PaymentChannel
	Page         int
	PageSize     int
}
