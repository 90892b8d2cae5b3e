package models

import "time"

// StudentStatus represents the payment lifecycle of a student.
type StudentStatus string

// Possible student statuses.
const (
	StudentStatusPendingPayment StudentStatus = "PENDING_PAYMENT"
	StudentStatusEnrolled       StudentStatus = "ENROLLED"
	StudentStatusWithdrawn      StudentStatus = "WITHDRAWN"
)

// Student represents a learner converted from an approved application.
// StudentNumber and CredentialHash are assigned exactly once, on the
// first verified payment. GatewayCustomerRef caches the payment gateway
// customer and is revalidated before reuse.
type Student struct {
	ID                 string        `db:"id" json:"id"`
	FullName           string        `db:"full_name" json:"full_name"`
	Email              string        `db:"email" json:"email"`
	Phone              string        `db:"phone" json:"phone"`
	StudentNumber      *string       `db:"student_number" json:"student_number,omitempty"`
	CredentialHash     *string       `db:"credential_hash" json:"-"`
	Status             StudentStatus `db:"status" json:"status"`
	GatewayCustomerRef *string       `db:"gateway_customer_ref" json:"-"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Status   StudentStatus
	Page     int
	PageSize int
}
