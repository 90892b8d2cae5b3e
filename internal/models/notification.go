package models

// NotificationKind enumerates intent-to-notify events. Delivery and
// templating happen outside this service.
type NotificationKind string

// Emitted notification kinds.
const (
	NotifyApplicationApproved NotificationKind = "application-approved"
	NotifyWelcome             NotificationKind = "welcome"
	NotifyPaymentVerified     NotificationKind = "payment-verified"
	NotifyPaymentRejected     NotificationKind = "payment-rejected"
)

// Notification is the structured payload handed to the notifier.
type Notification struct {
	Kind      NotificationKind  `json:"kind"`
	Recipient string            `json:"recipient"`
	ProgramID string            `json:"program_id,omitempty"`
	StudentID string            `json:"student_id,omitempty"`
	PaymentID string            `json:"payment_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}
