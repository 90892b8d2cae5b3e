package gateway

import "context"

// CustomerInput carries the identity handed to the payment gateway when
// a customer record is created.
type CustomerInput struct {
	FullName string
	Email    string
	Phone    string
}

// CheckoutRequest describes one hosted checkout session. Metadata
// fields round-trip through the gateway and come back on the webhook so
// the ledger can attribute the charge without local session state.
type CheckoutRequest struct {
	OrderID     string
	AmountCents int64
	Description string
	Customer    CustomerInput
	StudentID   string
	ProgramID   string
	PlanType    string
	CustomerRef string
}

// CheckoutSession is the gateway's answer: an opaque token plus the
// hosted payment page URL.
type CheckoutSession struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Client abstracts the external payment gateway. Implementations are
// expected to be safe for concurrent use.
type Client interface {
	// EnsureCustomer returns a reference for the given identity,
	// creating the customer upstream when needed.
	EnsureCustomer(ctx context.Context, input CustomerInput) (string, error)
	// ValidateCustomer reports whether a previously cached reference is
	// still usable.
	ValidateCustomer(ctx context.Context, ref string) (bool, error)
	// CreateCheckoutSession opens a hosted checkout for the request.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}
