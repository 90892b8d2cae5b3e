package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"go.uber.org/zap"
)

const customerRefPrefix = "mt-cust-"

// Midtrans implements Client on top of the Snap hosted checkout API.
// Snap has no standalone customer object; customer references are
// derived deterministically from the email and validated structurally.
type Midtrans struct {
	client snap.Client
	logger *zap.Logger
}

// NewMidtrans builds a Snap-backed gateway client.
func NewMidtrans(serverKey string, production bool, logger *zap.Logger) *Midtrans {
	if logger == nil {
		logger = zap.NewNop()
	}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{logger: logger}
	m.client.New(serverKey, env)
	return m
}

// EnsureCustomer derives the stable reference for this identity.
func (m *Midtrans) EnsureCustomer(_ context.Context, input CustomerInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return "", fmt.Errorf("customer email is required")
	}
	sum := sha256.Sum256([]byte(email))
	return customerRefPrefix + hex.EncodeToString(sum[:])[:24], nil
}

// ValidateCustomer checks that a cached reference still has the shape
// this adapter produces. References minted by an older key scheme fail
// here and get replaced silently by the caller.
func (m *Midtrans) ValidateCustomer(_ context.Context, ref string) (bool, error) {
	if !strings.HasPrefix(ref, customerRefPrefix) {
		return false, nil
	}
	return len(ref) == len(customerRefPrefix)+24, nil
}

// CreateCheckoutSession opens a Snap transaction and returns the hosted
// payment page handle. Student, program and plan ride along as custom
// fields so the settlement webhook can attribute the charge.
func (m *Midtrans) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive")
	}
	if req.OrderID == "" {
		return nil, fmt.Errorf("checkout order id is required")
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.AmountCents,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.FullName,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ProgramID,
				Price: req.AmountCents,
				Qty:   1,
				Name:  truncate(req.Description, 50),
			},
		},
		CustomField1: req.StudentID,
		CustomField2: req.ProgramID,
		CustomField3: req.PlanType,
	}

	resp, err := m.client.CreateTransaction(snapReq)
	if err != nil {
		m.logger.Warn("snap transaction failed",
			zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("create snap transaction: %w", err)
	}

	return &CheckoutSession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
