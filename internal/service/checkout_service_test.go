package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-program-api/internal/gateway"
	"github.com/noah-isme/academy-program-api/internal/models"
)

type mockGateway struct {
	validRefs map[string]bool
	ensured   []gateway.CustomerInput
	sessions  []gateway.CheckoutRequest
}

func newMockGateway() *mockGateway {
	return &mockGateway{validRefs: make(map[string]bool)}
}

func (m *mockGateway) EnsureCustomer(_ context.Context, input gateway.CustomerInput) (string, error) {
	m.ensured = append(m.ensured, input)
	ref := "cust-" + input.Email
	m.validRefs[ref] = true
	return ref, nil
}

func (m *mockGateway) ValidateCustomer(_ context.Context, ref string) (bool, error) {
	return m.validRefs[ref], nil
}

func (m *mockGateway) CreateCheckoutSession(_ context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	m.sessions = append(m.sessions, req)
	return &gateway.CheckoutSession{Token: "tok-" + req.OrderID, RedirectURL: "https://pay.example.com/" + req.OrderID}, nil
}

type mockCheckoutStudents struct {
	students map[string]models.Student
	updated  []string
}

func newMockCheckoutStudents(students ...models.Student) *mockCheckoutStudents {
	m := &mockCheckoutStudents{students: make(map[string]models.Student)}
	for _, s := range students {
		m.students[s.ID] = s
	}
	return m
}

func (m *mockCheckoutStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCheckoutStudents) UpdateGatewayRef(_ context.Context, id string, ref *string) error {
	s := m.students[id]
	s.GatewayCustomerRef = ref
	m.students[id] = s
	if ref != nil {
		m.updated = append(m.updated, *ref)
	}
	return nil
}

func newCheckoutService(gw *mockGateway, students *mockCheckoutStudents) *CheckoutService {
	return NewCheckoutService(gw, students, NewProgramCatalog(), validator.New(), zap.NewNop())
}

func TestCreateSessionUsesCatalogAmount(t *testing.T) {
	gw := newMockGateway()
	students := newMockCheckoutStudents(pendingStudent())
	svc := newCheckoutService(gw, students)

	session, err := svc.CreateSession(context.Background(), CreateCheckoutRequest{
		StudentID: "stu-1",
		ProgramID: "essentials",
		PlanType:  models.PlanMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), session.AmountCents)
	assert.NotEmpty(t, session.Token)
	assert.NotEmpty(t, session.RedirectURL)

	require.Len(t, gw.sessions, 1)
	assert.Equal(t, "stu-1", gw.sessions[0].StudentID)
	assert.Equal(t, "essentials", gw.sessions[0].ProgramID)
	assert.Equal(t, string(models.PlanMonthly), gw.sessions[0].PlanType)
	assert.Equal(t, int64(3500), gw.sessions[0].AmountCents)
}

func TestCreateSessionCreatesCustomerRefOnce(t *testing.T) {
	gw := newMockGateway()
	students := newMockCheckoutStudents(pendingStudent())
	svc := newCheckoutService(gw, students)

	_, err := svc.CreateSession(context.Background(), CreateCheckoutRequest{
		StudentID: "stu-1", ProgramID: "essentials", PlanType: models.PlanMonthly,
	})
	require.NoError(t, err)
	_, err = svc.CreateSession(context.Background(), CreateCheckoutRequest{
		StudentID: "stu-1", ProgramID: "essentials", PlanType: models.PlanMonthly,
	})
	require.NoError(t, err)

	// The cached reference validates on the second call; no new customer.
	assert.Len(t, gw.ensured, 1)
	assert.Len(t, students.updated, 1)
}

func TestCreateSessionReplacesStaleCustomerRef(t *testing.T) {
	gw := newMockGateway()
	student := pendingStudent()
	stale := "cust-old"
	student.GatewayCustomerRef = &stale
	students := newMockCheckoutStudents(student)
	svc := newCheckoutService(gw, students)

	_, err := svc.CreateSession(context.Background(), CreateCheckoutRequest{
		StudentID: "stu-1", ProgramID: "intensive", PlanType: models.PlanAnnual,
	})
	require.NoError(t, err)

	require.Len(t, gw.ensured, 1)
	require.Len(t, students.updated, 1)
	assert.NotEqual(t, stale, students.updated[0])
	stored := students.students["stu-1"].GatewayCustomerRef
	require.NotNil(t, stored)
	assert.Equal(t, "cust-ada@example.com", *stored)
}

func TestCreateSessionUnknownPlan(t *testing.T) {
	svc := newCheckoutService(newMockGateway(), newMockCheckoutStudents(pendingStudent()))

	_, err := svc.CreateSession(context.Background(), CreateCheckoutRequest{
		StudentID: "stu-1", ProgramID: "foundations", PlanType: models.PlanMonthly,
	})
	require.Error(t, err)
}
