package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academy-program-api/internal/models"
)

type mockAuthUsers struct {
	users      map[string]models.User
	lastLogins []string
	audits     []models.AuditLog
}

func newMockAuthUsers(users ...models.User) *mockAuthUsers {
	m := &mockAuthUsers{users: make(map[string]models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) UpdateLastLogin(_ context.Context, id string, _ time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func (m *mockAuthUsers) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func adminUser(t *testing.T, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return models.User{
		ID:           "usr-1",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func newAuthService(repo *mockAuthUsers) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "academy-program-api",
	})
}

func TestLoginIssuesValidToken(t *testing.T) {
	repo := newMockAuthUsers(adminUser(t, "hunter2"))
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "usr-1", resp.User.ID)
	assert.Equal(t, []string{"usr-1"}, repo.lastLogins)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, "login", repo.audits[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(newMockAuthUsers(adminUser(t, "hunter2")))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := adminUser(t, "hunter2")
	user.Active = false
	svc := newAuthService(newMockAuthUsers(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "hunter2",
	})
	require.Error(t, err)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := newMockAuthUsers(adminUser(t, "hunter2"))
	issuer := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret: "other-secret", Expiration: time.Hour,
	})
	verifier := newAuthService(repo)

	resp, err := issuer.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
