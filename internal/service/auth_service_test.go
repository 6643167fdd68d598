package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revoked       []string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{
		users:         make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u-1",
		Email:        "asha@vidyalaya.edu",
		PasswordHash: string(hash),
		FullName:     "Asha Verma",
		Role:         models.RoleTeacher,
		Active:       true,
	}
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "vidyalaya-api",
	}
}

func TestLoginSuccessIssuesTokens(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@vidyalaya.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "u-1", res.User.ID)
	assert.Equal(t, models.RoleTeacher, res.User.Role)
	require.Len(t, repo.refreshTokens, 1)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@vidyalaya.edu", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Empty(t, repo.refreshTokens)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@vidyalaya.edu", Password: "whatever"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginInactiveAccount(t *testing.T) {
	user := testUser(t, "secret123")
	user.Active = false
	svc := NewAuthService(newMockAuthRepo(user), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@vidyalaya.edu", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestValidateTokenRoundTrip(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@vidyalaya.edu", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "vidyalaya-api", claims.Issuer)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@vidyalaya.edu", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the used token is revoked, a second exchange must fail
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	repo.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "u-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret456",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revoked, "u-1")

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u-1"].PasswordHash), []byte("newsecret456")))
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret456",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t, "secret123"))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@vidyalaya.edu", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	// idempotent for already revoked and unknown tokens
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), "unknown"))
}
