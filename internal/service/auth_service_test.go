package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	"github.com/nexus-edu/nexus-enroll-api/pkg/config"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
)

type authStoreFake struct {
	byID       map[string]*models.User
	byUsername map[string]*models.User
	byEmail    map[string]*models.User
	nextID     int
}

func newAuthStoreFake() *authStoreFake {
	return &authStoreFake{
		byID:       map[string]*models.User{},
		byUsername: map[string]*models.User{},
		byEmail:    map[string]*models.User{},
	}
}

func (f *authStoreFake) add(user *models.User) {
	f.byID[user.ID] = user
	f.byUsername[user.Username] = user
	f.byEmail[user.Email] = user
}

func (f *authStoreFake) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *authStoreFake) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *authStoreFake) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *authStoreFake) Create(ctx context.Context, user *models.User) error {
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.add(user)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "nexus-enroll-test"}
}

func seedAccount(t *testing.T, store *authStoreFake, username, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + username,
		Username:     username,
		Email:        username + "@example.edu",
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		FullName:     "Test User",
		IsActive:     active,
	}
	store.add(user)
	return user
}

func TestLoginIssuesValidToken(t *testing.T) {
	store := newAuthStoreFake()
	seedAccount(t, store, "ada", "hunter22", true)
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "hunter22"})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	assert.Equal(t, int64(3600), result.ExpiresIn)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-ada", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newAuthStoreFake()
	seedAccount(t, store, "ada", "hunter22", true)
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrCode(t, err))
}

func TestLoginUnknownUsername(t *testing.T) {
	svc := NewAuthService(newAuthStoreFake(), testJWTConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrCode(t, err))
}

func TestLoginInactiveAccount(t *testing.T) {
	store := newAuthStoreFake()
	seedAccount(t, store, "ada", "hunter22", false)
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "hunter22"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrCode(t, err))
}

func TestSignupCreatesStudent(t *testing.T) {
	store := newAuthStoreFake()
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	user, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "newkid",
		Password: "secret1",
		Email:    "newkid@example.edu",
		FullName: "New Kid",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "secret1", user.PasswordHash)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc := NewAuthService(newAuthStoreFake(), testJWTConfig(), nil, nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "newkid",
		Password: "abc",
		Email:    "newkid@example.edu",
		FullName: "New Kid",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrCode(t, err))
}

func TestSignupDuplicateUsername(t *testing.T) {
	store := newAuthStoreFake()
	seedAccount(t, store, "ada", "hunter22", true)
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "ada",
		Password: "secret1",
		Email:    "other@example.edu",
		FullName: "Other Ada",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already taken")
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	store := newAuthStoreFake()
	seedAccount(t, store, "ada", "hunter22", true)
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "hunter22"})
	require.NoError(t, err)

	other := NewAuthService(store, config.JWTConfig{Secret: "different", Expiration: time.Hour}, nil, nil)
	_, err = other.ValidateToken(result.AccessToken)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrCode(t, err))
}
