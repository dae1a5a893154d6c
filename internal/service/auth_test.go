package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/plugmarket-bot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T, password string) *service.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return service.NewAuthService(discardLogger(), service.AdminCredentials{
		AdminID:      adminID,
		Username:     "admin",
		PasswordHash: string(hash),
		JWTSecret:    "secret",
	}, time.Hour)
}

func TestAuthService_Login_Success(t *testing.T) {
	authService := newAuthService(t, "s3cret")

	token, err := authService.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "1", sub)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	authService := newAuthService(t, "s3cret")

	token, err := authService.Login(context.Background(), "admin", "guess")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.Empty(t, token)
}

func TestAuthService_Login_WrongUsername(t *testing.T) {
	authService := newAuthService(t, "s3cret")

	_, err := authService.Login(context.Background(), "root", "s3cret")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_Login_NotConfigured(t *testing.T) {
	authService := service.NewAuthService(discardLogger(), service.AdminCredentials{AdminID: adminID, Username: "admin", JWTSecret: "secret"}, time.Hour)

	_, err := authService.Login(context.Background(), "admin", "")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}
