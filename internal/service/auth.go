package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	security "github.com/linemk/plugmarket-bot/internal/jwt-new"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	log      *slog.Logger
	adminID  int64
	username string
	passHash []byte
	secret   string
	tokenTTL time.Duration
}

// AdminCredentials учётные данные админа для HTTP API
type AdminCredentials struct {
	AdminID      int64
	Username     string
	PasswordHash string
	JWTSecret    string
}

func NewAuthService(log *slog.Logger, creds AdminCredentials, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		adminID:  creds.AdminID,
		username: creds.Username,
		passHash: []byte(creds.PasswordHash),
		secret:   creds.JWTSecret,
		tokenTTL: tokenTTL,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Login сверяет логин и пароль с настроенным хэшем bcrypt и выдаёт JWT,
// subject которого - telegram id админа.
func (a *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	const op = "service.AuthService.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)
	logger.Info("checking admin credentials")

	if len(a.passHash) == 0 {
		logger.Warn("admin password hash is not configured")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if username != a.username {
		logger.Warn("unknown username")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword(a.passHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidCredentials, err)
	}

	token, err := security.NewToken(a.adminID, a.secret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("admin logged in successfully")
	return token, nil
}
