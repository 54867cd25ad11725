package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"golang.org/x/crypto/bcrypt"
)

// AuthService checks the single admin credential and mints bearer tokens.
type AuthService struct {
	username     string
	passwordHash []byte
	jwtSecret    []byte
	validity     time.Duration
}

// NewAuthService constructs an AuthService from the server config.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		username:     cfg.AdminUser,
		passwordHash: []byte(cfg.AdminPasswordHash),
		jwtSecret:    []byte(cfg.JWTSecret),
		validity:     cfg.TokenValidity,
	}
}

// Enabled reports whether logins and token checks are active.
func (s *AuthService) Enabled() bool {
	return len(s.jwtSecret) > 0 && len(s.passwordHash) > 0
}

// Login returns a signed token for a matching username and password.
func (s *AuthService) Login(_ context.Context, username, password string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("%w: authentication is disabled", common.ErrorUnauthorized)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return "", fmt.Errorf("check password: %w", err)
	}
	if !userOK || err != nil {
		return "", common.ErrorUnauthorized
	}

	return auth.GenerateToken(s.username, s.jwtSecret, s.validity)
}

// Verify checks a bearer token and returns the admin user name.
func (s *AuthService) Verify(token string) (string, error) {
	if !s.Enabled() {
		return "", common.ErrorUnauthorized
	}
	return auth.UsernameFromToken(token, s.jwtSecret)
}

// HashPassword returns the bcrypt hash expected in FOLIO_ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", common.ErrorValidation)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
