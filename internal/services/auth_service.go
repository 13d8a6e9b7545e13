package services

import (
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner mints a signed admin credential valid for ttl.
type TokenSigner func(ttl time.Duration) (string, error)

// TokenVerifier checks a previously issued credential.
type TokenVerifier func(token string) error

// AuthService verifies the single admin password and exchanges it for a
// short-lived signed token. Every failure mode (wrong password, missing
// configuration, bad token) collapses into the same unauthorized error so
// the client learns nothing about server configuration.
type AuthService struct {
	passwordHash []byte // bcrypt hash; preferred when set
	password     string // plaintext fallback
	signToken    TokenSigner
	verifyToken  TokenVerifier
	tokenTTL     time.Duration
}

// DefaultTokenTTL bounds an admin login to two hours.
const DefaultTokenTTL = 2 * time.Hour

func NewAuthService(password, passwordHash string, signer TokenSigner, verifier TokenVerifier, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		passwordHash: []byte(strings.TrimSpace(passwordHash)),
		password:     password,
		signToken:    signer,
		verifyToken:  verifier,
		tokenTTL:     ttl,
	}
}

// Login exchanges the admin password for a signed token.
func (s *AuthService) Login(password string) (string, error) {
	if !s.checkPassword(password) {
		return "", NewUnauthorizedError("unauthorized")
	}
	if s.signToken == nil {
		return "", NewUnauthorizedError("unauthorized")
	}
	tok, err := s.signToken(s.tokenTTL)
	if err != nil {
		return "", NewUnauthorizedError("unauthorized")
	}
	return tok, nil
}

// Verify checks a token presented with a non-login admin action.
func (s *AuthService) Verify(token string) error {
	if token == "" || s.verifyToken == nil {
		return NewUnauthorizedError("unauthorized")
	}
	if err := s.verifyToken(token); err != nil {
		return NewUnauthorizedError("unauthorized")
	}
	return nil
}

func (s *AuthService) checkPassword(password string) bool {
	if password == "" {
		return false
	}
	if len(s.passwordHash) > 0 {
		return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	}
	if s.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.password), []byte(password)) == 1
}

// TokenTTL returns the configured token lifetime.
func (s *AuthService) TokenTTL() time.Duration { return s.tokenTTL }
