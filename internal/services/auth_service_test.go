package services

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func stubSigner(tok string, err error) TokenSigner {
	return func(time.Duration) (string, error) { return tok, err }
}

func stubVerifier(err error) TokenVerifier {
	return func(string) error { return err }
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginPlaintextPassword(t *testing.T) {
	svc := NewAuthService("hunter2", "", stubSigner("tok-1", nil), stubVerifier(nil), 0)

	tok, err := svc.Login("hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("unexpected token %q", tok)
	}
	if svc.TokenTTL() != DefaultTokenTTL {
		t.Fatalf("expected default TTL, got %s", svc.TokenTTL())
	}

	_, err = svc.Login("wrong")
	requireUnauthorized(t, err)
	_, err = svc.Login("")
	requireUnauthorized(t, err)
}

func TestLoginBcryptHashPreferred(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	// plaintext set too; the hash must win
	svc := NewAuthService("other", string(hash), stubSigner("tok", nil), stubVerifier(nil), time.Hour)

	if _, err := svc.Login("s3cret"); err != nil {
		t.Fatalf("Login with hashed password: %v", err)
	}
	_, err = svc.Login("other")
	requireUnauthorized(t, err)
}

func TestLoginWithoutConfiguredPassword(t *testing.T) {
	svc := NewAuthService("", "", stubSigner("tok", nil), stubVerifier(nil), time.Hour)
	_, err := svc.Login("anything")
	requireUnauthorized(t, err)
}

func TestLoginSignerFailureIsOpaque(t *testing.T) {
	svc := NewAuthService("pw", "", stubSigner("", errors.New("hsm down")), stubVerifier(nil), time.Hour)
	_, err := svc.Login("pw")
	requireUnauthorized(t, err)
}

func TestVerify(t *testing.T) {
	svc := NewAuthService("pw", "", stubSigner("tok", nil), stubVerifier(nil), time.Hour)
	if err := svc.Verify("tok"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	requireUnauthorized(t, svc.Verify(""))

	bad := NewAuthService("pw", "", stubSigner("tok", nil), stubVerifier(errors.New("expired")), time.Hour)
	requireUnauthorized(t, bad.Verify("tok"))
}
