package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AdminClaims is the payload of the admin credential: just a role marker and
// the registered expiry/issue claims. The client never inspects it; it only
// stores and forwards the compact form.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignAdminToken mints an HS256 admin token valid for ttl.
func SignAdminToken(secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseAdminToken validates signature, expiry and role.
func ParseAdminToken(secret []byte, tok string) error {
	t, err := jwt.ParseWithClaims(tok, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	c, ok := t.Claims.(*AdminClaims)
	if !ok || !t.Valid || c.Role != "admin" {
		return errors.New("invalid token")
	}
	return nil
}

// RequireAdmin guards plain HTTP routes with a bearer token. The admin action
// endpoint carries its token in the request body instead and validates it in
// the handler; this middleware covers everything else (e.g. uploaded assets
// behind an admin-only prefix).
func RequireAdmin(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if ParseAdminToken(secret, tok) == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}
