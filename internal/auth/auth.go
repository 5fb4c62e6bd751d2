package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wordsanctuary/guestbook/internal/config"
)

// CookieName carries the minister session token for browser clients.
const CookieName = "minister_session"

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
)

// Claims is the minister session token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks the shared minister password and issues session tokens.
// A zero PasswordHash disables it: every request is let through.
type Authenticator struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		hash:   []byte(cfg.PasswordHash),
		secret: []byte(cfg.SecretKey),
		ttl:    cfg.TokenTTL(),
		now:    time.Now,
	}
}

// Enabled reports whether minister routes require a session.
func (a *Authenticator) Enabled() bool {
	return len(a.hash) > 0
}

// TTL is the session lifetime.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Login verifies the password and returns a signed session token.
func (a *Authenticator) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return a.Issue()
}

// Issue signs a fresh minister token.
func (a *Authenticator) Issue() (string, error) {
	now := a.now()
	claims := &Claims{
		Role: "minister",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "minister",
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

// Validate parses a token and returns its claims.
func (a *Authenticator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type ctxKey struct{}

// FromContext returns the claims RequireMinister stored, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// RequireMinister blocks requests without a valid session token, taken from
// the Authorization bearer header or the session cookie.
func (a *Authenticator) RequireMinister(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		tok := bearer(r)
		if tok == "" {
			if c, err := r.Cookie(CookieName); err == nil {
				tok = c.Value
			}
		}
		if tok == "" {
			unauthorized(w, "minister sign-in required")
			return
		}
		claims, err := a.Validate(tok)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="minister"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", msg)
}
