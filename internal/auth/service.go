// Package auth implements the administrative session guard.
//
// Exactly one identity, configured through ADMIN_EMAIL, may hold an
// administrative session. Login checks the candidate email against that
// identity (case-insensitively) and the password against the stored bcrypt
// hash, then issues a signed, expiring session token. Authorization
// re-checks the identity inside the token on every guarded request; a valid
// token carrying any other identity is rejected and the session destroyed.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers a wrong email or wrong password; the two
	// are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated means no usable session token was presented.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrWrongIdentity means the token is valid but belongs to an identity
	// other than the configured administrator. Callers must destroy the
	// session when they see this.
	ErrWrongIdentity = errors.New("identity is not authorized")
	// ErrNotConfigured means the administrative identity is not set up.
	ErrNotConfigured = errors.New("administrative access is not configured")
)

// Session is the authenticated identity extracted from a valid token.
type Session struct {
	Email     string
	ExpiresAt time.Time
}

// Service issues and validates administrative session tokens.
type Service struct {
	allowedEmail string
	passwordHash string
	signingKey   []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewService builds the guard for the single allowed identity. allowedEmail
// is canonicalized to lower case; passwordHash is a bcrypt hash.
func NewService(allowedEmail, passwordHash, signingKey string, ttl time.Duration) *Service {
	return &Service{
		allowedEmail: strings.ToLower(strings.TrimSpace(allowedEmail)),
		passwordHash: passwordHash,
		signingKey:   []byte(signingKey),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Configured reports whether an administrative identity is set up.
func (s *Service) Configured() bool {
	return s.allowedEmail != "" && s.passwordHash != "" && len(s.signingKey) > 0
}

// Login validates the credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Session, error) {
	if !s.Configured() {
		return "", nil, ErrNotConfigured
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != s.allowedEmail {
		// Burn a comparison anyway so the two failure modes cost the same.
		_ = bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	expires := s.now().Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, err
	}
	return token, &Session{Email: email, ExpiresAt: expires}, nil
}

// Authorize validates a session token and enforces that it belongs to the
// configured administrator.
//
// Any parse, signature, or expiry failure yields ErrNotAuthenticated. A
// structurally valid token for a different identity yields ErrWrongIdentity;
// the caller is expected to destroy the presented session in that case.
func (s *Service) Authorize(ctx context.Context, token string) (*Session, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrNotAuthenticated
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrNotAuthenticated
	}

	email := strings.ToLower(strings.TrimSpace(claims.Subject))
	if email != s.allowedEmail {
		return nil, ErrWrongIdentity
	}

	sess := &Session{Email: email}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
