package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pawhaus/boarding-api/internal/core/domain"
)

const defaultTokenTTL = 60 * time.Minute

// TokenService issues and validates stateless HS256 bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type tokenClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenService fails when secret is empty. ttl <= 0 selects the default.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token service: signing secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// DefaultTTL is the lifetime used by IssueDefault.
func (s *TokenService) DefaultTTL() time.Duration { return s.ttl }

// Issue signs a token for the identity that expires at now+ttl. ttl is used
// as given: zero yields a token that is already expired.
func (s *TokenService) Issue(id domain.Identity, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := tokenClaims{
		UserID: id.ID,
		Email:  id.Email,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// IssueDefault issues a token with the configured lifetime.
func (s *TokenService) IssueDefault(id domain.Identity) (string, time.Time, error) {
	return s.Issue(id, s.ttl)
}

// Validate verifies signature, algorithm and expiry and decodes the
// identity. Every failure is domain.ErrUnauthenticated; callers cannot tell
// an expired token from a forged one.
func (s *TokenService) Validate(token string) (domain.Identity, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.UserID <= 0 || claims.Email == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return domain.Identity{ID: claims.UserID, Email: claims.Email, Role: role}, nil
}
