package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified caller of a session.
type Identity struct {
	Subject  string
	Username string
	Role     string
}

// Claims is the HS256 token payload: sub, username, role, exp.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks a bearer token and returns who it belongs to.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

// Service issues and verifies HS256 tokens.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the iss claim written on issue and required on verify.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a token service signing with secret.
func New(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	s := &Service{
		secret: secret,
		ttl:    24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromConfig creates a service from cfg.
func NewFromConfig(cfg Config) (*Service, error) {
	return New([]byte(cfg.Secret), WithIssuer(cfg.Issuer), WithTTL(cfg.TTL))
}

// Issue signs a token for id.
func (s *Service) Issue(id Identity) (string, error) {
	now := s.now()
	claims := Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature, algorithm, expiry and issuer.
// Every failure matches ErrAuth.
func (s *Service) VerifyToken(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: %w", ErrAuth, ErrMissingToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, fmt.Errorf("%w: %w", ErrAuth, ErrExpiredToken)
	case err != nil:
		return Identity{}, fmt.Errorf("%w: %w: %v", ErrAuth, ErrInvalidToken, err)
	}

	id := Identity{Subject: claims.Subject, Username: claims.Username, Role: claims.Role}
	if id.Username == "" {
		id.Username = id.Subject
	}
	if id.Username == "" {
		return Identity{}, fmt.Errorf("%w: %w: no subject", ErrAuth, ErrInvalidToken)
	}
	return id, nil
}

// TokenFromFrame extracts the token from a {"token":"..."} frame.
func TokenFromFrame(raw []byte) (string, error) {
	var frame struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuth, ErrMissingToken)
	}
	if strings.TrimSpace(frame.Token) == "" {
		return "", fmt.Errorf("%w: %w", ErrAuth, ErrMissingToken)
	}
	return frame.Token, nil
}
