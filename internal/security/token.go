package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-media-share/internal/model"
)

// Claims is the payload of both token kinds. Refresh tokens leave Email and
// Role empty.
type Claims struct {
	Email string          `json:"email,omitempty"`
	Role  model.Role      `json:"role,omitempty"`
	Type  model.TokenType `json:"type"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret string
	// RefreshSecret must differ from AccessSecret.
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// RefreshDisplayTTL drives refreshTokenExpiresAt in login responses and
	// is independent of the exp claim.
	RefreshDisplayTTL time.Duration
}

type TokenManager struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessTTL         time.Duration
	refreshTTL        time.Duration
	refreshDisplayTTL time.Duration
	now               func() time.Time
}

type Option func(*TokenManager)

func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewTokenManager(cfg TokenConfig, opts ...Option) (*TokenManager, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if cfg.RefreshDisplayTTL <= 0 {
		cfg.RefreshDisplayTTL = 7 * 24 * time.Hour
	}

	m := &TokenManager{
		accessSecret:      []byte(cfg.AccessSecret),
		refreshSecret:     []byte(cfg.RefreshSecret),
		accessTTL:         cfg.AccessTTL,
		refreshTTL:        cfg.RefreshTTL,
		refreshDisplayTTL: cfg.RefreshDisplayTTL,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *TokenManager) IssueAccess(subjectID string, email string, role model.Role) (string, error) {
	now := m.now()
	claims := Claims{
		Email: email,
		Role:  role,
		Type:  model.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh returns the signed token and the expiry reported to clients.
func (m *TokenManager) IssueRefresh(subjectID string) (string, time.Time, error) {
	now := m.now()
	claims := Claims{
		Type: model.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, now.Add(m.refreshDisplayTTL), nil
}

// Verify authenticates a token of the expected kind. The signing secret is
// picked from the declared type, so an authentic token of the other kind
// yields ErrWrongTokenType even when it has also expired.
func (m *TokenManager) Verify(raw string, expected model.TokenType) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		c, ok := t.Claims.(*Claims)
		if !ok {
			return nil, errors.New("unexpected claims type")
		}
		return m.secretFor(c.Type)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, model.ErrInvalidToken
	}

	if claims.Type != expected {
		return nil, model.ErrWrongTokenType
	}

	validator := jwt.NewValidator(
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err := validator.Validate(claims); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", model.ErrInvalidToken)
	}

	return claims, nil
}

func (m *TokenManager) secretFor(tokenType model.TokenType) ([]byte, error) {
	switch tokenType {
	case model.TokenTypeAccess:
		return m.accessSecret, nil
	case model.TokenTypeRefresh:
		return m.refreshSecret, nil
	default:
		return nil, fmt.Errorf("unknown token type %q", tokenType)
	}
}

// Identity converts verified access claims into the caller identity.
func (c *Claims) Identity() model.Identity {
	return model.Identity{SubjectID: c.Subject, Email: c.Email, Role: c.Role}
}

// ExpiresAtTime returns the exp claim, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
