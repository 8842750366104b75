package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"go-media-share/internal/model"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock) *TokenManager {
	t.Helper()

	m, err := NewTokenManager(TokenConfig{
		AccessSecret:      "access-secret",
		RefreshSecret:     "refresh-secret",
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		RefreshDisplayTTL: 3 * 24 * time.Hour,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

func TestNewTokenManagerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager(TokenConfig{AccessSecret: "same", RefreshSecret: "same", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)

	_, err = NewTokenManager(TokenConfig{AccessSecret: "a", RefreshSecret: "", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)

	_, err = NewTokenManager(TokenConfig{AccessSecret: "a", RefreshSecret: "b", AccessTTL: 0, RefreshTTL: time.Hour})
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, err := m.IssueAccess("user-1", "a@example.com", model.RoleAdmin)
	require.NoError(t, err)

	claims, err := m.Verify(token, model.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "a@example.com", claims.Email)
	require.Equal(t, model.RoleAdmin, claims.Role)
	require.Equal(t, model.TokenTypeAccess, claims.Type)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, clock.current.Add(15*time.Minute), claims.ExpiresAtTime())

	identity := claims.Identity()
	require.Equal(t, model.Identity{SubjectID: "user-1", Email: "a@example.com", Role: model.RoleAdmin}, identity)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, expiresAt, err := m.IssueRefresh("user-1")
	require.NoError(t, err)
	require.Equal(t, clock.current.Add(3*24*time.Hour), expiresAt)

	claims, err := m.Verify(token, model.TokenTypeRefresh)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Empty(t, claims.Email)
	require.Equal(t, clock.current.Add(7*24*time.Hour), claims.ExpiresAtTime())
}

func TestVerifyRejectsWrongType(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	access, err := m.IssueAccess("user-1", "a@example.com", model.RoleUser)
	require.NoError(t, err)
	refresh, _, err := m.IssueRefresh("user-1")
	require.NoError(t, err)

	_, err = m.Verify(access, model.TokenTypeRefresh)
	require.ErrorIs(t, err, model.ErrWrongTokenType)

	_, err = m.Verify(refresh, model.TokenTypeAccess)
	require.ErrorIs(t, err, model.ErrWrongTokenType)

	t.Run("wrong type wins over expiry", func(t *testing.T) {
		clock.Advance(30 * 24 * time.Hour)
		_, err := m.Verify(refresh, model.TokenTypeAccess)
		require.ErrorIs(t, err, model.ErrWrongTokenType)
	})
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, err := m.IssueAccess("user-1", "a@example.com", model.RoleUser)
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)
	_, err = m.Verify(token, model.TokenTypeAccess)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, err := m.IssueAccess("user-1", "a@example.com", model.RoleUser)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Verify("not-a-token", model.TokenTypeAccess)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("modified signature", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		_, err := m.Verify(parts[0]+"."+parts[1]+"."+string(sig), model.TokenTypeAccess)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("signed with foreign secret", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Type: model.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(clock.current),
				ExpiresAt: jwt.NewNumericDate(clock.current.Add(time.Hour)),
			},
		}).SignedString([]byte("other-secret"))
		require.NoError(t, err)

		_, err = m.Verify(forged, model.TokenTypeAccess)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("refresh kind signed with access secret", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Type: model.TokenTypeRefresh,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(clock.current),
				ExpiresAt: jwt.NewNumericDate(clock.current.Add(time.Hour)),
			},
		}).SignedString([]byte("access-secret"))
		require.NoError(t, err)

		_, err = m.Verify(forged, model.TokenTypeRefresh)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("unknown type", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Type: "session",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(clock.current.Add(time.Hour)),
			},
		}).SignedString([]byte("access-secret"))
		require.NoError(t, err)

		_, err = m.Verify(forged, model.TokenTypeAccess)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
			Type: model.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(clock.current.Add(time.Hour)),
			},
		}).SignedString([]byte("access-secret"))
		require.NoError(t, err)

		_, err = m.Verify(forged, model.TokenTypeAccess)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})
}

func TestTokensAreUnique(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	first, _, err := m.IssueRefresh("user-1")
	require.NoError(t, err)
	second, _, err := m.IssueRefresh("user-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
