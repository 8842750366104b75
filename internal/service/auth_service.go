package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-media-share/internal/event"
	"go-media-share/internal/model"
	"go-media-share/internal/security"
	"go-media-share/internal/util"
	"go-media-share/pkg/apierror"
)

type AuthService struct {
	users       UserStore
	hasher      PasswordHasher
	tokens      *security.TokenManager
	revocations RevocationStore
	bus         event.Bus
	now         func() time.Time
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens *security.TokenManager, revocations RevocationStore, bus event.Bus) *AuthService {
	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		bus:         bus,
		now:         time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.UserResponse, error) {
	email := util.NormalizeEmail(req.Email)
	if err := util.ValidateEmail(email); err != nil {
		return model.UserResponse{}, err
	}
	if err := util.ValidatePassword(req.Password); err != nil {
		return model.UserResponse{}, err
	}

	role, ok := model.ParseRole(req.Role)
	if !ok {
		return model.UserResponse{}, apierror.BadRequest("role must be one of: user, admin", "role")
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return model.UserResponse{}, model.ErrDuplicateEmail
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return model.UserResponse{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserResponse{}, err
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index still guards against a concurrent registration.
	if err := s.users.Create(ctx, user); err != nil {
		return model.UserResponse{}, err
	}

	s.publish(event.TypeUserRegistered, user.ID, user.ID, map[string]any{"email": user.Email, "role": user.Role})
	return user.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	email := util.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return model.LoginResponse{}, apierror.BadRequest("email and password are required", "")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return model.LoginResponse{}, err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return model.LoginResponse{}, model.ErrInvalidCredentials
	}

	resp, err := s.issuePair(user)
	if err != nil {
		return model.LoginResponse{}, err
	}

	s.publish(event.TypeLogin, user.ID, user.ID, nil)
	return resp, nil
}

// Refresh rotates a refresh token. The presented token's id is claimed in
// the denylist before a new pair is issued, so each token rotates once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.LoginResponse, error) {
	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return model.LoginResponse{}, err
	}

	if err := s.revoke(ctx, claims); err != nil {
		return model.LoginResponse{}, err
	}

	resp, err := s.RefreshForSubject(ctx, claims.Subject)
	if err != nil {
		return model.LoginResponse{}, err
	}

	s.publish(event.TypeTokenRefreshed, claims.Subject, claims.Subject, nil)
	return resp, nil
}

// RefreshForSubject issues a fresh pair for a subject whose refresh token
// has already been verified.
func (s *AuthService) RefreshForSubject(ctx context.Context, subjectID string) (model.LoginResponse, error) {
	user, err := s.users.FindByID(ctx, subjectID)
	if err != nil {
		return model.LoginResponse{}, err
	}

	return s.issuePair(user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.revoke(ctx, claims); err != nil {
		return err
	}

	s.publish(event.TypeLogout, claims.Subject, claims.Subject, nil)
	return nil
}

// VerifyAccess authenticates a bearer access token and returns its claims.
func (s *AuthService) VerifyAccess(token string) (*security.Claims, error) {
	return s.tokens.Verify(token, model.TokenTypeAccess)
}

func (s *AuthService) verifyRefresh(ctx context.Context, refreshToken string) (*security.Claims, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierror.BadRequest("refreshToken is required", "refreshToken")
	}

	claims, err := s.tokens.Verify(refreshToken, model.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	if s.revocations != nil && claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check refresh token revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: refresh token revoked", model.ErrInvalidToken)
		}
	}

	return claims, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *security.Claims) error {
	if s.revocations == nil || claims.ID == "" {
		return nil
	}

	claimed, err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAtTime())
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: refresh token revoked", model.ErrInvalidToken)
	}
	return nil
}

func (s *AuthService) issuePair(user model.User) (model.LoginResponse, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return model.LoginResponse{}, err
	}

	refresh, expiresAt, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return model.LoginResponse{}, err
	}

	return model.LoginResponse{
		AccessToken:           access,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) publish(eventType event.Type, actorID string, resource string, payload any) {
	if s.bus == nil {
		return
	}

	s.bus.Publish(event.Event{Type: eventType, ActorID: actorID, Resource: resource, Payload: payload})
	slog.Debug("auth event published", "type", eventType, "user_id", actorID)
}
