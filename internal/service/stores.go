package service

import (
	"context"
	"time"

	"go-media-share/internal/model"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, user model.User) error
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, at time.Time) error
}

type MediaStore interface {
	Create(ctx context.Context, media model.Media) error
	FindByID(ctx context.Context, id string) (model.Media, error)
	FindAccessible(ctx context.Context, userID string) ([]model.Media, error)
	SetAllowedUsers(ctx context.Context, id string, userIDs []string) (model.Media, error)
	Delete(ctx context.Context, id string) error
	ReferencedPaths(ctx context.Context, paths []string) (map[string]struct{}, error)
}

// RevocationStore is the denylist of refresh-token ids. Revoke reports
// whether this call added the id; only one concurrent caller wins.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hash string) bool
}
