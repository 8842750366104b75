package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-media-share/internal/model"
	"go-media-share/internal/security"
	"go-media-share/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestUserService_Update(t *testing.T) {
	t.Parallel()

	users := testutil.NewUserStore()
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	svc := NewUserService(users, hasher, nil)
	ctx := context.Background()

	seed := func(email string, role model.Role) model.Identity {
		hash, err := hasher.Hash(testPassword)
		require.NoError(t, err)
		now := time.Now().UTC()
		user := model.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, Role: role, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, users.Create(ctx, user))
		return model.Identity{SubjectID: user.ID, Email: email, Role: role}
	}

	alice := seed("alice@example.com", model.RoleUser)
	bob := seed("bob@example.com", model.RoleUser)
	admin := seed("admin@example.com", model.RoleAdmin)

	t.Run("self password change", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, alice.SubjectID, model.UpdateUserRequest{NewPassword: strPtr("N3w!Password")})
		require.NoError(t, err)

		stored, err := users.FindByID(ctx, alice.SubjectID)
		require.NoError(t, err)
		assert.True(t, hasher.Verify("N3w!Password", stored.PasswordHash))
	})

	t.Run("user cannot change own role", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, alice.SubjectID, model.UpdateUserRequest{Role: strPtr("admin")})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("user cannot edit others", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, bob.SubjectID, model.UpdateUserRequest{NewPassword: strPtr("N3w!Password")})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("admin promotes user", func(t *testing.T) {
		updated, err := svc.Update(ctx, admin, bob.SubjectID, model.UpdateUserRequest{Role: strPtr("admin")})
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, updated.Role)
	})

	t.Run("admin on unknown user", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, uuid.NewString(), model.UpdateUserRequest{Role: strPtr("user")})
		assert.ErrorIs(t, err, model.ErrUserNotFound)
	})

	t.Run("empty request", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, alice.SubjectID, model.UpdateUserRequest{})
		assert.Error(t, err)
	})

	t.Run("list returns public views", func(t *testing.T) {
		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("me", func(t *testing.T) {
		me, err := svc.Me(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", me.Email)
	})
}

func TestPermissionGuard(t *testing.T) {
	t.Parallel()

	media := model.Media{OwnerID: "owner", AllowedUserIDs: []string{"grantee"}}

	assert.True(t, CanAccess("owner", media))
	assert.True(t, CanAccess("grantee", media))
	assert.False(t, CanAccess("stranger", media))
	assert.False(t, CanAccess("", media))

	assert.True(t, CanMutate("owner", media))
	assert.False(t, CanMutate("grantee", media))
}
