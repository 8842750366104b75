package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"go-media-share/internal/event"
	"go-media-share/internal/model"
	"go-media-share/internal/util"
	"go-media-share/pkg/apierror"
)

type UserService struct {
	users  UserStore
	hasher PasswordHasher
	bus    event.Bus
	now    func() time.Time
}

func NewUserService(users UserStore, hasher PasswordHasher, bus event.Bus) *UserService {
	return &UserService{users: users, hasher: hasher, bus: bus, now: time.Now}
}

func (s *UserService) Me(ctx context.Context, identity model.Identity) (model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, identity.SubjectID)
	if err != nil {
		return model.UserResponse{}, err
	}
	return user.Public(), nil
}

func (s *UserService) List(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Update changes a password and/or role. Users may change their own
// password; role changes and edits of other accounts require an admin.
func (s *UserService) Update(ctx context.Context, actor model.Identity, targetID string, req model.UpdateUserRequest) (model.UserResponse, error) {
	if req.NewPassword == nil && req.Role == nil {
		return model.UserResponse{}, apierror.BadRequest("nothing to update", "newPassword, role")
	}

	if targetID != actor.SubjectID && !actor.IsAdmin() {
		return model.UserResponse{}, model.ErrForbidden
	}
	if req.Role != nil && !actor.IsAdmin() {
		return model.UserResponse{}, model.ErrForbidden
	}

	if _, err := uuid.Parse(targetID); err != nil {
		return model.UserResponse{}, model.ErrUserNotFound
	}

	var role model.Role
	if req.Role != nil {
		parsed, ok := model.ParseRole(*req.Role)
		if !ok || *req.Role == "" {
			return model.UserResponse{}, apierror.BadRequest("role must be one of: user, admin", "role")
		}
		role = parsed
	}

	var hash string
	if req.NewPassword != nil {
		if err := util.ValidatePassword(*req.NewPassword); err != nil {
			return model.UserResponse{}, err
		}
		hashed, err := s.hasher.Hash(*req.NewPassword)
		if err != nil {
			return model.UserResponse{}, err
		}
		hash = hashed
	}

	now := s.now().UTC()
	if hash != "" {
		if err := s.users.UpdatePassword(ctx, targetID, hash, now); err != nil {
			return model.UserResponse{}, err
		}
	}
	if role != "" {
		if err := s.users.UpdateRole(ctx, targetID, role, now); err != nil {
			return model.UserResponse{}, err
		}
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return model.UserResponse{}, err
	}

	if s.bus != nil {
		changed := map[string]any{"passwordChanged": hash != ""}
		if role != "" {
			changed["role"] = role
		}
		s.bus.Publish(event.Event{Type: event.TypeUserUpdated, ActorID: actor.SubjectID, Resource: targetID, Payload: changed})
	}

	return user.Public(), nil
}
