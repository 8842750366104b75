// Package testutil holds in-memory stores used by service, handler and
// router tests in place of PostgreSQL and Redis.
package testutil

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go-media-share/internal/model"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]model.User)}
}

func (s *UserStore) Create(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return model.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *UserStore) FindByIDs(_ context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := s.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *UserStore) UpdateRole(_ context.Context, id string, role model.Role, at time.Time) error {
	return s.update(id, func(u *model.User) {
		u.Role = role
		u.UpdatedAt = at
	})
}

func (s *UserStore) UpdatePassword(_ context.Context, id string, passwordHash string, at time.Time) error {
	return s.update(id, func(u *model.User) {
		u.PasswordHash = passwordHash
		u.UpdatedAt = at
	})
}

// Remove deletes a user, which the application itself never does.
func (s *UserStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *UserStore) update(id string, apply func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	apply(&user)
	s.users[id] = user
	return nil
}

type MediaStore struct {
	mu    sync.RWMutex
	media map[string]model.Media
}

func NewMediaStore() *MediaStore {
	return &MediaStore{media: make(map[string]model.Media)}
}

func (s *MediaStore) Create(_ context.Context, media model.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	media.AllowedUserIDs = slices.Clone(media.AllowedUserIDs)
	s.media[media.ID] = media
	return nil
}

func (s *MediaStore) FindByID(_ context.Context, id string) (model.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	media, ok := s.media[id]
	if !ok {
		return model.Media{}, model.ErrMediaNotFound
	}
	media.AllowedUserIDs = slices.Clone(media.AllowedUserIDs)
	return media, nil
}

func (s *MediaStore) FindAccessible(_ context.Context, userID string) ([]model.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Media, 0)
	for _, media := range s.media {
		if media.IsOwner(userID) || media.IsGrantee(userID) {
			media.AllowedUserIDs = slices.Clone(media.AllowedUserIDs)
			out = append(out, media)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MediaStore) SetAllowedUsers(_ context.Context, id string, userIDs []string) (model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	media, ok := s.media[id]
	if !ok {
		return model.Media{}, model.ErrMediaNotFound
	}
	media.AllowedUserIDs = slices.Clone(userIDs)
	if media.AllowedUserIDs == nil {
		media.AllowedUserIDs = []string{}
	}
	s.media[id] = media
	media.AllowedUserIDs = slices.Clone(media.AllowedUserIDs)
	return media, nil
}

func (s *MediaStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.media[id]; !ok {
		return model.ErrMediaNotFound
	}
	delete(s.media, id)
	return nil
}

func (s *MediaStore) ReferencedPaths(_ context.Context, paths []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{})
	for _, media := range s.media {
		if slices.Contains(paths, media.FilePath) {
			out[media.FilePath] = struct{}{}
		}
	}
	return out, nil
}

func (s *MediaStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.media)
}

// RevocationStore is a denylist without expiry handling.
type RevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{revoked: make(map[string]time.Time)}
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[tokenID]; ok {
		return false, nil
	}
	s.revoked[tokenID] = expiresAt
	return true, nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

type AuditStore struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Log(_ context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	matched := make([]model.AuditEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if query.Action != "" && !strings.EqualFold(entry.Action, query.Action) {
			continue
		}
		if query.ActorID != "" && entry.ActorID != query.ActorID {
			continue
		}
		matched = append(matched, entry)
	}

	total := len(matched)
	start := min((query.Page-1)*query.Limit, total)
	end := min(start+query.Limit, total)

	meta := model.Meta{Page: query.Page, Limit: query.Limit, Total: total}
	if total > 0 {
		meta.TotalPages = (total + query.Limit - 1) / query.Limit
	}
	return matched[start:end], meta, nil
}

func (s *AuditStore) Entries() []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}
