package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-media-share/internal/event"
	"go-media-share/internal/model"
	"go-media-share/internal/storage"
	"go-media-share/internal/util"
	"go-media-share/pkg/apierror"
)

const DefaultMaxUploadSize int64 = 5 << 20

type MediaConfig struct {
	AllowedMIMETypes []string
	MaxUploadSize    int64
	ThumbnailRoot    string
}

type MediaService struct {
	media         MediaStore
	users         UserStore
	blobs         storage.BlobStore
	allowed       *util.MIMEMatcher
	maxUploadSize int64
	thumbnailRoot string
	bus           event.Bus
	now           func() time.Time
}

func NewMediaService(media MediaStore, users UserStore, blobs storage.BlobStore, cfg MediaConfig, bus event.Bus) *MediaService {
	maxSize := cfg.MaxUploadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}

	thumbnailRoot := strings.TrimSpace(cfg.ThumbnailRoot)
	if thumbnailRoot == "" {
		thumbnailRoot = "./state/thumbnails"
	}

	return &MediaService{
		media:         media,
		users:         users,
		blobs:         blobs,
		allowed:       util.NewMIMEMatcher(cfg.AllowedMIMETypes),
		maxUploadSize: maxSize,
		thumbnailRoot: thumbnailRoot,
		bus:           bus,
		now:           time.Now,
	}
}

func (s *MediaService) MaxUploadSize() int64 {
	return s.maxUploadSize
}

// Upload stores the bytes read from r and records them as owned by the
// caller. The stored type is the sniffed one; declaredMIME is advisory.
func (s *MediaService) Upload(ctx context.Context, identity model.Identity, fileName string, declaredMIME string, r io.Reader) (model.Media, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return model.Media{}, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "invalid file name", fileName, http.StatusBadRequest)
	}

	head := make([]byte, util.SniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return model.Media{}, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return model.Media{}, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "file is empty", name, http.StatusBadRequest)
	}
	head = head[:n]

	mimeType := util.DetectMIME(head)
	if declared := strings.TrimSpace(declaredMIME); declared != "" && util.MajorType(declared) != util.MajorType(mimeType) {
		slog.Debug("declared content type differs from sniffed type", "declared", declared, "detected", mimeType, "file", name)
	}
	if !s.allowed.Allows(mimeType) {
		return model.Media{}, apierror.Wrap(model.ErrUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "file type is not allowed", mimeType, http.StatusUnsupportedMediaType)
	}

	id := uuid.NewString()
	now := s.now().UTC()
	key := fmt.Sprintf("%s/%d-%s%s", util.MajorType(mimeType), now.UnixMilli(), id, util.ExtensionFor(name, mimeType))

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), r), remaining: s.maxUploadSize}
	size, err := s.blobs.Save(ctx, key, body, mimeType)
	if err != nil {
		if body.exceeded() || errors.Is(err, model.ErrPayloadTooLarge) {
			return model.Media{}, apierror.Wrap(model.ErrPayloadTooLarge, "PAYLOAD_TOO_LARGE", "file exceeds the upload limit", fmt.Sprintf("max %d bytes", s.maxUploadSize), http.StatusRequestEntityTooLarge)
		}
		return model.Media{}, fmt.Errorf("store upload: %w", err)
	}

	media := model.Media{
		ID:             id,
		OwnerID:        identity.SubjectID,
		FileName:       name,
		FilePath:       key,
		MimeType:       mimeType,
		Size:           size,
		AllowedUserIDs: []string{},
		CreatedAt:      now,
	}

	if err := s.media.Create(ctx, media); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			slog.Warn("failed to remove blob after metadata error", "key", key, "error", delErr)
		}
		return model.Media{}, err
	}

	s.publish(event.TypeMediaUploaded, identity.SubjectID, media.ID, map[string]any{
		"fileName": media.FileName,
		"mimeType": media.MimeType,
		"size":     media.Size,
	})
	return media, nil
}

func (s *MediaService) ListAccessible(ctx context.Context, identity model.Identity) ([]model.Media, error) {
	items, err := s.media.FindAccessible(ctx, identity.SubjectID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Media{}
	}
	return items, nil
}

func (s *MediaService) Get(ctx context.Context, identity model.Identity, id string) (model.Media, error) {
	media, err := s.load(ctx, id)
	if err != nil {
		return model.Media{}, err
	}
	if !CanAccess(identity.SubjectID, media) {
		return model.Media{}, model.ErrForbidden
	}
	return media, nil
}

// Open returns the stored bytes of a media item the caller may read.
// The caller closes the reader.
func (s *MediaService) Open(ctx context.Context, identity model.Identity, id string) (io.ReadSeekCloser, model.Media, error) {
	media, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, model.Media{}, err
	}

	reader, _, err := s.blobs.Open(ctx, media.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			slog.Warn("media record without blob", "media_id", media.ID, "key", media.FilePath)
			return nil, model.Media{}, model.ErrMediaNotFound
		}
		return nil, model.Media{}, err
	}

	return reader, media, nil
}

// Delete removes the record first. Blob and thumbnail cleanup is best
// effort; leftovers are reclaimed by the orphan sweeper.
func (s *MediaService) Delete(ctx context.Context, identity model.Identity, id string) error {
	media, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !CanMutate(identity.SubjectID, media) {
		return model.ErrForbidden
	}

	if err := s.media.Delete(ctx, media.ID); err != nil {
		return err
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.blobs.Delete(cleanupCtx, media.FilePath); err != nil {
		slog.Warn("failed to delete media blob", "media_id", media.ID, "key", media.FilePath, "error", err)
	}
	if err := os.RemoveAll(s.thumbnailDir(media.ID)); err != nil {
		slog.Warn("failed to delete thumbnails", "media_id", media.ID, "error", err)
	}

	s.publish(event.TypeMediaDeleted, identity.SubjectID, media.ID, map[string]any{"fileName": media.FileName})
	return nil
}

func (s *MediaService) GetPermissions(ctx context.Context, identity model.Identity, id string) (model.MediaPermissions, error) {
	media, err := s.load(ctx, id)
	if err != nil {
		return model.MediaPermissions{}, err
	}
	if !CanMutate(identity.SubjectID, media) {
		return model.MediaPermissions{}, model.ErrForbidden
	}

	return s.permissionsView(ctx, media)
}

// permissionsView resolves the owner and grantees of media to user identities.
func (s *MediaService) permissionsView(ctx context.Context, media model.Media) (model.MediaPermissions, error) {
	users, err := s.users.FindByIDs(ctx, append([]string{media.OwnerID}, media.AllowedUserIDs...))
	if err != nil {
		return model.MediaPermissions{}, err
	}

	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	owner := model.UserInfo{ID: media.OwnerID}
	if u, ok := byID[media.OwnerID]; ok {
		owner = u.Info()
	}

	allowed := make([]model.UserInfo, 0, len(media.AllowedUserIDs))
	for _, grantee := range media.AllowedUserIDs {
		if u, ok := byID[grantee]; ok {
			allowed = append(allowed, u.Info())
		}
	}

	return model.MediaPermissions{
		ID:             media.ID,
		FileName:       media.FileName,
		FilePath:       media.FilePath,
		MimeType:       media.MimeType,
		Size:           media.Size,
		CreatedAt:      media.CreatedAt,
		Owner:          owner,
		AllowedUserIDs: media.AllowedUserIDs,
		AllowedUsers:   allowed,
	}, nil
}

// SetPermissions replaces the grant list. Duplicates and the owner are
// dropped; every remaining id must name an existing user. The updated
// permissions view is returned.
func (s *MediaService) SetPermissions(ctx context.Context, identity model.Identity, id string, userIDs []string) (model.MediaPermissions, error) {
	media, err := s.load(ctx, id)
	if err != nil {
		return model.MediaPermissions{}, err
	}
	if !CanMutate(identity.SubjectID, media) {
		return model.MediaPermissions{}, model.ErrForbidden
	}

	grantees := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, raw := range userIDs {
		parsed, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return model.MediaPermissions{}, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "allowedUserIds must contain valid user ids", raw, http.StatusBadRequest)
		}

		userID := parsed.String()
		if userID == media.OwnerID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		grantees = append(grantees, userID)
	}

	if len(grantees) > 0 {
		found, err := s.users.FindByIDs(ctx, grantees)
		if err != nil {
			return model.MediaPermissions{}, err
		}
		for _, u := range found {
			delete(seen, u.ID)
		}
		if len(seen) > 0 {
			missing := make([]string, 0, len(seen))
			for _, userID := range grantees {
				if _, ok := seen[userID]; ok {
					missing = append(missing, userID)
				}
			}
			return model.MediaPermissions{}, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "unknown user ids", strings.Join(missing, ","), http.StatusBadRequest)
		}
	}

	updated, err := s.media.SetAllowedUsers(ctx, media.ID, grantees)
	if err != nil {
		return model.MediaPermissions{}, err
	}

	s.publish(event.TypeMediaPermissionsUpdate, identity.SubjectID, media.ID, map[string]any{"allowedUserIds": grantees})
	return s.permissionsView(ctx, updated)
}

func (s *MediaService) load(ctx context.Context, id string) (model.Media, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return model.Media{}, model.ErrMediaNotFound
	}
	return s.media.FindByID(ctx, parsed.String())
}

func (s *MediaService) publish(eventType event.Type, actorID string, resource string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{Type: eventType, ActorID: actorID, Resource: resource, Payload: payload})
}

func (s *MediaService) thumbnailDir(mediaID string) string {
	return filepath.Join(s.thumbnailRoot, mediaID)
}

// limitedReader fails with ErrPayloadTooLarge once more than remaining
// bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) exceeded() bool {
	return l.remaining < 0
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, model.ErrPayloadTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}

	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, model.ErrPayloadTooLarge
	}
	return n, err
}
