package service

import (
	"context"
	"fmt"
	"image"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-media-share/internal/model"
	"go-media-share/internal/util"
	"go-media-share/pkg/apierror"
)

const (
	MinThumbnailSize     = 32
	MaxThumbnailSize     = 1024
	DefaultThumbnailSize = 256
)

// Thumbnail returns a JPEG preview of an image the caller may read. Previews
// are cached per media id and size under the thumbnail root.
func (s *MediaService) Thumbnail(ctx context.Context, identity model.Identity, id string, size int) (*os.File, os.FileInfo, error) {
	if size < MinThumbnailSize || size > MaxThumbnailSize {
		return nil, nil, apierror.BadRequest(fmt.Sprintf("size must be between %d and %d", MinThumbnailSize, MaxThumbnailSize), strconv.Itoa(size))
	}

	media, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, nil, err
	}

	if !util.IsThumbnailMIME(media.MimeType) {
		return nil, nil, apierror.Wrap(model.ErrUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "thumbnails are only available for images", media.MimeType, http.StatusUnsupportedMediaType)
	}

	thumbPath := filepath.Join(s.thumbnailDir(media.ID), strconv.Itoa(size)+".jpg")
	if thumbInfo, err := os.Stat(thumbPath); err == nil {
		if thumbFile, openErr := os.Open(thumbPath); openErr == nil {
			return thumbFile, thumbInfo, nil
		}
	}

	reader, media, err := s.Open(ctx, identity, id)
	if err != nil {
		return nil, nil, err
	}
	src, _, err := image.Decode(reader)
	_ = reader.Close()
	if err != nil {
		return nil, nil, apierror.Wrap(model.ErrUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "image could not be decoded", media.MimeType, http.StatusUnsupportedMediaType)
	}

	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create thumbnail directory: %w", err)
	}

	return writeThumbnail(src, thumbPath, size)
}

// writeThumbnail scales src so its longest side is at most size and writes
// it as a JPEG. Images are never enlarged.
func writeThumbnail(src image.Image, thumbPath string, size int) (*os.File, os.FileInfo, error) {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 1 || height < 1 {
		return nil, nil, apierror.Wrap(model.ErrUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "image has no pixels", "", http.StatusUnsupportedMediaType)
	}

	scale := float64(size) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}

	targetWidth := max(int(math.Round(float64(width)*scale)), 1)
	targetHeight := max(int(math.Round(float64(height)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	tmp, err := os.CreateTemp(filepath.Dir(thumbPath), ".thumb-*")
	if err != nil {
		return nil, nil, err
	}
	tmpName := tmp.Name()

	encodeErr := jpeg.Encode(tmp, dst, &jpeg.Options{Quality: 95})
	closeErr := tmp.Close()
	if encodeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if encodeErr != nil {
			return nil, nil, encodeErr
		}
		return nil, nil, closeErr
	}

	if err := os.Rename(tmpName, thumbPath); err != nil {
		_ = os.Remove(tmpName)
		return nil, nil, err
	}

	thumbFile, err := os.Open(thumbPath)
	if err != nil {
		return nil, nil, err
	}

	thumbInfo, err := thumbFile.Stat()
	if err != nil {
		_ = thumbFile.Close()
		return nil, nil, err
	}

	return thumbFile, thumbInfo, nil
}
