package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrBlobNotFound = errors.New("blob not found")

type BlobInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// BlobStore holds uploaded bytes under opaque slash-separated keys.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadSeekCloser, BlobInfo, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]BlobInfo, error)
}

const tempPrefix = ".upload-"

// DiskStore keeps blobs as files under a root directory.
type DiskStore struct {
	validator *PathValidator
}

func NewDiskStore(root string) (*DiskStore, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &DiskStore{validator: validator}, nil
}

func (s *DiskStore) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *DiskStore) resolveKey(key string) (string, error) {
	resolved, err := s.validator.ResolvePath(key)
	if err != nil {
		return "", err
	}
	if resolved == s.validator.RootAbs() {
		return "", fmt.Errorf("blob key %q resolves to storage root", key)
	}
	return resolved, nil
}

// Save writes to a temporary file next to the target and renames it into
// place, so readers never observe a partial blob.
func (s *DiskStore) Save(ctx context.Context, key string, r io.Reader, _ string) (int64, error) {
	resolved, err := s.resolveKey(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(resolved), tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, copyErr := io.CopyBuffer(tmp, &contextReader{ctx: ctx, r: r}, make([]byte, 32*1024))
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return written, copyErr
		}
		return written, fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpName, resolved); err != nil {
		_ = os.Remove(tmpName)
		return written, fmt.Errorf("move blob into place: %w", err)
	}

	return written, nil
}

func (s *DiskStore) Open(_ context.Context, key string) (io.ReadSeekCloser, BlobInfo, error) {
	resolved, err := s.resolveKey(key)
	if err != nil {
		return nil, BlobInfo{}, err
	}

	file, err := os.Open(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, BlobInfo{}, ErrBlobNotFound
	}
	if err != nil {
		return nil, BlobInfo{}, fmt.Errorf("open blob %q: %w", key, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, BlobInfo{}, fmt.Errorf("stat blob %q: %w", key, err)
	}

	return file, BlobInfo{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete is idempotent: removing a missing blob succeeds.
func (s *DiskStore) Delete(_ context.Context, key string) error {
	resolved, err := s.resolveKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %q: %w", key, err)
	}
	return nil
}

func (s *DiskStore) List(ctx context.Context) ([]BlobInfo, error) {
	root := s.validator.RootAbs()
	blobs := make([]BlobInfo, 0)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		blobs = append(blobs, BlobInfo{Key: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	return blobs, nil
}

// contextReader stops a copy once the request context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
