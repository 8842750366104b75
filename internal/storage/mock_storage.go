package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of BlobStore for failure-path tests.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) Open(ctx context.Context, key string) (io.ReadSeekCloser, BlobInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(BlobInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadSeekCloser), args.Get(1).(BlobInfo), args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) List(ctx context.Context) ([]BlobInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BlobInfo), args.Error(1)
}
