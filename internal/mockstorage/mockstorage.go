// Package mockstorage provides a testify-based mock of the storage contract.
// Service and router tests use it to simulate storage failures
// that the in-memory backend never produces.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfShortenedURLs works like OnGetNumberOfUsers for GetNumberOfShortenedURLs.
	OnGetNumberOfShortenedURLs func(ctx context.Context) (int64, error)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) InsertURL(ctx context.Context, record models.URLRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *StorageMock) IsShortExists(ctx context.Context, short string) (bool, error) {
	args := m.Called(ctx, short)
	return args.Bool(0), args.Error(1)
}

func (m *StorageMock) FindURLByShort(ctx context.Context, short string) (models.URLRecord, error) {
	args := m.Called(ctx, short)
	record, _ := args.Get(0).(models.URLRecord)
	return record, args.Error(1)
}

func (m *StorageMock) UpdateLongURL(ctx context.Context, short, long string) error {
	args := m.Called(ctx, short, long)
	return args.Error(0)
}

func (m *StorageMock) DeleteURL(ctx context.Context, short string) error {
	args := m.Called(ctx, short)
	return args.Error(0)
}

func (m *StorageMock) GetUserURLs(ctx context.Context, userID string) (models.URLMap, error) {
	args := m.Called(ctx, userID)
	urls, _ := args.Get(0).(models.URLMap)
	return urls, args.Error(1)
}

// GetNumberOfUsers returns the mocked number of users.
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	args := m.Called(ctx)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

// GetNumberOfShortenedURLs returns the mocked number of stored URLs.
func (m *StorageMock) GetNumberOfShortenedURLs(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfShortenedURLs != nil {
		return m.OnGetNumberOfShortenedURLs(ctx)
	}
	args := m.Called(ctx)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

// Ping mocks a storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
