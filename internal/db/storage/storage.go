// Package storage declares the contract shared by all storage backends
// along with the errors they report.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email is already registered")
	ErrURLNotFound    = errors.New("short URL not found")
	ErrShortURLExists = errors.New("short URL already exists")
)

type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	InsertURL(ctx context.Context, record models.URLRecord) error

	IsShortExists(ctx context.Context, short string) (bool, error)

	FindURLByShort(ctx context.Context, short string) (models.URLRecord, error)

	UpdateLongURL(ctx context.Context, short, long string) error

	DeleteURL(ctx context.Context, short string) error

	GetUserURLs(ctx context.Context, userID string) (models.URLMap, error)

	GetNumberOfShortenedURLs(ctx context.Context) (int64, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
