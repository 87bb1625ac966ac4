package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/mockstorage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/shortcode"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

var _ storageKeeper = (storage.Storage)(nil)

type fixedCodes struct {
	codes []string
	next  int
}

func (f *fixedCodes) GenerateUnique(ctx context.Context, checker shortcode.ExistenceChecker) (string, error) {
	if f.next >= len(f.codes) {
		return "", shortcode.ErrExhausted
	}
	code := f.codes[f.next]
	f.next++
	return code, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := memorystorage.New()
	require.NoError(t, err)

	return New(db, shortcode.New(6), bcrypt.MinCost, "http://localhost:8080/")
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	usr, err := svc.Register(ctx, " New@Example.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "new@example.com", usr.Email)
	assert.NotEqual(t, "secret", usr.PasswordHash)

	_, err = svc.Register(ctx, "new@example.com", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(ctx, "", "secret")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = svc.Register(ctx, "someone@example.com", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	loggedIn, err := svc.Login(ctx, "NEW@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, loggedIn.ID)

	_, err = svc.Login(ctx, "new@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestURLLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	owner, err := svc.Register(ctx, "owner@example.com", "pw")
	require.NoError(t, err)
	stranger, err := svc.Register(ctx, "stranger@example.com", "pw")
	require.NoError(t, err)

	record, err := svc.ShortenURL(ctx, owner.ID, "example.com/page")
	require.NoError(t, err)
	assert.Len(t, record.ShortURL, 6)
	assert.Equal(t, "http://example.com/page", record.LongURL)
	assert.Equal(t, owner.ID, record.UserID)
	assert.Equal(t, "http://localhost:8080/u/"+record.ShortURL, svc.GetShortURL(record.ShortURL))

	longURL, err := svc.Resolve(ctx, record.ShortURL)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/page", longURL)

	_, err = svc.GetUserURL(ctx, stranger.ID, record.ShortURL)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = svc.UpdateURL(ctx, stranger.ID, record.ShortURL, "http://evil.com")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, svc.DeleteURL(ctx, stranger.ID, record.ShortURL), ErrNotOwner)
	assert.ErrorIs(t, svc.DeleteURL(ctx, "", record.ShortURL), ErrNotLoggedIn)

	strangerURLs, err := svc.GetUserURLs(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, strangerURLs)

	updated, err := svc.UpdateURL(ctx, owner.ID, record.ShortURL, "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev", updated.LongURL)

	_, err = svc.UpdateURL(ctx, owner.ID, record.ShortURL, "  ")
	assert.ErrorIs(t, err, ErrMissingURL)

	ownerURLs, err := svc.GetUserURLs(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.URLMap{record.ShortURL: updated}, ownerURLs)

	require.NoError(t, svc.DeleteURL(ctx, owner.ID, record.ShortURL))

	_, err = svc.Resolve(ctx, record.ShortURL)
	assert.ErrorIs(t, err, ErrURLNotFound)
	_, err = svc.GetUserURL(ctx, owner.ID, record.ShortURL)
	assert.ErrorIs(t, err, ErrURLNotFound)
}

func TestShortenURLRequiresExistingUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ShortenURL(context.Background(), "", "http://example.com")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = svc.ShortenURL(context.Background(), "ghost", "http://example.com")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = svc.GetUserURLs(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestShortenURLRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	db, err := memorystorage.New()
	require.NoError(t, err)
	codes := &fixedCodes{codes: []string{"taken1", "free01"}}
	svc := New(db, codes, bcrypt.MinCost, "http://localhost:8080")

	usr, err := svc.Register(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, db.InsertURL(ctx, models.URLRecord{ShortURL: "taken1", LongURL: "http://x.org", UserID: usr.ID}))

	record, err := svc.ShortenURL(ctx, usr.ID, "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "free01", record.ShortURL)

	_, err = svc.ShortenURL(ctx, usr.ID, "http://example.com")
	assert.ErrorIs(t, err, ErrShortCodeExhausted)
}

func TestNormalizeLongURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "http://example.com", want: "http://example.com"},
		{in: "HTTPS://example.com/a?b=c", want: "HTTPS://example.com/a?b=c"},
		{in: "www.google.com", want: "http://www.google.com"},
		{in: "  lighthouselabs.ca  ", want: "http://lighthouselabs.ca"},
		{in: "", wantErr: ErrMissingURL},
		{in: "http://", wantErr: ErrInvalidURL},
		{in: "http://exa mple.com", wantErr: ErrInvalidURL},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := NormalizeLongURL(test.in)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.SeedDemoData(ctx))
	require.NoError(t, svc.SeedDemoData(ctx))

	usr, err := svc.Login(ctx, "user@example.com", "purple-monkey-dinosaur")
	require.NoError(t, err)
	assert.Equal(t, "aJ48lW", usr.ID)

	second, err := svc.Login(ctx, "user2@example.com", "dishwasher-funk")
	require.NoError(t, err)
	assert.Equal(t, "user2RandomID", second.ID)

	urls, err := svc.GetUserURLs(ctx, "aJ48lW")
	require.NoError(t, err)
	assert.Len(t, urls, 2)
	assert.Equal(t, "http://www.lighthouselabs.ca", urls["b2xVn2"].LongURL)

	stats, err := svc.GetInternalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.InternalStatsResponse{URLs: 2, Users: 2}, stats)
}

func TestStorageFailures(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("connection reset")

	db := new(mockstorage.StorageMock)
	db.On("GetUserByID", mock.Anything, "u1").Return(&user.User{ID: "u1"}, nil)
	db.On("FindURLByShort", mock.Anything, "abc123").Return(models.URLRecord{}, failure)
	db.On("GetUserByEmail", mock.Anything, "a@example.com").Return(nil, failure)
	db.On("Ping", mock.Anything).Return(failure)
	db.OnGetNumberOfShortenedURLs = func(ctx context.Context) (int64, error) {
		return 0, failure
	}

	svc := New(db, shortcode.New(6), bcrypt.MinCost, "http://localhost:8080")

	_, err := svc.Resolve(ctx, "abc123")
	assert.ErrorIs(t, err, failure)
	assert.NotErrorIs(t, err, ErrURLNotFound)

	_, err = svc.GetUserURL(ctx, "u1", "abc123")
	assert.ErrorIs(t, err, failure)

	_, err = svc.Login(ctx, "a@example.com", "pw")
	assert.ErrorIs(t, err, failure)

	assert.ErrorIs(t, svc.Ping(ctx), failure)

	_, err = svc.GetInternalStats(ctx)
	assert.ErrorIs(t, err, failure)

	db.AssertExpectations(t)
}
