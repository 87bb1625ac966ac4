package memorystorage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

var _ storage.Storage = (*MemoryStorage)(nil)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		ctx := context.Background()
		theStorage, err := New()
		assert.NoError(t, err, "The memorystorage.New() should not return error")

		firstID, err := theStorage.CreateUser(ctx, &user.User{Email: "user@example.com"})
		require.NoError(t, err)
		secondID, err := theStorage.CreateUser(ctx, &user.User{Email: "user2@example.com"})
		require.NoError(t, err)

		require.NoError(t, theStorage.InsertURL(ctx, models.URLRecord{ShortURL: "aaaaaa", LongURL: "http://a.com", UserID: firstID}))
		require.NoError(t, theStorage.InsertURL(ctx, models.URLRecord{ShortURL: "bbbbbb", LongURL: "http://b.com", UserID: secondID}))

		urls, err := theStorage.GetUserURLs(ctx, firstID)
		require.NoError(t, err)
		assert.Len(t, urls, 1)
		assert.Contains(t, urls, "aaaaaa")

		err = theStorage.Ping(ctx)
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		assert.NoError(t, theStorage.Save())

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})
}

func TestConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	theStorage, err := New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			short := fmt.Sprintf("s%05d", i)
			assert.NoError(t, theStorage.InsertURL(ctx, models.URLRecord{ShortURL: short, LongURL: "http://x.org", UserID: "u"}))
			_, _ = theStorage.GetUserURLs(ctx, "u")
		}(i)
	}
	wg.Wait()

	count, err := theStorage.GetNumberOfShortenedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)
}
