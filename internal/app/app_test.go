package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/config"
	"github.com/patric-chuzhbe/tinyapp/internal/db/jsondb"
	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	require.NoError(t, listener.Close())

	return "127.0.0.1:" + strconv.Itoa(tcpAddr.Port)
}

func TestGetAvailableStorageType(t *testing.T) {
	assert.Equal(t, models.StorageTypePostgresql, getAvailableStorageType(&config.Config{DatabaseDSN: "dsn", DBFileName: "db.json"}))
	assert.Equal(t, models.StorageTypeFile, getAvailableStorageType(&config.Config{DBFileName: "db.json"}))
	assert.Equal(t, models.StorageTypeMemory, getAvailableStorageType(&config.Config{}))
}

func TestNewWithMemoryStorage(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SEED_DEMO_DATA", "true")

	theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer theApp.Close()

	_, isMemory := theApp.db.(*memorystorage.MemoryStorage)
	assert.True(t, isMemory)
	assert.Nil(t, theApp.snapshotter)

	recorder := httptest.NewRecorder()
	theApp.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/u/b2xVn2", nil))
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "http://www.lighthouselabs.ca", recorder.Header().Get("Location"))
}

func sessionCookieFor(t *testing.T, signedBy *App, userID string) *http.Cookie {
	t.Helper()
	token, err := auth.New(nil, signedBy.cfg.SessionCookieName, signedBy.sessionSigningSecretKey, time.Hour).
		BuildJWTString(userID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	return &http.Cookie{Name: signedBy.cfg.SessionCookieName, Value: token}
}

func getURLsWithCookie(theApp *App, cookie *http.Cookie) int {
	request := httptest.NewRequest(http.MethodGet, "/urls", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	theApp.Handler().ServeHTTP(recorder, request)

	return recorder.Code
}

func TestNewWithoutSessionKeyGeneratesOnePerApp(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SEED_DEMO_DATA", "true")

	first, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer first.Close()

	second, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer second.Close()

	require.Len(t, first.sessionSigningSecretKey, generatedSessionKeySize)
	require.Len(t, second.sessionSigningSecretKey, generatedSessionKeySize)
	assert.NotEqual(t, first.sessionSigningSecretKey, second.sessionSigningSecretKey)

	assert.Equal(t, http.StatusOK, getURLsWithCookie(second, sessionCookieFor(t, second, "aJ48lW")))
	assert.Equal(t, http.StatusForbidden, getURLsWithCookie(second, sessionCookieFor(t, first, "aJ48lW")))
	assert.Equal(t, http.StatusForbidden, getURLsWithCookie(first, sessionCookieFor(t, second, "aJ48lW")))
}

func TestNewUsesConfiguredSessionKey(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SESSION_SIGNING_SECRET_KEY", "c2VjcmV0LWtleS1mb3ItdGVzdHM=")

	theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer theApp.Close()

	assert.Equal(t, []byte("secret-key-for-tests"), theApp.sessionSigningSecretKey)
}

func TestNewDoesNotSeedByDefault(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer theApp.Close()

	recorder := httptest.NewRecorder()
	theApp.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/u/b2xVn2", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestNewRejectsBadSubnet(t *testing.T) {
	t.Setenv("TRUSTED_SUBNET", "nonsense")

	_, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	assert.Error(t, err)
}

func TestRunContextPersistsFileStorage(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "db.json")
	t.Setenv("FILE_STORAGE_PATH", fileName)
	t.Setenv("SERVER_ADDRESS", freeAddr(t))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SEED_DEMO_DATA", "true")

	theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer theApp.Close()

	_, isFile := theApp.db.(*jsondb.JSONDB)
	require.True(t, isFile)
	require.NotNil(t, theApp.snapshotter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- theApp.RunContext(ctx)
	}()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + theApp.cfg.RunAddr + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("the server did not stop")
	}

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "b2xVn2")
	assert.Contains(t, string(data), "user@example.com")
}
