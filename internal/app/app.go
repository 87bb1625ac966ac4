// Package app initializes and runs tinyapp.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/config"
	"github.com/patric-chuzhbe/tinyapp/internal/db/jsondb"
	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/db/postgresdb"
	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/router"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/shortcode"
	"github.com/patric-chuzhbe/tinyapp/internal/snapshotter"
)

const (
	shutdownTimeout = 10 * time.Second

	generatedSessionKeySize = 32
)

// App encapsulates the configuration, HTTP handler, storage backend
// and the snapshot job needed to run tinyapp.
type App struct {
	cfg                     *config.Config
	db                      storage.Storage
	snapshotter             *snapshotter.Snapshotter
	sessionSigningSecretKey []byte
	httpHandler             http.Handler
}

type initOptions struct {
	configOptions []config.InitOption
}

type InitOption func(*initOptions)

// WithConfigOptions passes options through to config.New.
func WithConfigOptions(configOptions ...config.InitOption) InitOption {
	return func(options *initOptions) {
		options.configOptions = append(options.configOptions, configOptions...)
	}
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - seeding the demo data when enabled
// - scheduling snapshots of a file-backed store
// - setting up the router and middleware
func New(optionsProto ...InitOption) (*App, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var err error
	app := &App{}

	app.cfg, err = config.New(options.configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	svc := service.New(
		app.db,
		shortcode.New(app.cfg.ShortCodeLength),
		app.cfg.BcryptCost,
		app.cfg.ShortURLBase,
	)

	if app.cfg.SeedDemoData {
		if err := svc.SeedDemoData(context.Background()); err != nil {
			return nil, errors.Join(err, app.db.Close())
		}
	}

	if fileDB, ok := app.db.(*jsondb.JSONDB); ok && app.cfg.SnapshotSchedule != "" {
		app.snapshotter, err = snapshotter.New(fileDB, app.cfg.SnapshotSchedule)
		if err != nil {
			return nil, errors.Join(err, app.db.Close())
		}
	}

	app.sessionSigningSecretKey, err = getSessionSigningSecretKey(app.cfg.SessionSigningSecretKey)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	checker, err := ipchecker.New(
		app.cfg.TrustedSubnet,
		ipchecker.WithProxyHeaders(app.cfg.TrustProxyHeaders),
	)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	app.httpHandler = router.New(
		svc,
		auth.New(
			app.db,
			app.cfg.SessionCookieName,
			app.sessionSigningSecretKey,
			app.cfg.SessionMaxAge,
		),
		checker,
		[]string{app.cfg.ShortURLBase},
	)

	return app, nil
}

// Handler exposes the configured router.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.RunContext(ctx)
}

// RunContext serves until ctx is done, then shuts the server down and closes the storage.
func (a *App) RunContext(ctx context.Context) error {
	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.snapshotter != nil {
		a.snapshotter.Start()
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infow("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var shutdownErr error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		return errors.Join(shutdownErr, a.closeStorage(shutdownCtx))

	case err := <-serverErrCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(fmt.Errorf("server error: %w", err), a.closeStorage(shutdownCtx))
	}
}

func (a *App) closeStorage(ctx context.Context) error {
	if a.snapshotter != nil {
		if err := a.snapshotter.Stop(ctx); err != nil {
			logger.Log.Errorw("Error stopping the snapshotter", zap.Error(err))
		}
	}

	return a.db.Close()
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

// getSessionSigningSecretKey decodes the configured key. Without one, a random key
// is generated, so sessions do not survive a restart.
func getSessionSigningSecretKey(encoded string) ([]byte, error) {
	if encoded == "" {
		key := make([]byte, generatedSessionKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("in internal/app/app.go/getSessionSigningSecretKey(): error while `rand.Read()` calling: %w", err)
		}
		logger.Log.Warnw("SESSION_SIGNING_SECRET_KEY is not set, using a random key; sessions will not survive a restart")

		return key, nil
	}

	key, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/getSessionSigningSecretKey(): error while `base64.URLEncoding.DecodeString()` calling: %w", err)
	}

	return key, nil
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DatabaseDriver,
			cfg.DBConnectionTimeout,
			postgresdb.WithMigrationsDir(cfg.MigrationsDir),
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
