// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for persisting users and their short URLs.
// The schema is managed with goose migrations embedded into the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"

	uniqueViolationCode = "23505"
)

// PostgresDB is a PostgreSQL-backed implementation of the tinyapp storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset    bool
	MigrationsDir string
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping all tables before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// WithMigrationsDir makes goose read migrations from a directory on disk
// instead of the embedded ones.
func WithMigrationsDir(dir string) InitOption {
	return func(options *initOptions) {
		options.MigrationsDir = dir
	}
}

// New opens the database with the given driver ("pgx" or "postgres"),
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	driverName string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if driverName == "" {
		driverName = DriverPgx
	}

	database, err := sql.Open(driverName, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, errors.Join(err, database.Close())
		}
	}

	if err := result.migrate(ctx, options.MigrationsDir); err != nil {
		return nil, errors.Join(err, database.Close())
	}

	return result, nil
}

func (db *PostgresDB) migrate(ctx context.Context, migrationsDir string) error {
	if migrationsDir == "" {
		goose.SetBaseFS(embeddedMigrations)
		migrationsDir = "migrations"
	} else {
		goose.SetBaseFS(nil)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/migrate(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, db.database, migrationsDir); err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/migrate(): error while `goose.UpContext()` calling: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}

	return false
}

// CreateUser inserts a new user. A user without ID gets a fresh UUID.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	userID := usr.ID
	if userID == "" {
		userID = uuid.New().String()
	}

	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		userID,
		user.NormalizeEmail(usr.Email),
		usr.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", storage.ErrEmailTaken
		}
		return "", err
	}

	return userID, nil
}

func (db *PostgresDB) getUser(ctx context.Context, query string, arg string) (*user.User, error) {
	row := db.database.QueryRowContext(ctx, query, arg)

	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Email, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	return usr, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, email, password_hash FROM users WHERE id = $1`, userID)
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, email, password_hash FROM users WHERE email = $1`, user.NormalizeEmail(email))
}

func (db *PostgresDB) InsertURL(ctx context.Context, record models.URLRecord) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO urls (short, long, user_id) VALUES ($1, $2, $3)`,
		record.ShortURL,
		record.LongURL,
		record.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrShortURLExists
		}
		return err
	}

	return nil
}

func (db *PostgresDB) IsShortExists(ctx context.Context, short string) (bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM urls WHERE short = $1)`,
		short,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (db *PostgresDB) FindURLByShort(ctx context.Context, short string) (models.URLRecord, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT short, long, user_id FROM urls WHERE short = $1`,
		short,
	)
	var record models.URLRecord
	err := row.Scan(&record.ShortURL, &record.LongURL, &record.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.URLRecord{}, storage.ErrURLNotFound
		}
		return models.URLRecord{}, err
	}

	return record, nil
}

func (db *PostgresDB) execAffectingOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := db.database.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrURLNotFound
	}

	return nil
}

func (db *PostgresDB) UpdateLongURL(ctx context.Context, short, long string) error {
	return db.execAffectingOne(ctx, `UPDATE urls SET long = $2 WHERE short = $1`, short, long)
}

func (db *PostgresDB) DeleteURL(ctx context.Context, short string) error {
	return db.execAffectingOne(ctx, `DELETE FROM urls WHERE short = $1`, short)
}

// GetUserURLs returns every URL owned by userID keyed by short code.
func (db *PostgresDB) GetUserURLs(ctx context.Context, userID string) (models.URLMap, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT short, long, user_id FROM urls WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := models.URLMap{}
	for rows.Next() {
		var record models.URLRecord
		if err := rows.Scan(&record.ShortURL, &record.LongURL, &record.UserID); err != nil {
			return nil, err
		}
		result[record.ShortURL] = record
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

func (db *PostgresDB) GetNumberOfShortenedURLs(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM urls`)
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
