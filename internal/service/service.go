package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/ownership"
	"github.com/patric-chuzhbe/tinyapp/internal/shortcode"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type urlsKeeper interface {
	InsertURL(ctx context.Context, record models.URLRecord) error

	IsShortExists(ctx context.Context, short string) (bool, error)

	FindURLByShort(ctx context.Context, short string) (models.URLRecord, error)

	UpdateLongURL(ctx context.Context, short, long string) error

	DeleteURL(ctx context.Context, short string) error

	GetUserURLs(ctx context.Context, userID string) (models.URLMap, error)
}

type statsKeeper interface {
	GetNumberOfShortenedURLs(ctx context.Context) (int64, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storageKeeper interface {
	userKeeper
	urlsKeeper
	statsKeeper
	pinger
}

type codeGenerator interface {
	GenerateUnique(ctx context.Context, checker shortcode.ExistenceChecker) (string, error)
}

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotLoggedIn        = errors.New("user is not logged in")
	ErrNotOwner           = errors.New("URL belongs to another user")
	ErrURLNotFound        = errors.New("short URL not found")
	ErrMissingURL         = errors.New("long URL is required")
	ErrInvalidURL         = errors.New("long URL is not a valid http(s) URL")
	ErrShortCodeExhausted = shortcode.ErrExhausted
)

type Service struct {
	db           storageKeeper
	codes        codeGenerator
	bcryptCost   int
	shortURLBase string
}

func New(
	db storageKeeper,
	codes codeGenerator,
	bcryptCost int,
	shortURLBase string,
) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	return &Service{
		db:           db,
		codes:        codes,
		bcryptCost:   bcryptCost,
		shortURLBase: strings.TrimRight(shortURLBase, "/"),
	}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	return s.createUser(ctx, "", email, password)
}

func (s *Service) createUser(ctx context.Context, userID, email, password string) (*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/createUser(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	usr := &user.User{
		ID:           userID,
		Email:        email,
		PasswordHash: string(hash),
	}
	usr.ID, err = s.db.CreateUser(ctx, usr)
	if errors.Is(err, storage.ErrEmailTaken) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/createUser(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return usr, nil
}

// Login returns the user whose email and password match.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	usr, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Login(): error while `s.db.GetUserByEmail()` calling: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return usr, nil
}

// GetUser returns the logged-in user, or ErrNotLoggedIn for anonymous or stale sessions.
func (s *Service) GetUser(ctx context.Context, userID string) (*user.User, error) {
	if userID == "" {
		return nil, ErrNotLoggedIn
	}

	usr, err := s.db.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/GetUser(): error while `s.db.GetUserByID()` calling: %w", err)
	}

	return usr, nil
}

// NormalizeLongURL trims the value, prepends "http://" when no http(s) scheme is given
// and requires a host.
func NormalizeLongURL(longURL string) (string, error) {
	longURL = strings.TrimSpace(longURL)
	if longURL == "" {
		return "", ErrMissingURL
	}

	lower := strings.ToLower(longURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		longURL = "http://" + longURL
	}

	parsed, err := url.Parse(longURL)
	if err != nil || parsed.Host == "" || strings.ContainsAny(parsed.Host, " \t") {
		return "", ErrInvalidURL
	}

	return longURL, nil
}

// ShortenURL stores longURL under a fresh short code owned by userID.
func (s *Service) ShortenURL(ctx context.Context, userID, longURL string) (models.URLRecord, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return models.URLRecord{}, err
	}

	longURL, err := NormalizeLongURL(longURL)
	if err != nil {
		return models.URLRecord{}, err
	}

	for i := 0; i < shortcode.TriesToGenerateUniqueKey; i++ {
		short, err := s.codes.GenerateUnique(ctx, s.db)
		if err != nil {
			return models.URLRecord{}, err
		}

		record := models.URLRecord{
			ShortURL: short,
			LongURL:  longURL,
			UserID:   userID,
		}
		err = s.db.InsertURL(ctx, record)
		if errors.Is(err, storage.ErrShortURLExists) {
			continue
		}
		if err != nil {
			return models.URLRecord{}, fmt.Errorf("in internal/service/service.go/ShortenURL(): error while `s.db.InsertURL()` calling: %w", err)
		}

		return record, nil
	}

	return models.URLRecord{}, ErrShortCodeExhausted
}

// GetUserURL returns the record behind short if userID owns it.
func (s *Service) GetUserURL(ctx context.Context, userID, short string) (models.URLRecord, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return models.URLRecord{}, err
	}

	record, err := s.db.FindURLByShort(ctx, short)
	if errors.Is(err, storage.ErrURLNotFound) {
		return models.URLRecord{}, ErrURLNotFound
	}
	if err != nil {
		return models.URLRecord{}, fmt.Errorf("in internal/service/service.go/GetUserURL(): error while `s.db.FindURLByShort()` calling: %w", err)
	}

	if !ownership.Owns(userID, record) {
		return models.URLRecord{}, ErrNotOwner
	}

	return record, nil
}

// UpdateURL points an owned short code at a new long URL.
func (s *Service) UpdateURL(ctx context.Context, userID, short, longURL string) (models.URLRecord, error) {
	record, err := s.GetUserURL(ctx, userID, short)
	if err != nil {
		return models.URLRecord{}, err
	}

	longURL, err = NormalizeLongURL(longURL)
	if err != nil {
		return models.URLRecord{}, err
	}

	err = s.db.UpdateLongURL(ctx, short, longURL)
	if errors.Is(err, storage.ErrURLNotFound) {
		return models.URLRecord{}, ErrURLNotFound
	}
	if err != nil {
		return models.URLRecord{}, fmt.Errorf("in internal/service/service.go/UpdateURL(): error while `s.db.UpdateLongURL()` calling: %w", err)
	}
	record.LongURL = longURL

	return record, nil
}

// DeleteURL removes an owned short code.
func (s *Service) DeleteURL(ctx context.Context, userID, short string) error {
	if _, err := s.GetUserURL(ctx, userID, short); err != nil {
		return err
	}

	err := s.db.DeleteURL(ctx, short)
	if errors.Is(err, storage.ErrURLNotFound) {
		return ErrURLNotFound
	}
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/DeleteURL(): error while `s.db.DeleteURL()` calling: %w", err)
	}

	return nil
}

// GetUserURLs returns every URL owned by userID.
func (s *Service) GetUserURLs(ctx context.Context, userID string) (models.URLMap, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	urls, err := s.db.GetUserURLs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/GetUserURLs(): error while `s.db.GetUserURLs()` calling: %w", err)
	}

	return ownership.Filter(userID, urls), nil
}

// Resolve returns the long URL behind short. Anyone may resolve.
func (s *Service) Resolve(ctx context.Context, short string) (string, error) {
	record, err := s.db.FindURLByShort(ctx, short)
	if errors.Is(err, storage.ErrURLNotFound) {
		return "", ErrURLNotFound
	}
	if err != nil {
		return "", fmt.Errorf("in internal/service/service.go/Resolve(): error while `s.db.FindURLByShort()` calling: %w", err)
	}

	return record.LongURL, nil
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns statistics such as total shortened URLs and user count.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	urls, err := s.db.GetNumberOfShortenedURLs(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		URLs:  urls,
		Users: users,
	}, nil
}

// GetShortURL formats a short code as the public redirect URL.
func (s *Service) GetShortURL(short string) string {
	return s.shortURLBase + "/u/" + short
}
