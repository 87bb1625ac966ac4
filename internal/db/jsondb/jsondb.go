// Package jsondb keeps users and URL records in memory and persists them
// to a JSON file on Save and Close.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/ownership"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type CacheStruct struct {
	Users map[string]*user.User
	URLs  models.URLMap
}

// NewCache returns an empty cache with initialized maps.
func NewCache() CacheStruct {
	return CacheStruct{
		Users: map[string]*user.User{},
		URLs:  models.URLMap{},
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}

	return json.NewDecoder(file).Decode(cache)
}

// New loads the database from fileName. A missing file means an empty database;
// the file is created on the first Save.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
	}

	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*user.User{}
	}
	if db.Cache.URLs == nil {
		db.Cache.URLs = models.URLMap{}
	}

	return db, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Save writes the current state to the file. It does nothing without a file name.
func (db *JSONDB) Save() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) Close() error {
	return db.Save()
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	email := user.NormalizeEmail(usr.Email)
	for _, existing := range db.Cache.Users {
		if existing.Email == email {
			return "", storage.ErrEmailTaken
		}
	}

	userID := usr.ID
	if userID == "" {
		userID = uuid.New().String()
	}
	if _, exists := db.Cache.Users[userID]; exists {
		return "", fmt.Errorf("user %q already exists", userID)
	}

	db.Cache.Users[userID] = &user.User{
		ID:           userID,
		Email:        email,
		PasswordHash: usr.PasswordHash,
	}

	return userID, nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, storage.ErrUserNotFound
	}
	result := *usr

	return &result, nil
}

func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	email = user.NormalizeEmail(email)
	for _, usr := range db.Cache.Users {
		if usr.Email == email {
			result := *usr
			return &result, nil
		}
	}

	return nil, storage.ErrUserNotFound
}

func (db *JSONDB) InsertURL(ctx context.Context, record models.URLRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.URLs[record.ShortURL]; exists {
		return storage.ErrShortURLExists
	}
	db.Cache.URLs[record.ShortURL] = record

	return nil
}

func (db *JSONDB) IsShortExists(ctx context.Context, short string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.Cache.URLs[short]

	return exists, nil
}

func (db *JSONDB) FindURLByShort(ctx context.Context, short string) (models.URLRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	record, found := db.Cache.URLs[short]
	if !found {
		return models.URLRecord{}, storage.ErrURLNotFound
	}

	return record, nil
}

func (db *JSONDB) UpdateLongURL(ctx context.Context, short, long string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, found := db.Cache.URLs[short]
	if !found {
		return storage.ErrURLNotFound
	}
	record.LongURL = long
	db.Cache.URLs[short] = record

	return nil
}

func (db *JSONDB) DeleteURL(ctx context.Context, short string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.URLs[short]; !found {
		return storage.ErrURLNotFound
	}
	delete(db.Cache.URLs, short)

	return nil
}

func (db *JSONDB) GetUserURLs(ctx context.Context, userID string) (models.URLMap, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return ownership.Filter(userID, db.Cache.URLs), nil
}

func (db *JSONDB) GetNumberOfShortenedURLs(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.URLs)), nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}
