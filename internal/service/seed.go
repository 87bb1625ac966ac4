package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

type demoUser struct {
	id       string
	email    string
	password string
}

var demoUsers = []demoUser{
	{id: "aJ48lW", email: "user@example.com", password: "purple-monkey-dinosaur"},
	{id: "user2RandomID", email: "user2@example.com", password: "dishwasher-funk"},
}

var demoURLs = []models.URLRecord{
	{ShortURL: "b2xVn2", LongURL: "http://www.lighthouselabs.ca", UserID: "aJ48lW"},
	{ShortURL: "9sm5xK", LongURL: "http://www.google.com", UserID: "aJ48lW"},
}

// SeedDemoData creates the demo users and their URLs.
// Records that already exist are left as they are, so seeding a persistent store twice is safe.
func (s *Service) SeedDemoData(ctx context.Context) error {
	for _, demo := range demoUsers {
		_, err := s.createUser(ctx, demo.id, demo.email, demo.password)
		if err != nil && !errors.Is(err, ErrEmailTaken) {
			return fmt.Errorf("in internal/service/seed.go/SeedDemoData(): error while `s.createUser()` calling: %w", err)
		}
	}

	for _, record := range demoURLs {
		err := s.db.InsertURL(ctx, record)
		if err != nil && !errors.Is(err, storage.ErrShortURLExists) {
			return fmt.Errorf("in internal/service/seed.go/SeedDemoData(): error while `s.db.InsertURL()` calling: %w", err)
		}
	}

	return nil
}
