// Package memorystorage is the process-local storage: the jsondb engine without a backing file.
// Everything is lost on restart.
package memorystorage

import (
	"github.com/patric-chuzhbe/tinyapp/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

func (theStorage *MemoryStorage) Save() error {
	return nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
