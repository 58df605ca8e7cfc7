package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Retrieve when no object has the given name
var ErrNotExist = errors.New("object does not exist")

// StorageInterface defines the contract for storage operations
type StorageInterface interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
