// Package storage keeps uploaded files, either in a local directory or in an
// S3 compatible bucket.
package storage

import (
	"context"
	"errors"
)

var ErrInvalidName = errors.New("storage: invalid file name")

// Object describes a saved upload.
type Object struct {
	Name string // secured file name
	Key  string // path on disk or object key
	Size int64
}

// Store saves uploads. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, name, contentType string, data []byte) (Object, error)
	Remove(ctx context.Context, key string) error
}
