package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local saves uploads into a directory on disk.
type Local struct {
	dir string
}

// NewLocal creates dir if needed and returns a store rooted there.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload folder: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Save writes data under name. An existing file of the same name is never
// overwritten; the new upload gets a short unique prefix instead.
func (l *Local) Save(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return Object{}, ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	path := filepath.Join(l.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		name = uuid.NewString()[:8] + "_" + name
		path = filepath.Join(l.dir, name)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return Object{}, fmt.Errorf("creating %s: %w", name, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return Object{}, fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return Object{}, fmt.Errorf("closing %s: %w", name, err)
	}

	return Object{Name: name, Key: path, Size: int64(len(data))}, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (l *Local) Remove(ctx context.Context, key string) error {
	rel, err := filepath.Rel(l.dir, key)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ErrInvalidName
	}
	if err := os.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}
