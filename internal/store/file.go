// ABOUTME: File backend storing each collection as a pretty-printed JSON file
// ABOUTME: Writes go to a temp file that is fsynced and renamed over the original

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileBackend stores collection c at <dir>/<c>.json.
type FileBackend struct {
	dir    string
	logger *slog.Logger
}

// NewFileBackend creates the data directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileBackend{
		dir:    dir,
		logger: slog.Default().With("component", "store.file"),
	}, nil
}

// Path returns the file that holds collection c.
func (f *FileBackend) Path(c Collection) string {
	return filepath.Join(f.dir, string(c)+".json")
}

func (f *FileBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c, err)
	}
	return data, nil
}

func (f *FileBackend) Save(ctx context.Context, c Collection, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+string(c)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path(c)); err != nil {
		return fmt.Errorf("replacing %s: %w", c, err)
	}
	committed = true

	f.logger.Debug("wrote collection", "collection", c, "bytes", len(doc))
	return nil
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) Close() error { return nil }

var _ Backend = (*FileBackend)(nil)
