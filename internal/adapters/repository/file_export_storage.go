package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var _ domain.ExportStorage = (*FileExportStorage)(nil)

// FileExportStorage writes exports as files under one directory.
type FileExportStorage struct {
	dir string
}

func NewFileExportStorage(dir string) (*FileExportStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir %s: %w", dir, err)
	}
	return &FileExportStorage{dir: dir}, nil
}

// Save only uses the base name of filename, so callers cannot escape dir.
func (s *FileExportStorage) Save(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid export filename %q", filename)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}
