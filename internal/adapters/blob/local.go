package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalDir serves objects from a directory on disk. It is the fallback source
// for deployments that ship files alongside the binary.
type LocalDir struct {
	root string
}

func NewLocalDir(root string) *LocalDir {
	return &LocalDir{root: root}
}

func (l *LocalDir) Name() string { return "local" }

// Fetch reads the object from disk. Keys are cleaned and confined to the
// root; anything escaping it is treated as a miss, not an error.
func (l *LocalDir) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return nil, false, nil
	}
	data, err := os.ReadFile(filepath.Join(l.root, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read local object %s: %w", key, err)
	}
	return data, true, nil
}
