package partition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore serves objects from a local directory tree with the same layout as
// the remote store.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("fs store: root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FSStore{root: abs}, nil
}

func (s *FSStore) Name() string { return "fs" }

func (s *FSStore) Get(ctx context.Context, name string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	clean := path.Clean("/" + name)
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, fmt.Errorf("%s: %w", name, ErrObjectNotFound)
		}
		return Object{}, err
	}
	return Object{
		Path:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(full)),
		Body:        data,
	}, nil
}
