package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"

	"blendpredict/internal/core/domain"
)

// FSStore writes artifacts below a root directory. It is meant for local
// development and tests.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore roots the store at dir on the OS filesystem.
func NewFSStore(dir string) (*FSStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root %s: %w", dir, err)
	}
	return NewFSStoreWith(afero.NewBasePathFs(osFs, dir)), nil
}

// NewFSStoreWith uses the given filesystem as the store root.
func NewFSStoreWith(fsys afero.Fs) *FSStore {
	return &FSStore{fs: fsys}
}

func cleanKey(key string) (string, error) {
	p := path.Clean("/" + key)
	if p == "/" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("%w: invalid artifact key %q", domain.ErrArtifactNotFound, key)
	}
	return p, nil
}

// Put writes to a temporary file and renames it into place so readers never
// see a partial artifact.
func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := cleanKey(key)
	if err != nil {
		return err
	}
	if ok, err := afero.Exists(s.fs, p); err != nil {
		return fmt.Errorf("%w: stat %s: %v", domain.ErrStoreUnavailable, key, err)
	} else if ok {
		return fmt.Errorf("%w: %s", domain.ErrArtifactExists, key)
	}

	dir := path.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", domain.ErrStoreUnavailable, dir, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	if err := s.fs.Rename(tmpName, p); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, key)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return data, nil
}
