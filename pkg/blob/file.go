package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/mcpmap/pkg/errors"
)

// File is a Store backed by a local directory. Keys map to file paths under
// the base directory; writes go through a temp file and rename so a partial
// write never corrupts prior state.
type File struct {
	base string
}

// NewFile creates a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, &errors.ConfigError{Component: "blob", Message: "base directory is required"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapIO("mkdir", dir, err)
	}
	return &File{base: dir}, nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return data, nil
}

// Put implements Store.
func (f *File) Put(_ context.Context, key string, data []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapIO("mkdir", filepath.Dir(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return errors.WrapIO("write", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO("write", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// path converts a blob key to a path under the base directory, rejecting
// keys that would escape it.
func (f *File) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", &errors.ValidationError{Field: "key", Value: key, Message: "invalid blob key"}
	}
	return filepath.Join(f.base, filepath.FromSlash(key)), nil
}
