// Package fs stores persistence slots as files in a directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	slotExt = ".json"
	tmpExt  = ".tmp"
)

// ErrInvalidKey is returned for keys that cannot be used as a file name.
var ErrInvalidKey = errors.New("fs: invalid slot key")

// SlotDirectory implements persist.Storage with one JSON file per key.
type SlotDirectory struct {
	dir string
}

// NewSlotDirectory creates a SlotDirectory rooted at dir. The directory is
// created on first write.
func NewSlotDirectory(dir string) *SlotDirectory {
	return &SlotDirectory{dir: dir}
}

// Read returns the content of the slot file for key.
// Returns ok=false and a nil error if the file does not exist.
func (d *SlotDirectory) Read(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := d.Path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Write replaces the slot file for key atomically.
// The data goes to a uniquely named temp file in the same directory, which is
// then renamed over the slot, so concurrent writers never share a temp file.
func (d *SlotDirectory) Write(ctx context.Context, key string, data []byte) error {
	path, err := d.Path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(d.dir, key+slotExt+".*"+tmpExt)
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// IsTempName reports whether a file name is a temp file left by Write.
func IsTempName(name string) bool {
	return strings.HasSuffix(name, tmpExt) && strings.Contains(name, slotExt+".")
}

// Delete removes the slot file for key.
func (d *SlotDirectory) Delete(ctx context.Context, key string) error {
	path, err := d.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys returns the keys that have a slot file, sorted.
func (d *SlotDirectory) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, slotExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, slotExt))
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; SlotDirectory holds no open handles.
func (d *SlotDirectory) Close() error {
	return nil
}

// Dir returns the slot directory.
func (d *SlotDirectory) Dir() string {
	return d.dir
}

// Path returns the full path to the slot file for key.
func (d *SlotDirectory) Path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(d.dir, key+slotExt), nil
}

// KeyFromPath returns the slot key a file path belongs to, or false when the
// path is not a slot file of this directory.
func (d *SlotDirectory) KeyFromPath(path string) (string, bool) {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(d.dir) {
		return "", false
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, slotExt) {
		return "", false
	}
	return strings.TrimSuffix(name, slotExt), true
}
