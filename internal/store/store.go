// Package store keeps the latest snapshot per device and category on disk.
//
// Layout: <base>/<category dir>/<prefix>_<device>.json. Writes replace the
// file through a rename, so a concurrent reader sees either the previous or
// the new document, never a partial one.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// ErrNotFound is returned by Read when no snapshot exists for the pair.
var ErrNotFound = errors.New("snapshot not found")

// EmptyDocument is written when a category could not be fetched.
var EmptyDocument = []byte("{}")

// Store is a category-partitioned snapshot directory. It is safe for
// concurrent use; different devices never touch the same file.
type Store struct {
	base string
}

// New returns a store rooted at base. It does not touch the filesystem.
func New(base string) *Store {
	return &Store{base: base}
}

// Base returns the root directory.
func (s *Store) Base() string {
	return s.base
}

// EnsureDirs creates the root and one subdirectory per category and checks
// that they are writable.
func (s *Store) EnsureDirs() error {
	for _, c := range types.Categories() {
		dir := s.dir(c)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return fmt.Errorf("snapshot directory %s not writable: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
	}
	return nil
}

// Write replaces the snapshot for (category, device) with doc.
func (s *Store) Write(category types.Category, device types.DeviceName, doc []byte) error {
	if !category.IsValid() {
		return fmt.Errorf("unknown category %q", category)
	}
	if !device.IsValid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidDeviceName, device)
	}

	dir := s.dir(category)
	target := filepath.Join(dir, category.FileName(device))

	tmp, err := os.CreateTemp(dir, "."+category.FileName(device)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting snapshot mode: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Read returns the snapshot for (category, device), or ErrNotFound.
func (s *Store) Read(category types.Category, device types.DeviceName) ([]byte, error) {
	if !category.IsValid() || !device.IsValid() {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir(category), category.FileName(device)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// List returns the devices with a snapshot in category, sorted by name.
// A missing category directory yields an empty list.
func (s *Store) List(category types.Category) ([]types.DeviceName, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	entries, err := os.ReadDir(s.dir(category))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var devices []types.DeviceName
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if name, ok := category.DeviceFromFileName(e.Name()); ok {
			devices = append(devices, name)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	return devices, nil
}

func (s *Store) dir(category types.Category) string {
	return filepath.Join(s.base, category.Dir())
}
