package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore keeps fallback blobs on disk under dir/collection/id.json.
type LocalStore struct {
	dir string
}

// NewLocalStore returns a LocalStore rooted at DIR. The directory is
// created lazily on first write.
func NewLocalStore(dir string) *LocalStore {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "fallback"
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &LocalStore{dir: dir}
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) path(collection, id string) string {
	return filepath.Join(s.dir, collection, id+BlobExtension)
}

// Location returns the fallback location for a blob.
func (s *LocalStore) Location(collection, id string) Location {
	return Location(FallbackScheme + filepath.ToSlash(s.path(collection, id)))
}

// Put writes the blob atomically through a temp file and rename.
func (s *LocalStore) Put(collection, id string, data []byte) (Location, error) {
	if err := validateKey(collection, id); err != nil {
		return "", err
	}
	target := s.path(collection, id)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create fallback directory '%s': %w", filepath.Dir(target), err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write fallback blob '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move fallback blob to '%s': %w", target, err)
	}
	return s.Location(collection, id), nil
}

// List returns every blob in COLLECTION ordered by id. A missing
// collection directory is an empty collection.
func (s *LocalStore) List(collection string) ([]Blob, error) {
	if err := validateSegment(collection); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.dir, collection)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read fallback directory '%s': %w", dir, err)
	}

	var blobs []Blob
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, BlobExtension) {
			continue
		}
		data, readErr := os.ReadFile(filepath.Join(dir, name))
		if readErr != nil {
			return nil, fmt.Errorf("failed to read fallback blob '%s': %w", name, readErr)
		}
		blobs = append(blobs, Blob{
			Collection: collection,
			ID:         strings.TrimSuffix(name, BlobExtension),
			Data:       data,
		})
	}
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].ID < blobs[j].ID })
	return blobs, nil
}

// Collections returns the collection directories present on disk.
func (s *LocalStore) Collections() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read fallback root '%s': %w", s.dir, err)
	}
	var collections []string
	for _, entry := range entries {
		if entry.IsDir() && validateSegment(entry.Name()) == nil {
			collections = append(collections, entry.Name())
		}
	}
	return collections, nil
}

// Delete removes a blob and reports whether it existed.
func (s *LocalStore) Delete(collection, id string) (bool, error) {
	if err := validateKey(collection, id); err != nil {
		return false, err
	}
	err := os.Remove(s.path(collection, id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to delete fallback blob: %w", err)
}
