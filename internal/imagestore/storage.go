package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage persists image blobs. The Store owns the index and serializes
// writes and resets; reads may run concurrently with each other.
type Storage interface {
	// Reset removes every blob and recreates an empty location.
	Reset() error
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
}

// createTemp is replaced in tests to simulate a full disk.
var createTemp = os.CreateTemp

// DiskStorage keeps one file per image in a single directory.
type DiskStorage struct {
	dir string
}

func NewDiskStorage(dir string) *DiskStorage {
	return &DiskStorage{dir: dir}
}

func (d *DiskStorage) Reset() error {
	if err := os.RemoveAll(d.dir); err != nil {
		return fmt.Errorf("failed to remove image directory: %w", err)
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	return nil
}

// Write replaces the blob atomically: the data goes to a temporary file
// that is renamed over name, so a failed write leaves any previous blob
// intact.
func (d *DiskStorage) Write(name string, data []byte) error {
	path, err := d.path(name)
	if err != nil {
		return err
	}
	tmp, err := createTemp(d.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to write image %s: %w", name, err)
	}
	if err = tmp.Chmod(0644); err == nil {
		_, err = tmp.Write(data)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write image %s: %w", name, err)
	}
	return nil
}

func (d *DiskStorage) Read(name string) ([]byte, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", name, err)
	}
	return data, nil
}

// path rejects names that would escape the image directory.
func (d *DiskStorage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	return filepath.Join(d.dir, name), nil
}
