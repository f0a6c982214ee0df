package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes upload objects under a single root directory. Object
// names are uuid-derived, so no path components ever come from user input.
type DiskStore struct {
	root string
}

// NewDiskStore ensures the root directory exists.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("upload root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Save streams src into the object file.
func (s *DiskStore) Save(objectName string, src io.Reader) (int64, error) {
	path, err := s.objectPath(objectName)
	if err != nil {
		return 0, err
	}
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return written, nil
}

// Open returns a reader over the stored object.
func (s *DiskStore) Open(objectName string) (io.ReadCloser, error) {
	path, err := s.objectPath(objectName)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes the stored object. Missing files are not an error.
func (s *DiskStore) Remove(objectName string) error {
	path, err := s.objectPath(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStore) objectPath(objectName string) (string, error) {
	if objectName == "" || strings.ContainsAny(objectName, `/\`) || strings.Contains(objectName, "..") {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(s.root, objectName), nil
}
