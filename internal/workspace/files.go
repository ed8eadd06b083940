package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFileSource resolves attachment bytes from local disk. Permanent
// files live under the files directory, temporary uploads under the
// staging directory until they are attached to an entity.
type LocalFileSource struct {
	filesDir   string
	stagingDir string
}

// NewLocalFileSource creates a file source rooted at the workspace's
// storage directories.
func NewLocalFileSource(workspaceDir string) *LocalFileSource {
	return &LocalFileSource{
		filesDir:   filepath.Join(workspaceDir, ".taskmind", "files"),
		stagingDir: filepath.Join(workspaceDir, ".taskmind", "staging"),
	}
}

// Fetch reads the attachment's bytes, resolving the storage location by
// the attachment's temporary flag.
func (s *LocalFileSource) Fetch(ctx context.Context, att Attachment) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := s.filesDir
	if att.Temporary {
		dir = s.stagingDir
	}

	// StorageKey is store-issued, but guard traversal anyway.
	path := filepath.Join(dir, filepath.Clean("/"+att.StorageKey))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %s: %w", att.FileID, err)
	}
	return data, nil
}

// Put writes bytes under a storage key, creating directories as needed.
// Used by the CLI when staging uploads.
func (s *LocalFileSource) Put(storageKey string, temporary bool, data []byte) error {
	dir := s.filesDir
	if temporary {
		dir = s.stagingDir
	}
	path := filepath.Join(dir, filepath.Clean("/"+storageKey))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	return nil
}
