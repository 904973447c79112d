package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirSource is an ArtifactSource that reads transcript files from a
// directory. The ref is a file name relative to the root.
type DirSource struct {
	root string
}

var _ ArtifactSource = (*DirSource)(nil)

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Fetch implements ArtifactSource.
// Refs that escape the root directory are rejected as not found.
func (s *DirSource) Fetch(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean(ref)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, ref)
	}

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("read artifact %s: %w", ref, err)
	}
	return string(data), nil
}
