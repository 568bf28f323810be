/*
	Blob storage on the local filesystem.

	Every upload gets a freshly generated uuid filename under the
	configured root; the name carries no meaning and is not derived from
	the content. Thumbnails are written next to their original as
	<path>_<width>.
*/
package disk

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Write stores data under a fresh collision-free path and returns it.
func (s *Store) Write(data []byte) (string, error) {
	path := filepath.Join(s.root, uuid.New().String())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// WritePath stores data at an exact location, overwriting what was there.
// Used for derivatives, whose paths are fixed siblings of the original.
func (s *Store) WritePath(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DerivativePath names the resized sibling of an original blob.
func DerivativePath(path string, width int) string {
	return fmt.Sprintf("%s_%d", path, width)
}
