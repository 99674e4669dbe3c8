package store

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore writes opaque blobs below a root directory and hands out URLs
// under baseURL. Paths use forward slashes, e.g. photos/<kit>/<design>.jpg.
type BlobStore struct {
	root    string
	baseURL string
}

func NewBlobStore(root, baseURL string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &BlobStore{root: root, baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/")}, nil
}

func (b *BlobStore) Root() string {
	return b.root
}

func (b *BlobStore) Put(blobPath string, data []byte) (string, error) {
	clean, err := cleanBlobPath(blobPath)
	if err != nil {
		return "", err
	}
	target := filepath.Join(b.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := writeFileAtomic(target, data, 0o644); err != nil {
		return "", err
	}
	return b.URL(clean), nil
}

// Delete is a no-op for blobs that do not exist.
func (b *BlobStore) Delete(blobPath string) error {
	clean, err := cleanBlobPath(blobPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(b.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (b *BlobStore) URL(blobPath string) string {
	return b.baseURL + "/" + strings.TrimPrefix(blobPath, "/")
}

func PhotoPath(kitID, designID string) string {
	return fmt.Sprintf("photos/%s/%s.jpg", kitID, designID)
}

func cleanBlobPath(blobPath string) (string, error) {
	raw := strings.TrimSpace(blobPath)
	if raw == "" {
		return "", errors.New("blob path is required")
	}
	clean := path.Clean(strings.TrimPrefix(raw, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "\\") {
		return "", fmt.Errorf("invalid blob path %q", blobPath)
	}
	return clean, nil
}
