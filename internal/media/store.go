package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"BarcodeScanner/internal/ports"
)

// maxRemoteImageSize caps thumbnail downloads from external sources.
const maxRemoteImageSize = 20 << 20

// FileStore keeps images on the local filesystem and serves them under a
// public base URL. Stored URLs are opaque to everything above this layer.
type FileStore struct {
	dir     string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.ImageStore = (*FileStore)(nil)

// NewFileStore wires the storage directory and the public URL prefix.
func NewFileStore(dir, baseURL string, logger *slog.Logger) *FileStore {
	return &FileStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Store writes the bytes under the logical name and returns a public URL.
func (s *FileStore) Store(data []byte, name string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	filePath := filepath.Join(s.dir, name)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", name, err)
	}
	return s.baseURL + "/" + name, nil
}

// StoreFromURL downloads a remote image (thumbnails referenced by the
// certification source) and stores it under the logical name. Responses
// that are not jpeg/png/webp are rejected.
func (s *FileStore) StoreFromURL(ctx context.Context, srcURL, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image source returned %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isImageContentType(contentType) {
		return "", fmt.Errorf("unexpected content type %q for %s", contentType, srcURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageSize))
	if err != nil {
		return "", fmt.Errorf("read image body: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("stored remote image", "source", srcURL, "name", name, "bytes", len(data))
	}
	return s.Store(data, name)
}

// Delete removes the stored file behind a public URL. A URL outside this
// store's prefix and an already-missing file are both no-ops.
func (s *FileStore) Delete(publicURL string) error {
	if publicURL == "" || !strings.HasPrefix(publicURL, s.baseURL+"/") {
		return nil
	}

	name := path.Base(publicURL)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image %s: %w", name, err)
	}
	return nil
}

func isImageContentType(contentType string) bool {
	for _, allowed := range []string{"image/jpeg", "image/png", "image/webp"} {
		if strings.Contains(contentType, allowed) {
			return true
		}
	}
	return false
}
