package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalClient stores artifacts on the local filesystem under the media root.
// Suitable for development and single-node deployments.
type LocalClient struct {
	root      string
	publicURL string
}

func NewLocalClient(root, publicURL string) *LocalClient {
	return &LocalClient{root: root, publicURL: publicURL}
}

// Upload writes the object under the media root and returns its URL.
func (c *LocalClient) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	path := filepath.Join(c.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return c.GetPublicURL(key), nil
}

// Delete removes an object from the media root
func (c *LocalClient) Delete(_ context.Context, key string) error {
	if err := os.Remove(filepath.Join(c.root, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetSignedURL returns the public URL; local storage has no signing.
func (c *LocalClient) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return c.GetPublicURL(key), nil
}

// GetPublicURL returns the URL the API serves the media root under
func (c *LocalClient) GetPublicURL(key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", c.publicURL, key)
	}
	return "/media/" + key
}
