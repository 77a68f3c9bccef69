// Package images retrieves shelf photos from remote URLs, for uploads that
// reference an image by URL and for pulling eval dataset photos to disk.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	fetchTimeout = 30 * time.Second

	// maxImageBytes caps one fetched photo. Phone shelf photos run a few
	// MB; anything past this is not a photo we want in memory.
	maxImageBytes = 20 * 1024 * 1024

	// minImageBytes rejects tiny responses, which are error pages or
	// placeholder images rather than photos.
	minImageBytes = 1024
)

// Fetcher downloads images over HTTP.
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates an image fetcher with a bounded request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// Fetch retrieves the image at rawURL and returns its bytes. It verifies
// the scheme, the response size bounds, and that the payload sniffs as an
// image before handing anything to a vision model.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid image URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported image URL scheme: %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image too large (over %d bytes)", maxImageBytes)
	}
	if len(data) < minImageBytes {
		return nil, fmt.Errorf("image too small (likely placeholder), size: %d bytes", len(data))
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not serve an image (detected %s)", ct)
	}

	return data, nil
}

// Download fetches the image at rawURL and writes it to destPath, creating
// parent directories as needed. The write goes through a temp file so a
// failed download never leaves a truncated image behind.
func (f *Fetcher) Download(ctx context.Context, rawURL, destPath string) error {
	data, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create image directory: %w", err)
		}
	}

	tempPath := destPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move image file: %w", err)
	}

	return nil
}
