package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDatasetRepo is the HuggingFace repository holding the
	// labeled shelf dataset.
	DefaultDatasetRepo = "shelfscan/labeled-shelves"

	// HFResolveURL resolves a file inside a HuggingFace dataset repo.
	HFResolveURL = "https://huggingface.co/datasets/%s/resolve/main/%s"

	// DefaultCacheDir mirrors where Python's datasets library caches.
	DefaultCacheDir = "~/.cache/huggingface/datasets"
)

// DownloadConfig configures dataset downloading
type DownloadConfig struct {
	Repo          string
	CacheDir      string
	ForceDownload bool
	Token         string // HuggingFace token for private datasets
}

// Downloader handles downloading and caching datasets from HuggingFace
type Downloader struct {
	config DownloadConfig
}

// NewDownloader creates a new dataset downloader
func NewDownloader(config DownloadConfig) *Downloader {
	if config.Repo == "" {
		config.Repo = DefaultDatasetRepo
	}
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}

	// Expand ~ to home directory
	if strings.HasPrefix(config.CacheDir, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			config.CacheDir = filepath.Join(homeDir, config.CacheDir[1:])
		}
	}

	return &Downloader{
		config: config,
	}
}

// DownloadDataset downloads one dataset file from HuggingFace, or reuses a
// cached copy. Returns the path to the cached file.
func (d *Downloader) DownloadDataset(filename string) (string, error) {
	cacheDir := filepath.Join(d.config.CacheDir, d.config.Repo)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	cachedPath := filepath.Join(cacheDir, filename)

	if !d.config.ForceDownload {
		if _, err := os.Stat(cachedPath); err == nil {
			slog.Info("Using cached dataset", "path", cachedPath)
			return cachedPath, nil
		}
	}

	slog.Info("Downloading dataset from HuggingFace", "repo", d.config.Repo, "file", filename)

	url := fmt.Sprintf(HFResolveURL, d.config.Repo, filename)

	if err := d.downloadFile(url, cachedPath); err != nil {
		return "", fmt.Errorf("failed to download dataset: %w", err)
	}

	slog.Info("Dataset downloaded successfully", "path", cachedPath)
	return cachedPath, nil
}

// downloadFile downloads a file from a URL to a local path
func (d *Downloader) downloadFile(url, destPath string) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Add HuggingFace token if provided
	if d.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.config.Token)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	// Write through a temp file so an interrupted download leaves nothing
	// behind at the cached path.
	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	totalSize := resp.ContentLength
	downloaded := int64(0)

	buf := make([]byte, 32*1024) // 32KB buffer

	for {
		nr, er := resp.Body.Read(buf)
		if nr > 0 {
			nw, ew := out.Write(buf[0:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if ew == nil {
					ew = fmt.Errorf("invalid write result")
				}
			}
			downloaded += int64(nw)

			// Log progress every 10MB
			if downloaded%(10*1024*1024) == 0 {
				progress := float64(downloaded) / float64(totalSize) * 100
				slog.Debug("Download progress",
					"downloaded_mb", downloaded/(1024*1024),
					"total_mb", totalSize/(1024*1024),
					"progress", fmt.Sprintf("%.1f%%", progress))
			}

			if ew != nil {
				err = ew
				break
			}
			if nr != nw {
				err = io.ErrShortWrite
				break
			}
		}
		if er != nil {
			if er != io.EOF {
				err = er
			}
			break
		}
	}

	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// LoadOrDownload loads a dataset file from cache, downloading it first if
// not present, and returns a loader over it.
func LoadOrDownload(filename string, config DownloadConfig) (*Loader, error) {
	downloader := NewDownloader(config)

	datasetPath, err := downloader.DownloadDataset(filename)
	if err != nil {
		return nil, err
	}

	return NewLoader(datasetPath), nil
}
