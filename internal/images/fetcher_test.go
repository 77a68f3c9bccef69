package images

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// testImage returns bytes that sniff as image/png and clear the minimum
// size check.
func testImage(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte("\x89PNG\r\n\x1a\n"))
	return data
}

func TestFetch(t *testing.T) {
	payload := testImage(4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	fetcher := NewFetcher()
	data, err := fetcher.Fetch(context.Background(), server.URL+"/shelf.png")
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got error: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("Expected %d bytes back, got %d", len(payload), len(data))
	}
}

func TestFetchRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "tiny placeholder",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(testImage(64))
			},
		},
		{
			name: "not an image",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(bytes.Repeat([]byte("<html>not a photo</html>"), 200))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			fetcher := NewFetcher()
			if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}

func TestFetchRejectsBadScheme(t *testing.T) {
	fetcher := NewFetcher()
	if _, err := fetcher.Fetch(context.Background(), "ftp://example.com/shelf.jpg"); err == nil {
		t.Error("Expected an error for non-HTTP scheme, got nil")
	}
}

func TestDownload(t *testing.T) {
	payload := testImage(2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "shelves", "sample-1.png")
	fetcher := NewFetcher()
	if err := fetcher.Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("Expected download to succeed, got error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Expected file at %s, got error: %v", dest, err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("Expected %d bytes on disk, got %d", len(payload), len(data))
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temp file to be cleaned up after rename")
	}
}
