// Package catalog looks up book metadata in the Google Books volumes API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
)

const (
	defaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

	// searchTimeout bounds one catalog lookup. Lookups run inline during
	// enrichment, so a slow catalog must not stall the whole batch.
	searchTimeout = 5 * time.Second

	maxResults = 5
)

// ErrUnavailable wraps transport and non-200 failures from the catalog.
var ErrUnavailable = errors.New("catalog unavailable")

// Client represents a Google Books API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a catalog client. An empty baseURL selects the public
// Google Books endpoint; the API key is optional and raises quota limits
// when set.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: searchTimeout,
		},
	}
}

// Search looks up a book by title and optional author. Only the first
// ranked result is used. A definitive empty result returns (nil, nil) so
// callers can record "looked up, nothing found"; transport and HTTP
// failures return an error instead and must not be cached.
func (c *Client) Search(ctx context.Context, title, author string) (*models.BookMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("empty title")
	}

	q := "intitle:" + url.QueryEscape(title)
	author = strings.TrimSpace(author)
	if author != "" && !strings.EqualFold(author, models.UnknownAuthor) {
		q += "+inauthor:" + url.QueryEscape(author)
	}

	searchURL := fmt.Sprintf("%s?q=%s&maxResults=%d", c.baseURL, q, maxResults)
	if c.apiKey != "" {
		searchURL += "&key=" + url.QueryEscape(c.apiKey)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var result struct {
		TotalItems int `json:"totalItems"`
		Items      []struct {
			VolumeInfo volumeInfo `json:"volumeInfo"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	if result.TotalItems == 0 || len(result.Items) == 0 {
		return nil, nil
	}

	meta := result.Items[0].VolumeInfo.metadata()
	return &meta, nil
}

type volumeInfo struct {
	Title               string   `json:"title"`
	Authors             []string `json:"authors"`
	Description         string   `json:"description"`
	Categories          []string `json:"categories"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
}

// metadata extracts the fields worth keeping from a volume. The 13-digit
// identifier wins over the legacy 10-digit one, the larger thumbnail wins
// over the smaller, and cover URLs are upgraded to https before they get
// anywhere near storage.
func (v volumeInfo) metadata() models.BookMetadata {
	var isbn10, isbn13 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			isbn13 = id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	isbn := isbn13
	if isbn == "" {
		isbn = isbn10
	}

	cover := v.ImageLinks.Thumbnail
	if cover == "" {
		cover = v.ImageLinks.SmallThumbnail
	}
	if strings.HasPrefix(cover, "http://") {
		cover = "https://" + strings.TrimPrefix(cover, "http://")
	}

	return models.BookMetadata{
		ISBN:        isbn,
		CoverURL:    cover,
		Description: v.Description,
		Categories:  v.Categories,
	}
}
