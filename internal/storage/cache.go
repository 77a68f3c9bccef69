package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shelfscan/shelfscan/internal/models"
)

// LookupMetadata returns the cache entry for the normalized (title, author)
// key, or (nil, nil) when the pair has never been looked up. No fuzzy
// matching; key equality only.
func (s *Store) LookupMetadata(ctx context.Context, title, author string) (*models.CacheEntry, error) {
	key := models.NewCacheKey(title, author)

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, isbn, cover_url, description, categories, cached_at
		FROM book_metadata_cache
		WHERE title_key = ? AND author_key = ?
	`, key.Title, key.Author)

	var e models.CacheEntry
	var isbn, cover, desc, cats sql.NullString
	if err := row.Scan(&e.ID, &e.Title, &e.Author, &isbn, &cover, &desc, &cats, &e.CachedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup metadata: %w", err)
	}

	e.Metadata.ISBN = isbn.String
	e.Metadata.CoverURL = cover.String
	e.Metadata.Description = desc.String
	if cats.Valid && cats.String != "" {
		if err := json.Unmarshal([]byte(cats.String), &e.Metadata.Categories); err != nil {
			return nil, fmt.Errorf("decode cached categories: %w", err)
		}
	}
	return &e, nil
}

// UpsertMetadata records the result of a catalog lookup for (title, author).
// A nil meta records a definitive "looked up, nothing found" so the pair is
// not retried. Repeat writes for the same key overwrite only the metadata
// fields; the display-cased title and author stay as first recorded.
// Concurrent writers converge on one row, last writer wins.
func (s *Store) UpsertMetadata(ctx context.Context, title, author string, meta *models.BookMetadata) error {
	key := models.NewCacheKey(title, author)

	var isbn, cover, desc, cats sql.NullString
	if meta != nil {
		isbn = nullable(meta.ISBN)
		cover = nullable(meta.CoverURL)
		desc = nullable(meta.Description)
		if len(meta.Categories) > 0 {
			data, err := json.Marshal(meta.Categories)
			if err != nil {
				return fmt.Errorf("encode categories: %w", err)
			}
			cats = nullable(string(data))
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO book_metadata_cache
			(id, title_key, author_key, title, author, isbn, cover_url, description, categories, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(title_key, author_key) DO UPDATE SET
			isbn = excluded.isbn,
			cover_url = excluded.cover_url,
			description = excluded.description,
			categories = excluded.categories,
			cached_at = excluded.cached_at
	`, uuid.NewString(), key.Title, key.Author,
		strings.TrimSpace(title), strings.TrimSpace(author),
		isbn, cover, desc, cats, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
