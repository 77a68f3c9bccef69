package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shelfscan/shelfscan/internal/models"
)

// SaveRecommendations stores the recommendation set for a scan. At most one
// set exists per scan: a second write for the same scan_id replaces the book
// payload and restarts the retention clock instead of inserting a duplicate,
// so two near-simultaneous generation requests both complete cleanly. The
// saved flag is left untouched on replace.
func (s *Store) SaveRecommendations(ctx context.Context, scanID, deviceID string, books []models.EnrichedRecommendedBook) (*models.RecommendationSet, error) {
	if books == nil {
		books = []models.EnrichedRecommendedBook{}
	}
	data, err := json.Marshal(books)
	if err != nil {
		return nil, fmt.Errorf("encode recommended books: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, scan_id, device_id, books, saved, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(scan_id) DO UPDATE SET
			device_id = excluded.device_id,
			books = excluded.books,
			created_at = excluded.created_at
	`, uuid.NewString(), scanID, deviceID, string(data), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert recommendations: %w", err)
	}

	return s.GetRecommendationsByScan(ctx, scanID)
}

// GetRecommendationsByScan returns the stored set for a scan, or ErrNotFound.
func (s *Store) GetRecommendationsByScan(ctx context.Context, scanID string) (*models.RecommendationSet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scan_id, device_id, books, saved, created_at
		FROM recommendations
		WHERE scan_id = ?
	`, scanID)

	var set models.RecommendationSet
	var books string
	if err := row.Scan(&set.ID, &set.ScanID, &set.DeviceID, &books, &set.Saved, &set.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(books), &set.Books); err != nil {
		return nil, fmt.Errorf("decode recommended books: %w", err)
	}
	return &set, nil
}

// SetRecommendationsSaved toggles the saved flag for a scan's set. A saved
// set is exempt from retention cleanup. Returns ErrNotFound when no set
// exists for the scan.
func (s *Store) SetRecommendationsSaved(ctx context.Context, scanID string, saved bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recommendations SET saved = ? WHERE scan_id = ?
	`, saved, scanID)
	if err != nil {
		return fmt.Errorf("set saved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set saved: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupRecommendations deletes unsaved sets older than the retention
// window and reports how many were removed. Saved sets are never touched
// regardless of age. Safe to run concurrently with new inserts.
func (s *Store) CleanupRecommendations(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM recommendations WHERE saved = 0 AND created_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup recommendations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup recommendations: %w", err)
	}
	return n, nil
}
