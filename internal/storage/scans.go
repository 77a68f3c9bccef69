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

// CreateScan persists a recognition result. The book list is immutable once
// written.
func (s *Store) CreateScan(ctx context.Context, deviceID string, books []models.RecognizedBook) (*models.Scan, error) {
	if books == nil {
		books = []models.RecognizedBook{}
	}
	scan := &models.Scan{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Books:     books,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(scan.Books)
	if err != nil {
		return nil, fmt.Errorf("encode books: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (id, device_id, books, created_at)
		VALUES (?, ?, ?, ?)
	`, scan.ID, scan.DeviceID, string(data), scan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}
	return scan, nil
}

// GetScan returns one scan by id, or ErrNotFound.
func (s *Store) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, books, created_at
		FROM scans
		WHERE id = ?
	`, id)
	return scanScanRow(row)
}

// ListScans returns a device's scans, newest first.
func (s *Store) ListScans(ctx context.Context, deviceID string, limit int) ([]models.Scan, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, books, created_at
		FROM scans
		WHERE device_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	out := make([]models.Scan, 0, limit)
	for rows.Next() {
		var scan models.Scan
		var books string
		if err := rows.Scan(&scan.ID, &scan.DeviceID, &books, &scan.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(books), &scan.Books); err != nil {
			return nil, fmt.Errorf("decode books: %w", err)
		}
		out = append(out, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return out, nil
}

func scanScanRow(row *sql.Row) (*models.Scan, error) {
	var scan models.Scan
	var books string
	if err := row.Scan(&scan.ID, &scan.DeviceID, &books, &scan.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get scan: %w", err)
	}
	if err := json.Unmarshal([]byte(books), &scan.Books); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	return &scan, nil
}
