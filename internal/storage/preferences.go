package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
)

// GetPreferences returns the device's taste profile. A device with no saved
// profile gets an empty one, not an error.
func (s *Store) GetPreferences(ctx context.Context, deviceID string) (*models.Preferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT genres, authors, language, reading_level
		FROM preferences
		WHERE device_id = ?
	`, deviceID)

	p := &models.Preferences{DeviceID: deviceID}
	var genres, authors string
	if err := row.Scan(&genres, &authors, &p.Language, &p.ReadingLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(genres), &p.Genres); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	return p, nil
}

// SavePreferences upserts the device's profile. Callers are expected to
// have normalized p first.
func (s *Store) SavePreferences(ctx context.Context, p *models.Preferences) error {
	genres, err := json.Marshal(emptyIfNil(p.Genres))
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}
	authors, err := json.Marshal(emptyIfNil(p.Authors))
	if err != nil {
		return fmt.Errorf("encode authors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (device_id, genres, authors, language, reading_level, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			genres = excluded.genres,
			authors = excluded.authors,
			language = excluded.language,
			reading_level = excluded.reading_level,
			updated_at = excluded.updated_at
	`, p.DeviceID, string(genres), string(authors), p.Language, p.ReadingLevel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
