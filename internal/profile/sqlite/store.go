// Package sqlite provides a SQLite-backed cultural profile store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/profile"
	"github.com/ppiankov/wisdomgate/internal/profile/sqlite/migrations"
)

// Store persists cultural profiles in SQLite. It implements profile.Provider.
type Store struct {
	sqlDB *sql.DB
}

var _ profile.Provider = (*Store)(nil)

// Open opens a SQLite profile store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts or replaces one profile.
func (s *Store) Save(ctx context.Context, p model.CulturalProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(p.RequesterID)
	if id == "" {
		return fmt.Errorf("requester id is required")
	}
	primary := strings.TrimSpace(p.PrimaryCulture)
	if primary == "" {
		primary = model.UniversalCulture
	}

	identities, err := encodeList(p.CulturalIdentities)
	if err != nil {
		return fmt.Errorf("encode identities: %w", err)
	}
	strengths, err := encodeList(p.Strengths)
	if err != nil {
		return fmt.Errorf("encode strengths: %w", err)
	}
	var trauma sql.NullString
	if p.TraumaContext != nil {
		data, err := json.Marshal(p.TraumaContext)
		if err != nil {
			return fmt.Errorf("encode trauma context: %w", err)
		}
		trauma = sql.NullString{String: string(data), Valid: true}
	}

	var enhancement sql.NullBool
	if pref := p.Preferences.CulturalEnhancement; pref != nil {
		enhancement = sql.NullBool{Bool: *pref, Valid: true}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cultural_profiles (
		   requester_id, primary_culture, cultural_identities, trauma_context, strengths,
		   cultural_enhancement, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(requester_id) DO UPDATE SET
		   primary_culture = excluded.primary_culture,
		   cultural_identities = excluded.cultural_identities,
		   trauma_context = excluded.trauma_context,
		   strengths = excluded.strengths,
		   cultural_enhancement = excluded.cultural_enhancement,
		   updated_at = excluded.updated_at`,
		id, primary, identities, trauma, strengths, enhancement, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Lookup returns the stored profile or profile.ErrNotFound.
func (s *Store) Lookup(ctx context.Context, requesterID string) (model.CulturalProfile, error) {
	if err := ctx.Err(); err != nil {
		return model.CulturalProfile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return model.CulturalProfile{}, fmt.Errorf("storage is not configured")
	}

	var (
		p           model.CulturalProfile
		identities  string
		trauma      sql.NullString
		strengths   string
		enhancement sql.NullBool
	)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT requester_id, primary_culture, cultural_identities, trauma_context, strengths,
		        cultural_enhancement
		 FROM cultural_profiles WHERE requester_id = ?`,
		strings.TrimSpace(requesterID),
	)
	if err := row.Scan(&p.RequesterID, &p.PrimaryCulture, &identities, &trauma, &strengths, &enhancement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CulturalProfile{}, profile.ErrNotFound
		}
		return model.CulturalProfile{}, fmt.Errorf("lookup profile: %w", err)
	}
	if err := json.Unmarshal([]byte(identities), &p.CulturalIdentities); err != nil {
		return model.CulturalProfile{}, fmt.Errorf("decode identities: %w", err)
	}
	if err := json.Unmarshal([]byte(strengths), &p.Strengths); err != nil {
		return model.CulturalProfile{}, fmt.Errorf("decode strengths: %w", err)
	}
	if enhancement.Valid {
		v := enhancement.Bool
		p.Preferences.CulturalEnhancement = &v
	}
	if trauma.Valid {
		p.TraumaContext = &model.TraumaContext{}
		if err := json.Unmarshal([]byte(trauma.String), p.TraumaContext); err != nil {
			return model.CulturalProfile{}, fmt.Errorf("decode trauma context: %w", err)
		}
	}
	return p, nil
}

// Delete removes a profile. Deleting a missing profile is not an error.
func (s *Store) Delete(ctx context.Context, requesterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM cultural_profiles WHERE requester_id = ?`, strings.TrimSpace(requesterID),
	); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
