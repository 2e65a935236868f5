package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// SecretStore keeps API keys outside the database
type SecretStore interface {
	Save(id int64, apiKey string) error
	Get(id int64) (string, error)
	Delete(id int64) error
}

// Store persists connection records
type Store struct {
	db      *sql.DB
	secrets SecretStore
	log     *slog.Logger
}

type Option func(*Store)

// WithSecrets moves API keys into s. The api_key column is left empty.
func WithSecrets(s SecretStore) Option {
	return func(st *Store) { st.secrets = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.log = l }
}

// NewStore opens (creating if needed) the database at path
func NewStore(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single writer avoids "database is locked" between goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "sqlite")
	return s, nil
}

// List returns all records ordered by id
func (s *Store) List(ctx context.Context) ([]models.ConnectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uri, name, favorite, api_key, color
		FROM connections
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var recs []models.ConnectionRecord
	for rows.Next() {
		var r models.ConnectionRecord
		var apiKey sql.NullString

		if err := rows.Scan(&r.ID, &r.URI, &r.Name, &r.Favorite, &apiKey, &r.Color); err != nil {
			return nil, err
		}
		if apiKey.Valid {
			key := apiKey.String
			r.APIKey = &key
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.secrets != nil {
		for i := range recs {
			s.loadSecret(&recs[i])
		}
	}
	return recs, nil
}

// loadSecret fills the api key from the secret store. An unreachable keyring
// leaves the key unset rather than hiding the connection.
func (s *Store) loadSecret(r *models.ConnectionRecord) {
	key, err := s.secrets.Get(r.ID)
	switch {
	case err == nil:
		r.APIKey = &key
	case errors.Is(err, models.ErrSecretNotFound):
	default:
		s.log.Warn("failed to read api key", "connection_id", r.ID, "error", err)
	}
}

// Get returns a single record
func (s *Store) Get(ctx context.Context, id int64) (models.ConnectionRecord, error) {
	var r models.ConnectionRecord
	var apiKey sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, uri, name, favorite, api_key, color
		FROM connections WHERE id = ?`, id).
		Scan(&r.ID, &r.URI, &r.Name, &r.Favorite, &apiKey, &r.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return r, models.ErrConnectionNotFound
	}
	if err != nil {
		return r, err
	}
	if apiKey.Valid {
		key := apiKey.String
		r.APIKey = &key
	}
	if s.secrets != nil {
		s.loadSecret(&r)
	}
	return r, nil
}

// Create inserts rec and returns the assigned id
func (s *Store) Create(ctx context.Context, rec models.ConnectionRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO connections (uri, name, favorite, api_key, color)
		VALUES (?, ?, ?, ?, ?)`,
		rec.URI, rec.Name, rec.Favorite, s.columnKey(rec.APIKey), rec.Color,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if s.secrets != nil && rec.APIKey != nil {
		if err := s.secrets.Save(id, *rec.APIKey); err != nil {
			return 0, err
		}
	}
	return id, tx.Commit()
}

// Update overwrites the stored record with rec.ID
func (s *Store) Update(ctx context.Context, rec models.ConnectionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE connections
		SET uri = ?, name = ?, favorite = ?, api_key = ?, color = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		rec.URI, rec.Name, rec.Favorite, s.columnKey(rec.APIKey), rec.Color, rec.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrConnectionNotFound
	}

	if s.secrets != nil {
		key := ""
		if rec.APIKey != nil {
			key = *rec.APIKey
		}
		if err := s.secrets.Save(rec.ID, key); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes the record and its secret
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id); err != nil {
		return err
	}
	if s.secrets != nil {
		if err := s.secrets.Delete(id); err != nil {
			s.log.Warn("failed to delete api key", "connection_id", id, "error", err)
		}
	}
	return nil
}

func (s *Store) columnKey(key *string) any {
	if key == nil || s.secrets != nil {
		return nil
	}
	return *key
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
