package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"webring/internal/hits"
)

const schema = `
CREATE TABLE IF NOT EXISTS hits (
	id           BIGSERIAL PRIMARY KEY,
	slug         TEXT NOT NULL,
	visitor_hash TEXT NOT NULL,
	visited_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS hits_visitor_hash_idx ON hits (visitor_hash, id);
`

// PostgresStore persists hits in PostgreSQL. The BIGSERIAL id carries
// insertion order.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed hit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the hits table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create hits schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, slug, visitorHash string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hits (slug, visitor_hash, visited_at) VALUES ($1, $2, $3)`,
		slug, visitorHash, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert hit: %w", err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]hits.Hit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, visitor_hash, visited_at FROM hits ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	var out []hits.Hit
	for rows.Next() {
		var h hits.Hit
		if err := rows.Scan(&h.ID, &h.Slug, &h.VisitorHash, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		h.Timestamp = h.Timestamp.UTC()
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return out, nil
}
