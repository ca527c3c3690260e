package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"webring/internal/hits"
)

const clickhouseSchema = `
CREATE TABLE IF NOT EXISTS hits (
	seq          String,
	slug         LowCardinality(String),
	visitor_hash String,
	visited_at   DateTime64(6, 'UTC')
) ENGINE = MergeTree()
ORDER BY seq
`

// ClickHouseStore keeps hits in a MergeTree table. ClickHouse has no
// auto-increment, so each row carries a UUIDv7 whose text form sorts in
// creation order; Hit.ID is the row's position in that order.
type ClickHouseStore struct {
	conn driver.Conn
}

func NewClickHouse(conn driver.Conn) *ClickHouseStore {
	return &ClickHouseStore{conn: conn}
}

// EnsureSchema creates the hits table if it does not exist.
func (s *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, clickhouseSchema); err != nil {
		return fmt.Errorf("create hits table: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) Append(ctx context.Context, slug, visitorHash string, ts time.Time) error {
	seq, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate hit sequence: %w", err)
	}
	err = s.conn.Exec(ctx,
		`INSERT INTO hits (seq, slug, visitor_hash, visited_at) VALUES (?, ?, ?, ?)`,
		seq.String(), slug, visitorHash, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert hit: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) All(ctx context.Context) ([]hits.Hit, error) {
	rows, err := s.conn.Query(ctx, `SELECT slug, visitor_hash, visited_at FROM hits ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	var out []hits.Hit
	for rows.Next() {
		h := hits.Hit{ID: int64(len(out) + 1)}
		if err := rows.Scan(&h.Slug, &h.VisitorHash, &h.Timestamp); err != nil {
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
