package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"webring/internal/hits"
)

const (
	DefaultStreamKey = "webring:hits"
	readPageSize     = 1000

	fieldSlug      = "slug"
	fieldVisitor   = "visitor"
	fieldTimestamp = "ts"
)

// RedisStore appends hits to a Redis stream. Stream entry IDs are monotonic, so
// XRANGE order is insertion order; the returned Hit.ID is the 1-based position
// in the stream.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedis constructs a Redis-backed hit store on the given stream key.
func NewRedis(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultStreamKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Append(ctx context.Context, slug, visitorHash string, ts time.Time) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		Values: map[string]any{
			fieldSlug:      slug,
			fieldVisitor:   visitorHash,
			fieldTimestamp: ts.UTC().UnixNano(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("append hit to stream: %w", err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) ([]hits.Hit, error) {
	var out []hits.Hit
	start := "-"
	for {
		page, err := s.client.XRangeN(ctx, s.key, start, "+", readPageSize).Result()
		if err != nil {
			return nil, fmt.Errorf("read hit stream: %w", err)
		}
		for _, msg := range page {
			h, err := decodeStreamEntry(msg)
			if err != nil {
				return nil, err
			}
			h.ID = int64(len(out) + 1)
			out = append(out, h)
		}
		if len(page) < readPageSize {
			return out, nil
		}
		start = "(" + page[len(page)-1].ID
	}
}

func decodeStreamEntry(msg redis.XMessage) (hits.Hit, error) {
	slug, _ := msg.Values[fieldSlug].(string)
	visitor, _ := msg.Values[fieldVisitor].(string)
	rawTS, _ := msg.Values[fieldTimestamp].(string)
	nanos, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil || slug == "" || visitor == "" {
		return hits.Hit{}, fmt.Errorf("decode stream entry %s: malformed fields", msg.ID)
	}
	return hits.Hit{
		Slug:        slug,
		VisitorHash: visitor,
		Timestamp:   time.Unix(0, nanos).UTC(),
	}, nil
}
