// Package store holds the hit log backends. Every backend is append-only and
// returns hits in insertion order with IDs that follow that order.
package store

import (
	"webring/internal/hits"
)

var (
	_ hits.Store = (*InMemoryStore)(nil)
	_ hits.Store = (*PostgresStore)(nil)
	_ hits.Store = (*RedisStore)(nil)
	_ hits.Store = (*KafkaStore)(nil)
	_ hits.Store = (*ClickHouseStore)(nil)
)
