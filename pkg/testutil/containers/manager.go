//go:build integration

// Package containers starts testcontainers once per test binary and hands the
// same instances to every suite that asks.
package containers

import (
	"sync"
	"testing"
)

// Manager lazily starts and caches containers.
type Manager struct {
	mu         sync.Mutex
	postgres   *PostgresContainer
	redis      *RedisContainer
	kafka      *KafkaContainer
	clickhouse *ClickHouseContainer
}

var (
	manager     *Manager
	managerOnce sync.Once
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redis == nil {
		m.redis = NewRedisContainer(t)
	}
	return m.redis
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kafka == nil {
		m.kafka = NewKafkaContainer(t)
	}
	return m.kafka
}

func (m *Manager) GetClickHouse(t *testing.T) *ClickHouseContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clickhouse == nil {
		m.clickhouse = NewClickHouseContainer(t)
	}
	return m.clickhouse
}
