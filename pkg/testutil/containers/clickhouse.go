//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"

	chgo "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/testcontainers/testcontainers-go"
	tcclickhouse "github.com/testcontainers/testcontainers-go/modules/clickhouse"
)

// ClickHouseContainer wraps a testcontainers ClickHouse instance.
type ClickHouseContainer struct {
	Container testcontainers.Container
	Addr      string
	Conn      driver.Conn
}

// NewClickHouseContainer starts ClickHouse and opens a native connection.
func NewClickHouseContainer(t *testing.T) *ClickHouseContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcclickhouse.Run(ctx, "clickhouse/clickhouse-server:24.8-alpine",
		tcclickhouse.WithDatabase("webring"),
		tcclickhouse.WithUsername("webring"),
		tcclickhouse.WithPassword("webring"),
	)
	if err != nil {
		t.Fatalf("failed to start clickhouse container: %v", err)
	}

	addr, err := container.ConnectionHost(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get clickhouse address: %v", err)
	}

	conn, err := chgo.Open(&chgo.Options{
		Addr: []string{addr},
		Auth: chgo.Auth{Database: "webring", Username: "webring", Password: "webring"},
	})
	if err == nil {
		err = conn.Ping(ctx)
	}
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	return &ClickHouseContainer{Container: container, Addr: addr, Conn: conn}
}

// TruncateTables empties the named tables.
func (c *ClickHouseContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if err := c.Conn.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s", table)); err != nil {
			return err
		}
	}
	return nil
}
