package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"webring/internal/platform/config"
)

func TestOpenRequiresDSN(t *testing.T) {
	db, err := Open(context.Background(), config.PostgresConfig{})

	assert.Nil(t, db)
	assert.ErrorContains(t, err, "DATABASE_URL")
}
