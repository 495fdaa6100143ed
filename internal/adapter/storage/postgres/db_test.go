package postgres

import (
	"context"
	"testing"

	"order-sync-gateway/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool_InvalidConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "order_sync",
		SSLMode:  "sometimes",
		MaxConns: 4,
	}

	pool, err := NewPool(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Contains(t, err.Error(), "parsing database config")
}

// NewPool against a live server is exercised by running the gateway with
// storage.driver=postgres; unit tests cover the repositories through pgxmock.
