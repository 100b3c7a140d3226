package postgres

import (
	"testing"

	"keeper/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN_ParsesWithPgx(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "db.internal",
		Port:     "6543",
		User:     "keeper",
		Password: "pw",
		DBName:   "keeper",
		SSLMode:  "disable",
	}

	pc, err := pgxpool.ParseConfig(DSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(6543), pc.ConnConfig.Port)
	assert.Equal(t, "keeper", pc.ConnConfig.Database)
	assert.Equal(t, "keeper", pc.ConnConfig.User)
}
