package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "tix")
	t.Setenv("DB_PASS", "")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "ticketing")
	t.Setenv("JWT_SECRET", "shhh")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "30")
	t.Setenv("BCRYPT_COST", "10")

	cfg := Load()
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ticketing", cfg.DBName)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 30, cfg.RefreshTTLDays)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 5, cfg.CodeRetryLimit, "retry budget defaults when unset")

	t.Setenv("CODE_RETRY_LIMIT", "8")
	assert.Equal(t, 8, Load().CodeRetryLimit)
}
