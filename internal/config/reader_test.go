package config

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func setRequired(t *testing.T) {
	t.Setenv("ENV", EnvLocal)
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_USERNAME", "goals")
	t.Setenv("POSTGRES_PASSWORD", "goals")
	t.Setenv("POSTGRES_DATABASE", "goals")
}

func TestReadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := NewEnvReader().Read()
	assert.Equal(t, nil, err)
	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
}

func TestReadRejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("GOALS_STORE_DRIVER", "firestore")

	_, err := NewEnvReader().Read()
	assert.NotEqual(t, nil, err)
}
