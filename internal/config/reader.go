package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Reader interface {
	Read() (*Config, error)
}

type EnvReader struct{}

func NewEnvReader() EnvReader {
	return EnvReader{}
}

func (EnvReader) Read() (*Config, error) {
	cfg := new(Config)
	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unknown goals store driver: %s", cfg.Store.Driver)
	}

	return cfg, nil
}
