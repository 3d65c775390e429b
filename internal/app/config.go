package app

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/adanyl0v/smart-goals/internal/config"
)

func MustReadEnv() {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to read env")
		panic(err)
	}
	globalLogger.Info().
		Str("env", cfg.Env).
		Str("goals_store", cfg.Store.Driver).
		Dur("access_token_ttl", cfg.JWT.AccessTokenTTL).
		Msg("read env")

	if cfg.Env == config.EnvProd && cfg.Store.Driver == config.StoreDriverMemory {
		globalLogger.Warn().Msg("goals are kept in memory and lost on restart")
	}

	config.SetGlobal(cfg)
}
