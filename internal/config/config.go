package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath        string        `env:"DB_PATH" envDefault:"data/trackclash.db"`
	LogLevel      slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir        string        `env:"SPA_DIR" envDefault:"../web/dist"`
	MusicAPIURL   string        `env:"MUSIC_API_URL" envDefault:"https://itunes.apple.com"`
	MusicCacheTTL time.Duration `env:"MUSIC_CACHE_TTL" envDefault:"15m"`
	// RedisURL is optional; when empty, track searches go straight to
	// the provider without caching.
	RedisURL string `env:"REDIS_URL"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
