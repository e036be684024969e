package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

var loadEnv sync.Once

// Config returns a single environment value, loading .env on first use.
func Config(key string) string {
	loadEnv.Do(func() {
		// a missing .env is fine, the process environment is used instead
		_ = godotenv.Load(".env")
	})
	return os.Getenv(key)
}

type Settings struct {
	DatabaseURL     string
	JWTSecret       string
	JWTTTL          time.Duration
	Port            string
	AppEnv          string
	DefaultPageSize int
	MaxPageSize     int
	OrphanPurgeCron string
}

func (s Settings) Development() bool {
	return s.AppEnv == "development"
}

func (s Settings) Addr() string {
	return ":" + s.Port
}

// Load reads the typed settings. DATABASE_URL and JWT_SECRET are checked by
// the commands that need them, not here.
func Load() (Settings, error) {
	s := Settings{
		DatabaseURL:     Config("DATABASE_URL"),
		JWTSecret:       Config("JWT_SECRET"),
		Port:            withDefault(Config("PORT"), "8080"),
		AppEnv:          withDefault(Config("APP_ENV"), "production"),
		OrphanPurgeCron: "0 3 * * *",
	}
	if v, ok := os.LookupEnv("ORPHAN_PURGE_CRON"); ok {
		s.OrphanPurgeCron = v
	}

	var err error
	if s.JWTTTL, err = time.ParseDuration(withDefault(Config("JWT_TTL"), "72h")); err != nil {
		return Settings{}, errors.Wrap(err, "JWT_TTL")
	}
	if s.DefaultPageSize, err = strconv.Atoi(withDefault(Config("DEFAULT_PAGE_SIZE"), "20")); err != nil {
		return Settings{}, errors.Wrap(err, "DEFAULT_PAGE_SIZE")
	}
	if s.MaxPageSize, err = strconv.Atoi(withDefault(Config("MAX_PAGE_SIZE"), "100")); err != nil {
		return Settings{}, errors.Wrap(err, "MAX_PAGE_SIZE")
	}
	if s.DefaultPageSize <= 0 || s.MaxPageSize < s.DefaultPageSize {
		return Settings{}, errors.Errorf("invalid page sizes: default %d, max %d", s.DefaultPageSize, s.MaxPageSize)
	}
	return s, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
