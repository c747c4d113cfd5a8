package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type APIConfig struct {
	Addr        string
	StoreDriver string
	DatabaseURL string
	TokenSecret string
	TokenTTL    time.Duration
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := strings.TrimSpace(os.Getenv("PORT"))
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("BOARDSWAP_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:        addr,
		StoreDriver: strings.ToLower(envDefault("BOARDSWAP_STORE", StorePostgres)),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TokenSecret: strings.TrimSpace(os.Getenv("BOARDSWAP_TOKEN_SECRET")),
		TokenTTL:    envDurationDefault("BOARDSWAP_TOKEN_TTL", 24*time.Hour),
	}
	if cfg.StoreDriver != StorePostgres && cfg.StoreDriver != StoreMemory {
		return cfg, fmt.Errorf("BOARDSWAP_STORE must be %q or %q", StorePostgres, StoreMemory)
	}
	if cfg.StoreDriver == StorePostgres && cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TokenSecret == "" {
		return cfg, fmt.Errorf("BOARDSWAP_TOKEN_SECRET is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("BSW_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
