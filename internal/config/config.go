package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr          string
	SQLitePath    string
	DatabaseURL   string
	JWTSecret     string
	TokenTTL      time.Duration
	SnapshotEvery time.Duration
	AdminName     string
	AdminUsername string
	AdminPassword string
	SeedTeams     bool
}

type CLIConfig struct {
	APIBaseURL string
}

// LoadAPIFromEnv reads API configuration from the environment. A .env file in
// the working directory is folded in first, without overriding real env vars.
func LoadAPIFromEnv() (APIConfig, error) {
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("TRADESIM_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:          addr,
		SQLitePath:    envDefault("TRADESIM_SQLITE_PATH", "tradesim.db"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("TRADESIM_JWT_SECRET")),
		TokenTTL:      envDurationDefault("TRADESIM_TOKEN_TTL", 12*time.Hour),
		SnapshotEvery: envDurationDefault("TRADESIM_SNAPSHOT_EVERY", 15*time.Second),
		AdminName:     envDefault("TRADESIM_ADMIN_NAME", "GameMaster"),
		AdminUsername: envDefault("TRADESIM_ADMIN_USERNAME", "gamemaster"),
		AdminPassword: strings.TrimSpace(os.Getenv("TRADESIM_ADMIN_PASSWORD")),
		SeedTeams:     envBoolDefault("TRADESIM_SEED_TEAMS", true),
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("TRADESIM_JWT_SECRET is required")
	}
	if cfg.AdminPassword == "" {
		return cfg, fmt.Errorf("TRADESIM_ADMIN_PASSWORD is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("TRADESIM_API_BASE_URL", "http://localhost:8080"), "/"),
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

func envBoolDefault(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "t", "true", "y", "yes", "on":
		return true
	case "0", "f", "false", "n", "no", "off":
		return false
	default:
		return fallback
	}
}
