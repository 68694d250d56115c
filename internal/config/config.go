package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type StoreConfig struct {
	Addr        string
	Backend     string
	DatabaseURL string
	SQLitePath  string
	RosterLimit int
}

type CLIConfig struct {
	StoreURL    string
	AdminLogin  string
	AdminSecret string
	TickEvery   time.Duration
	SyncEvery   time.Duration
	ClaimReward string
	EconomyFile string
}

func LoadStoreFromEnv() (StoreConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("RICHES_STORE_ADDR", ":8080")
	}

	cfg := StoreConfig{
		Addr:        addr,
		Backend:     strings.ToLower(envDefault("RICHES_STORE_BACKEND", "memory")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  envDefault("RICHES_SQLITE_PATH", "data/riches.db"),
		RosterLimit: envIntDefault("RICHES_ROSTER_LIMIT", 100),
	}
	switch cfg.Backend {
	case "memory", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return cfg, fmt.Errorf("unknown RICHES_STORE_BACKEND %q", cfg.Backend)
	}
	if cfg.RosterLimit <= 0 {
		return cfg, fmt.Errorf("RICHES_ROSTER_LIMIT must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		StoreURL:    strings.TrimRight(envDefault("RICHES_STORE_URL", "http://localhost:8080"), "/"),
		AdminLogin:  envDefault("RICHES_ADMIN_LOGIN", "plutka"),
		AdminSecret: envDefault("RICHES_ADMIN_SECRET", "123"),
		TickEvery:   envDurationDefault("RICHES_TICK_EVERY", time.Second),
		SyncEvery:   envDurationDefault("RICHES_SYNC_EVERY", 5*time.Second),
		ClaimReward: strings.ToLower(envDefault("RICHES_CLAIM_REWARD", "tier")),
		EconomyFile: strings.TrimSpace(os.Getenv("RICHES_ECONOMY_FILE")),
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
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
