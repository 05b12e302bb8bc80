package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type BotConfig struct {
	Addr             string
	DatabaseURL      string
	DiscordToken     string
	CatalogPath      string
	ListingTTL       time.Duration
	PageSize         int
	OrdersPerPage    int
	MaxOrders        int
	MaxPrice         int64
	RarityGrowth     float64
	CollectorIdle    time.Duration
	SweepEvery       time.Duration
	UnlimitedDailies bool
}

type CLIConfig struct {
	APIBaseURL  string
	DatabaseURL string
}

func LoadBotFromEnv() (BotConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("CRIT_API_ADDR", ":8080")
	}

	cfg := BotConfig{
		Addr:             addr,
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DiscordToken:     strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
		CatalogPath:      strings.TrimSpace(os.Getenv("CRIT_CATALOG_PATH")),
		ListingTTL:       envDurationDefault("CRIT_LISTING_TTL", 7*24*time.Hour),
		PageSize:         envIntDefault("CRIT_PAGE_SIZE", 8),
		OrdersPerPage:    envIntDefault("CRIT_ORDERS_PER_PAGE", 4),
		MaxOrders:        envIntDefault("CRIT_MAX_ORDERS", 8),
		MaxPrice:         int64(envIntDefault("CRIT_MAX_PRICE", 10_000_000)),
		RarityGrowth:     envFloatDefault("CRIT_RARITY_GROWTH", 30.0),
		CollectorIdle:    envDurationDefault("CRIT_COLLECTOR_IDLE", 2*time.Minute),
		SweepEvery:       envDurationDefault("CRIT_SWEEP_EVERY", 15*time.Minute),
		UnlimitedDailies: envBoolDefault("CRIT_UNLIMITED_DAILIES", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DiscordToken == "" {
		return cfg, fmt.Errorf("DISCORD_TOKEN is required")
	}
	return cfg, nil
}

// LoadWorkerFromEnv is LoadBotFromEnv without the bot token requirement.
func LoadWorkerFromEnv() (BotConfig, error) {
	cfg, err := LoadBotFromEnv()
	if err != nil {
		if cfg.DatabaseURL == "" {
			return cfg, err
		}
		// missing DISCORD_TOKEN is fine for the worker
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL:  strings.TrimRight(envDefault("CRIT_API_BASE_URL", "http://localhost:8080"), "/"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
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

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
