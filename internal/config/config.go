package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Pricing is the fixed price table for paid features, in whole currency units.
// It is built once at startup and never mutated.
type Pricing struct {
	PremiumMonth           int
	UnlockConditionChannel int
	DonationUnit           int
}

// Config aggregates runtime configuration for the bot and supporting services.
type Config struct {
	BotToken         string
	MySQLDSN         string
	BroadcastChannel string
	AdminIDs         []int64
	SupportUsername  string
	AdminListenAddr  string
	AdminUsername    string
	AdminPassword    string
	SessionTTL       time.Duration
	LogLevel         string
	Pricing          Pricing
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		BroadcastChannel: normalizeChannel(getEnv("BROADCAST_CHANNEL", "")),
		AdminIDs:         parseAdminIDs(os.Getenv("ADMIN_IDS")),
		SupportUsername:  strings.TrimPrefix(getEnv("SUPPORT_USERNAME", "OMAR_M_SHEHATA"), "@"),
		AdminListenAddr:  getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:    getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", "change-me"),
		SessionTTL:       time.Minute * time.Duration(getInt("SESSION_TTL_MINUTES", 30)),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Pricing: Pricing{
			PremiumMonth:           100,
			UnlockConditionChannel: 7,
			DonationUnit:           15,
		},
	}

	cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.BroadcastChannel == "" {
		missing = append(missing, "BROADCAST_CHANNEL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func normalizeChannel(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "https://t.me/")
	raw = strings.TrimPrefix(raw, "t.me/")
	return strings.TrimPrefix(raw, "@")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}

	// Running purely off the process environment is fine.
	return nil
}
