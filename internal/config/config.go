package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	Port            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Ledger
	LedgerBackend    string
	LedgerPath       string
	LedgerLegacyPath string
	DatabaseDSN      string
	RunMigrations    bool

	CatalogPath string
	RabbitMQURL string

	// Extra promo codes on top of the built-in ones, CODE:fraction:maxUses[:description];...
	PromoCodes string

	SessionCookie string
}

// LoadDotEnv reads .env files into the environment if present. Variables
// already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", f, err)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		RequestTimeout:  parseDuration(getenv("REQUEST_TIMEOUT", "3s"), 3*time.Second),
		ShutdownTimeout: parseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),

		LedgerBackend:    strings.ToLower(getenv("LEDGER_BACKEND", BackendFile)),
		LedgerPath:       getenv("LEDGER_PATH", "data/orders.json"),
		LedgerLegacyPath: getenv("LEDGER_LEGACY_PATH", "src/main/resources/data/orders.json"),
		DatabaseDSN:      os.Getenv("ORDER_DB_DSN"),
		RunMigrations:    envBool("RUN_MIGRATIONS", true),

		CatalogPath: getenv("CATALOG_PATH", "data/products.json"),
		RabbitMQURL: strings.TrimSpace(os.Getenv("RABBITMQ_URL")),

		PromoCodes: os.Getenv("PROMO_CODES"),

		SessionCookie: getenv("SESSION_COOKIE", "SESSION_ID"),
	}

	switch cfg.LedgerBackend {
	case BackendFile:
	case BackendPostgres:
		if cfg.DatabaseDSN == "" {
			return Config{}, fmt.Errorf("LEDGER_BACKEND=postgres requires ORDER_DB_DSN")
		}
	default:
		return Config{}, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}

	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
