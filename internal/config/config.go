package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	Env         string
	DatabaseURL string
	RedisURL    string

	// VaultKeys is a fernet key ring: the first key encrypts, every key may
	// decrypt. A single key is the normal case; additional keys exist so a
	// rotation can be introduced without re-encrypting stored secrets first.
	VaultKeys []string

	Aggregator AggregatorConfig

	MoralisAPIKey string
	TonAPIKey     string

	ChainOverridePath string

	// File cache location, used when no Redis URL is configured.
	CachePath     string
	CacheLockPath string

	HTTPTimeout time.Duration
	HTTPRetries int
}

// AggregatorConfig carries the request-signing credentials for the DEX
// aggregator/bridge API.
type AggregatorConfig struct {
	BaseURL    string
	APIKey     string
	SecretKey  string
	Passphrase string
	ProjectID  string
}

// LoadFromEnv reads configuration from environment variables, loading `.env`
// first if present. It fails fatally when secrets required for custody are
// missing: a process without a vault key must not start.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, relying on environment variables")
	}

	vaultKey := strings.TrimSpace(os.Getenv("VAULT_KEY"))
	if vaultKey == "" {
		log.Fatal("[FATAL] VAULT_KEY is required")
	}
	keys := []string{vaultKey}
	for _, extra := range strings.Split(os.Getenv("VAULT_DECRYPT_KEYS"), ",") {
		if k := strings.TrimSpace(extra); k != "" {
			keys = append(keys, k)
		}
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "20s"))
	if err != nil {
		log.Fatalf("[FATAL] Invalid HTTP_TIMEOUT duration: %v", err)
	}

	cacheDir := getEnv("CACHE_DIR", filepath.Join(os.TempDir(), "swapdesk"))

	return &Config{
		Env:         getEnv("ENV", "dev"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		VaultKeys:   keys,
		Aggregator: AggregatorConfig{
			BaseURL:    getEnv("AGGREGATOR_BASE_URL", "https://web3.okx.com/api/v5/dex"),
			APIKey:     os.Getenv("AGGREGATOR_API_KEY"),
			SecretKey:  os.Getenv("AGGREGATOR_SECRET_KEY"),
			Passphrase: os.Getenv("AGGREGATOR_PASSPHRASE"),
			ProjectID:  os.Getenv("AGGREGATOR_PROJECT_ID"),
		},
		MoralisAPIKey:     os.Getenv("MORALIS_API_KEY"),
		TonAPIKey:         os.Getenv("TONAPI_API_KEY"),
		ChainOverridePath: os.Getenv("CHAIN_OVERRIDE_FILE"),
		CachePath:         filepath.Join(cacheDir, "cache.db"),
		CacheLockPath:     filepath.Join(cacheDir, "cache.lock"),
		HTTPTimeout:       timeout,
		HTTPRetries:       2,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
