package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"giveaway-referrals/internal/admission"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Referral ReferralConfig
	Redis    RedisConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           string
	FrontendURL    string
	TrustedProxies []string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// ReferralConfig holds the admission and retry settings
type ReferralConfig struct {
	Mode          admission.Mode
	RetryBackoff  time.Duration
	RateLimit     time.Duration // minimum spacing between submissions per client
	RateBurst     int
	SessionCookie string
	SecureCookie  bool
}

// RedisConfig holds the optional leaderboard cache settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// JobsConfig holds scheduled job settings
type JobsConfig struct {
	CampaignExpiryInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	mode, err := admission.ParseMode(getEnv("REFERRAL_MODE", string(admission.ModeDedup)))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "giveaways"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "giveaways.db"),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			FrontendURL:    getEnv("FRONTEND_URL", ""),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Referral: ReferralConfig{
			Mode:          mode,
			RetryBackoff:  getDuration("STORE_RETRY_BACKOFF", 50*time.Millisecond),
			RateLimit:     getDuration("REFERRAL_RATE_LIMIT", 500*time.Millisecond),
			RateBurst:     getInt("REFERRAL_RATE_BURST", 5),
			SessionCookie: getEnv("SESSION_COOKIE", "ref_session"),
			SecureCookie:  getEnv("SESSION_COOKIE_SECURE", "false") == "true",
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			CacheTTL: getDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),
		},
		Jobs: JobsConfig{
			CampaignExpiryInterval: getDuration("CAMPAIGN_EXPIRY_INTERVAL", time.Minute),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", config.Database.Driver)
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
