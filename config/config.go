package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"stampxl/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           int
	DatabaseURL    string
	AllowedOrigins string

	HankoJWKSURL   string
	AuthHMACSecret string
	AuthAudience   string

	R2 utils.R2Config

	RedisURL    string
	ClaimLimit  int
	ClaimWindow time.Duration

	SweepInterval time.Duration
	MetricsToken  string

	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", 5200)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CLAIM_RATE_LIMIT", 10)
	v.SetDefault("CLAIM_RATE_WINDOW", time.Minute)
	v.SetDefault("SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := &Config{
		Port:           v.GetInt("PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		AllowedOrigins: normalizeOrigins(v.GetString("ALLOWED_ORIGINS")),
		HankoJWKSURL:   v.GetString("HANKO_JWKS_URL"),
		AuthHMACSecret: v.GetString("AUTH_HMAC_SECRET"),
		AuthAudience:   v.GetString("AUTH_AUDIENCE"),
		R2: utils.R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      v.GetString("R2_CDN_URL"),
		},
		RedisURL:      v.GetString("REDIS_URL"),
		ClaimLimit:    v.GetInt("CLAIM_RATE_LIMIT"),
		ClaimWindow:   v.GetDuration("CLAIM_RATE_WINDOW"),
		SweepInterval: v.GetDuration("SWEEP_INTERVAL"),
		MetricsToken:  v.GetString("METRICS_TOKEN"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
	}
	return cfg, nil
}

// RequireDatabase fails unless DATABASE_URL is set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable not set")
	}
	return nil
}

// RequireAuth fails unless a way to verify session tokens is configured.
func (c *Config) RequireAuth() error {
	if c.HankoJWKSURL == "" && c.AuthHMACSecret == "" {
		return errors.New("either HANKO_JWKS_URL or AUTH_HMAC_SECRET must be set")
	}
	return nil
}

// normalizeOrigins trims the comma separated ALLOWED_ORIGINS list.
func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
