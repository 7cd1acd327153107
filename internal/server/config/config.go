// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables, and
// command-line flags.
package config

import "time"

// Config holds runtime settings for the StudyMate server.
//
// Fields:
//   - RunAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty means in-memory storage.
//   - RedisAddr: Redis address for the refresh token registry. Empty means
//     the registry lives in the selected primary storage.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - AdminUserName / AdminPassword: bootstrap credentials for the admin account.
//   - VectorAPIKey / VectorIndexHost: hosted vector index access.
//   - ChatAPIKey / ChatBaseURL / ChatModel: chat completion provider access.
type Config struct {
	RunAddr                      string
	DatabaseDSN                  string
	RedisAddr                    string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	AdminUserName                string
	AdminPassword                string
	VectorAPIKey                 string
	VectorIndexHost              string
	ChatAPIKey                   string
	ChatBaseURL                  string
	ChatModel                    string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.RunAddr = ":8000"
	c.DatabaseDSN = ""
	c.RedisAddr = ""
	c.SecretKey = "your-secret-key-change-this-in-production"
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.AdminUserName = "admin"
	c.AdminPassword = "admin123"
	c.ChatBaseURL = "https://api.groq.com/openai/v1"
	c.ChatModel = "deepseek-r1-distill-llama-70b"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment (including a .env file when
// present), and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
