package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration values from environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win over the file.
//
// Recognized variables:
//
//	RUN_ADDRESS                   bind address
//	DATABASE_DSN                  PostgreSQL DSN
//	REDIS_ADDR                    Redis address for the refresh token registry
//	JWT_SECRET_KEY                JWT HMAC secret
//	ACCESS_TOKEN_EXPIRE_MINUTES   access token validity, minutes
//	REFRESH_TOKEN_EXPIRE_DAYS     refresh token validity, days
//	ADMIN_USERNAME                bootstrap admin username
//	ADMIN_PASSWORD                bootstrap admin password
//	VECTOR_API_KEY                vector index API key
//	VECTOR_INDEX_HOST             vector index host URL
//	CHAT_API_KEY                  chat provider API key
//	CHAT_BASE_URL                 chat provider base URL
//	CHAT_MODEL                    default chat model
func parseEnv(config *Config) {

	// best effort, the file is optional
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("RUN_ADDRESS"); ok {
		config.RunAddr = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		config.RedisAddr = v
	}
	if v, ok := os.LookupEnv("JWT_SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("ACCESS_TOKEN_EXPIRE_MINUTES"); ok {
		if minutes, err := strconv.Atoi(v); err == nil {
			config.AccessTokenValidityDuration = time.Duration(minutes) * time.Minute
		}
	}
	if v, ok := os.LookupEnv("REFRESH_TOKEN_EXPIRE_DAYS"); ok {
		if days, err := strconv.Atoi(v); err == nil {
			config.RefreshTokenValidityDuration = time.Duration(days) * 24 * time.Hour
		}
	}
	if v, ok := os.LookupEnv("ADMIN_USERNAME"); ok {
		config.AdminUserName = v
	}
	if v, ok := os.LookupEnv("ADMIN_PASSWORD"); ok {
		config.AdminPassword = v
	}
	if v, ok := os.LookupEnv("VECTOR_API_KEY"); ok {
		config.VectorAPIKey = v
	}
	if v, ok := os.LookupEnv("VECTOR_INDEX_HOST"); ok {
		config.VectorIndexHost = v
	}
	if v, ok := os.LookupEnv("CHAT_API_KEY"); ok {
		config.ChatAPIKey = v
	}
	if v, ok := os.LookupEnv("CHAT_BASE_URL"); ok {
		config.ChatBaseURL = v
	}
	if v, ok := os.LookupEnv("CHAT_MODEL"); ok {
		config.ChatModel = v
	}
}
