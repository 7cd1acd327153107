package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tranqh/studymate/internal/flagx"
	"github.com/tranqh/studymate/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "30m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	RunAddr                      string         `json:"run_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	RedisAddr                    string         `json:"redis_addr"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	AdminUserName                string         `json:"admin_username"`
	AdminPassword                string         `json:"admin_password"`
	VectorAPIKey                 string         `json:"vector_api_key"`
	VectorIndexHost              string         `json:"vector_index_host"`
	ChatAPIKey                   string         `json:"chat_api_key"`
	ChatBaseURL                  string         `json:"chat_base_url"`
	ChatModel                    string         `json:"chat_model"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults, environment
// variables and command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.RunAddr = c.RunAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisAddr = c.RedisAddr
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.AdminUserName = c.AdminUserName
	config.AdminPassword = c.AdminPassword
	config.VectorAPIKey = c.VectorAPIKey
	config.VectorIndexHost = c.VectorIndexHost
	config.ChatAPIKey = c.ChatAPIKey
	config.ChatBaseURL = c.ChatBaseURL
	config.ChatModel = c.ChatModel
}
