package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	DataDir string

	// Session
	SessionTTL time.Duration

	// Rate Limit
	RateLimitGeneral    int
	RateLimitCredential int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// API Keys
	APIKeysFile string

	// MCP
	MCPUser string
}

// Load は環境変数からConfigを読み込む。
// すべての項目にデフォルト値があり、未設定でも起動できる。
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:             getEnvString("DATA_DIR", "data"),
		SessionTTL:          getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		RateLimitGeneral:    getEnvInt("RATE_LIMIT_GENERAL", 120),
		RateLimitCredential: getEnvInt("RATE_LIMIT_CREDENTIAL", 10),
		ServerPort:          getEnvString("SERVER_PORT", "8080"),
		CORSAllowedOrigin:   getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		APIKeysFile:         getEnvString("API_KEYS_FILE", "api_keys.yml"),
		MCPUser:             getEnvString("MEMORY_USER", ""),
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
