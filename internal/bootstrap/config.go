package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	HMACKey []byte

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LiveEndpoint string
	LiveAPIKey   string
	CoachModel   string
	CoachVoice   string

	IdentityBaseURL      string
	IdentityTokenURL     string
	IdentityClientID     string
	IdentityClientSecret string
	ProfileCacheTTL      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		HMACKey: []byte(getEnv("HMAC_KEY", "change-me-in-production")),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LiveEndpoint: getEnv("LIVE_ENDPOINT", "wss://live.coachvoice.example.com/v1/stream"),
		LiveAPIKey:   getEnv("LIVE_API_KEY", ""),
		CoachModel:   getEnv("COACH_MODEL", "coach-live-001"),
		CoachVoice:   getEnv("COACH_VOICE", "warm"),

		IdentityBaseURL:      getEnv("IDENTITY_BASE_URL", "https://identity.pulsefit.example.com"),
		IdentityTokenURL:     getEnv("IDENTITY_TOKEN_URL", "https://identity.pulsefit.example.com/oauth/token"),
		IdentityClientID:     getEnv("IDENTITY_CLIENT_ID", ""),
		IdentityClientSecret: getEnv("IDENTITY_CLIENT_SECRET", ""),
		ProfileCacheTTL:      time.Duration(getEnvInt("PROFILE_CACHE_TTL_MINUTES", 15)) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
