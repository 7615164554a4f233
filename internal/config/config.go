package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API and the optional
// development worker.
type Config struct {
	Port string

	// AuthTokens provisions static API tokens: "token=userID:role:department".
	AuthTokens []string

	// WebhookToken, when set, is required on processing callbacks via the
	// X-Webhook-Token header.
	WebhookToken string

	DatabaseURL string

	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RedisQueueKey        string
	JobStatusTTLSeconds  int
	QueueLocalCapacity   int

	StorageBucket         string
	StorageSignTTLSeconds int
	StorageLocalBaseURL   string
	StorageLocalSecret    string

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	WorkerStubEnabled bool
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthTokens:   getEnvList("API_AUTH_TOKENS"),
		WebhookToken: getEnv("WEBHOOK_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		RedisQueueKey:       getEnv("REDIS_QUEUE_KEY", "document_processing_jobs"),
		JobStatusTTLSeconds: getEnvInt("JOB_STATUS_TTL_SECONDS", 3600),
		QueueLocalCapacity:  getEnvInt("QUEUE_LOCAL_CAPACITY", 1024),

		StorageBucket:         getEnv("STORAGE_BUCKET", ""),
		StorageSignTTLSeconds: getEnvInt("STORAGE_SIGN_TTL_SECONDS", 3600),
		StorageLocalBaseURL:   getEnv("STORAGE_LOCAL_BASE_URL", ""),
		StorageLocalSecret:    getEnv("STORAGE_LOCAL_SECRET", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		WorkerStubEnabled: getEnvBool("WORKER_STUB_ENABLED", false),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
