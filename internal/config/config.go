package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Analysis service
	ServiceURL     string
	RequestTimeout time.Duration
	// Validation ceilings
	AllowedExtensions  []string
	MaxFileBytes       int64
	MaxCollectionBytes int64
	MaxTextChars       int
	// Redis - record cache, disabled when empty
	RedisURL string
	CacheTTL time.Duration
	// Logging
	LogMode string
}

func Load() Config {
	return Config{
		ServiceURL:         getenv("DOCSENSE_SERVICE_URL", "http://localhost:8080"),
		RequestTimeout:     time.Duration(getenvInt("DOCSENSE_REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		AllowedExtensions:  splitList(getenv("DOCSENSE_ALLOWED_EXTENSIONS", ".pdf,.docx")),
		MaxFileBytes:       int64(getenvInt("DOCSENSE_MAX_FILE_MB", 5)) * 1024 * 1024,
		MaxCollectionBytes: int64(getenvInt("DOCSENSE_MAX_COLLECTION_FILE_MB", 3)) * 1024 * 1024,
		MaxTextChars:       getenvInt("DOCSENSE_MAX_TEXT_CHARS", 50000),
		RedisURL:           getenv("REDIS_URL", ""),
		CacheTTL:           time.Duration(getenvInt("DOCSENSE_CACHE_TTL_HOURS", 24)) * time.Hour,
		LogMode:            getenv("DOCSENSE_LOG_MODE", "dev"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
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

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
