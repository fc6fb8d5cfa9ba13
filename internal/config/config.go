package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	DatabaseURL          string
	BaseURL              string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	JWTPrivateKey        string
	JWTPublicKey         string
	JWTAlgorithm         string
	GoogleClientID       string
	GoogleClientSecret   string
	CurrencyAPIKey       string
	CurrencyAPIURL       string
	GoogleAIAPIKey       string
	GoogleAIURL          string
	GoogleAIModel        string
	ServiceName          string
	RateLimitRPM         int
	HashWorkers          int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		BaseURL:              os.Getenv("BASE_URL"),
		AccessTokenTTL:       getDuration("JWT_AUTH_EXPIRES", 15*time.Minute),
		RefreshTokenTTL:      getDuration("JWT_REFRESH_EXPIRES", 20*24*time.Hour),
		JWTPrivateKey:        os.Getenv("JWT_AUTH_PRIVATE_KEY"),
		JWTPublicKey:         os.Getenv("JWT_AUTH_PUBLIC_KEY"),
		JWTAlgorithm:         getEnv("JWT_AUTH_ALGORITHM", "RS256"),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		CurrencyAPIKey:       os.Getenv("CURRENCY_API_KEY"),
		CurrencyAPIURL:       getEnv("CURRENCY_API_URL", "https://api.freecurrencyapi.com/v1/latest"),
		GoogleAIAPIKey:       os.Getenv("GOOGLE_AI_API_KEY"),
		GoogleAIURL:          getEnv("GOOGLE_AI_URL", "https://generativelanguage.googleapis.com"),
		GoogleAIModel:        getEnv("GOOGLE_AI_MODEL", "gemini-2.5-flash"),
		ServiceName:          getEnv("SERVICE_NAME", "finance-backend"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		HashWorkers:          getInt("HASH_WORKERS", 0),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
		return Config{}, fmt.Errorf("JWT_AUTH_PRIVATE_KEY and JWT_AUTH_PUBLIC_KEY are required")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
