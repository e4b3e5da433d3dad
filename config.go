package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lg/free-day-go-api/internal/freeday"
)

// Config is everything main needs to wire the server, read once at startup.
type Config struct {
	Port       string
	GinMode    string
	DBDriver   string // "postgres" or "sqlite"
	DBURL      string
	SQLitePath string

	JWTSecret string
	JWTTTL    time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	FrontendURL        string
	AllowedOrigins     []string

	MarginPolicy  freeday.MarginPolicy
	Location      *time.Location
	OpenAIBaseURL string
}

// LoadConfig loads .env (if present) and reads the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:               getEnv("PORT", "3000"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DBURL:              os.Getenv("DB_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/freeday.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTTTL:             time.Duration(getEnvAsInt("JWT_EXPIRE_HOURS", 7*24)) * time.Hour,
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:3000/auth/google/callback"),
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		AllowedOrigins:     getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
	}

	policy, err := freeday.ParseMarginPolicy(getEnv("MARGIN_POLICY", string(freeday.PolicyQualityScaled)))
	if err != nil {
		return Config{}, err
	}
	cfg.MarginPolicy = policy

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBURL == "" {
			return Config{}, errors.New("DB_URL is required when DB_DRIVER=postgres")
		}
	case "sqlite":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be one of: postgres, sqlite (got %q)", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return Config{}, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt falls back to the default when the value is not an integer.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("[getEnvAsInt] %s=%q is not an integer, using %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated value, dropping blanks.
func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, s := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
