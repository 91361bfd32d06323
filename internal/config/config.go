package config

import (
	"os"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	IdentityURL string
	IdentityKey string
	JWKSURL     string // constructed from IdentityURL unless overridden
	CORSOrigins string
	TablePrefix string
	// Local cache
	CachePath string
	// Share link base, used when rendering share links from codes
	ShareBaseURL string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	identityURL := getEnv("IDENTITY_URL", "")

	return &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  env,
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		IdentityURL:  identityURL,
		IdentityKey:  getEnv("IDENTITY_KEY", ""),
		JWKSURL:      getEnv("JWKS_URL", identityURL+"/auth/v1/.well-known/jwks.json"),
		CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:  getTablePrefix(env),
		CachePath:    getEnv("CACHE_PATH", "promptdeck.db"),
		ShareBaseURL: getEnv("SHARE_BASE_URL", "https://promptdeck.app"),
		Debug:        getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
