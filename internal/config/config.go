package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Session      SessionConfig
	Checkout     CheckoutConfig
	Collaborator CollaboratorConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type SessionConfig struct {
	Secret string
}

type CheckoutConfig struct {
	// DurationSeconds is how long a checkout may sit idle on summary or
	// payment before it expires.
	DurationSeconds int
	// ServiceFeeCents is the flat fee added to every non-free order.
	ServiceFeeCents int
	// DefaultPhoneCountry is the calling code pre-filled on recipient
	// slots, without the plus sign.
	DefaultPhoneCountry string
}

// CollaboratorConfig points at the backend services the checkout talks
// to: user directory, coupon validation and transaction creation.
type CollaboratorConfig struct {
	BaseURL string
	APIKey  string
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "your-secret-key-change-in-production"),
		},
		Checkout: CheckoutConfig{
			DurationSeconds:     getEnvAsInt("CHECKOUT_DURATION_SECONDS", 600),
			ServiceFeeCents:     getEnvAsInt("SERVICE_FEE_CENTS", 100),
			DefaultPhoneCountry: getEnv("DEFAULT_PHONE_COUNTRY", "34"),
		},
		Collaborator: CollaboratorConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", ""),
			APIKey:  getEnv("BACKEND_API_KEY", ""),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
