// config/config.go
package config

import (
	"os"
	"strconv"
)

// Config holds every setting the application reads from the environment.
// It is built once in main and passed explicitly to the pieces that need
// it, so nothing reaches into os.Getenv at request time.
type Config struct {
	Port     string
	Env      string // "development" or "production"
	BaseURL  string // public base URL embedded in email links
	MongoURI string
	Database string

	JWTSecret string

	// Email delivery. Provider is one of "postmark", "sendgrid", "smtp".
	EmailProvider string
	EmailSender   string
	PostmarkToken string
	SendGridKey   string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
}

// Load reads the configuration from environment variables, applying
// defaults suitable for local development.
func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8000"),
		Env:           getEnv("APP_ENV", "development"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8000"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database:      getEnv("MONGO_DB", "pharmacy"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		EmailProvider: getEnv("EMAIL_PROVIDER", "smtp"),
		EmailSender:   getEnv("EMAIL_SENDER", "no-reply@pharmacy.local"),
		PostmarkToken: os.Getenv("POSTMARK_API_TOKEN"),
		SendGridKey:   os.Getenv("SENDGRID_API_KEY"),
		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
