package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	DBHost string
	DBPort string

	SecretKey    string
	TokenTTL     time.Duration
	CookieTTL    time.Duration
	RedisHost    string
	RedisPort    string
	RateLimitMax int64
	RateWindow   time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPEmail    string
	SMTPPassword string

	JaegerAddress string
	PaymentURL    string
	HDFSUri       string
	PhotoDir      string
	TemplatesGlob string
}

// NewConfig reads the environment, with a best-effort .env load for local
// runs. Deployment images set real variables and carry no .env file.
func NewConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          envOr("PORT", "8080"),
		Env:           envOr("ENV", "production"),
		DBHost:        os.Getenv("TOURS_DB_HOST"),
		DBPort:        os.Getenv("TOURS_DB_PORT"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		TokenTTL:      time.Duration(envOrInt("JWT_EXPIRES_IN_DAYS", 90)) * 24 * time.Hour,
		CookieTTL:     time.Duration(envOrInt("JWT_COOKIE_EXPIRES_IN_DAYS", 90)) * 24 * time.Hour,
		RedisHost:     os.Getenv("RATELIMIT_CACHE_HOST"),
		RedisPort:     os.Getenv("RATELIMIT_CACHE_PORT"),
		RateLimitMax:  int64(envOrInt("RATELIMIT_MAX", 100)),
		RateWindow:    time.Duration(envOrInt("RATELIMIT_WINDOW_MINUTES", 60)) * time.Minute,
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      envOrInt("SMTP_PORT", 587),
		SMTPEmail:     os.Getenv("SMTP_EMAIL"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		JaegerAddress: os.Getenv("JAEGER_ADDRESS"),
		PaymentURL:    os.Getenv("PAYMENT_SERVICE_URL"),
		HDFSUri:       os.Getenv("HDFS_URI"),
		PhotoDir:      envOr("PHOTO_DIR", "./img/users"),
		TemplatesGlob: envOr("TEMPLATES_GLOB", "./views/templates/*.gohtml"),
	}
}

// Validate fails fast on the variables the process can not run without.
func (config *Config) Validate() error {
	required := map[string]string{
		"TOURS_DB_HOST": config.DBHost,
		"TOURS_DB_PORT": config.DBPort,
		"SECRET_KEY":    config.SecretKey,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("missing required environment variable %s", name)
		}
	}
	return nil
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envOrInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
