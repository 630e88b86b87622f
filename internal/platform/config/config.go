package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

const (
	defaultSessionSecret = "leaveportal-development-session-secret-change-me"
	// MaxDocumentBytes is the upload ceiling enforced before a document is sent upstream.
	MaxDocumentBytes = 10 * 1024 * 1024
)

type Config struct {
	Addr            string
	Environment     string
	APIBaseURL      string
	SessionSecret   string
	TokenCookieName string
	TokenTTL        time.Duration
	Pending2FATTL   time.Duration
	APITimeout      time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AuthRateLimit   string
	SubmitGuardTTL  time.Duration
	MetricsEnabled  bool
	LogLevel        string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("APP_ADDR", ":3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api/v1")
	v.SetDefault("SESSION_SECRET", defaultSessionSecret)
	v.SetDefault("TOKEN_COOKIE_NAME", "token")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("PENDING_2FA_TTL", "10m")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("READ_TIMEOUT", "5s")
	v.SetDefault("WRITE_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MAX_BODY_BYTES", 12*1024*1024)
	v.SetDefault("AUTH_RATE_LIMIT", "10-M")
	v.SetDefault("SUBMIT_GUARD_TTL", "30s")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	return Config{
		Addr:            v.GetString("APP_ADDR"),
		Environment:     strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		APIBaseURL:      strings.TrimRight(strings.TrimSpace(v.GetString("API_BASE_URL")), "/"),
		SessionSecret:   v.GetString("SESSION_SECRET"),
		TokenCookieName: v.GetString("TOKEN_COOKIE_NAME"),
		TokenTTL:        v.GetDuration("TOKEN_TTL"),
		Pending2FATTL:   v.GetDuration("PENDING_2FA_TTL"),
		APITimeout:      v.GetDuration("API_TIMEOUT"),
		ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		MaxBodyBytes:    v.GetInt64("MAX_BODY_BYTES"),
		AuthRateLimit:   v.GetString("AUTH_RATE_LIMIT"),
		SubmitGuardTTL:  v.GetDuration("SUBMIT_GUARD_TTL"),
		MetricsEnabled:  v.GetBool("METRICS_ENABLED"),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if strings.TrimSpace(c.APIBaseURL) == "" || err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL")
	}
	if strings.TrimSpace(c.SessionSecret) == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.IsProduction() {
		if c.SessionSecret == defaultSessionSecret || len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be set to a strong value of at least 32 bytes in production")
		}
	}
	if strings.TrimSpace(c.TokenCookieName) == "" {
		return fmt.Errorf("TOKEN_COOKIE_NAME is required")
	}
	if c.TokenTTL <= 0 || c.Pending2FATTL <= 0 {
		return fmt.Errorf("TOKEN_TTL and PENDING_2FA_TTL must be positive")
	}
	if c.APITimeout <= 0 || c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxBodyBytes <= MaxDocumentBytes {
		return fmt.Errorf("MAX_BODY_BYTES must exceed the %d byte document limit", MaxDocumentBytes)
	}
	if _, err := limiter.NewRateFromFormatted(c.AuthRateLimit); err != nil {
		return fmt.Errorf("AUTH_RATE_LIMIT is invalid: %w", err)
	}
	if c.SubmitGuardTTL < 0 {
		return fmt.Errorf("SUBMIT_GUARD_TTL must not be negative")
	}
	return nil
}
