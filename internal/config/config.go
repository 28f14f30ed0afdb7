package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mcarneiro/airbnb-organizer/internal/tax"
)

const (
	BackendMemory = "memory"
	BackendSheets = "sheets"

	IdentityGoogle = "google"
	IdentityLocal  = "local"
)

type Config struct {
	// HTTP Server
	Port string

	// Remote spreadsheet
	RemoteBackend         string
	MemoryDataDir         string
	GoogleSpreadsheetID   string
	GoogleOAuthClientFile string
	GoogleOAuthClientJSON string

	// Identity
	IdentityProvider    string
	OAuthRedirectPort   string
	LocalIdentitySecret string
	LocalIdentityEmail  string
	LocalTokenTTL       time.Duration

	// Session persistence
	SessionDBPath string

	// Sync
	WriteDebounce   time.Duration
	WriteTimeout    time.Duration
	RefreshSchedule string
	TaxJurisdiction string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		RemoteBackend:         getEnv("REMOTE_BACKEND", BackendMemory),
		MemoryDataDir:         getEnv("MEMORY_DATA_DIR", ""),
		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),

		IdentityProvider:    getEnv("IDENTITY_PROVIDER", IdentityLocal),
		OAuthRedirectPort:   getEnv("OAUTH_REDIRECT_PORT", "8085"),
		LocalIdentitySecret: getEnv("LOCAL_IDENTITY_SECRET", ""),
		LocalIdentityEmail:  getEnv("LOCAL_IDENTITY_EMAIL", "host@localhost"),
		LocalTokenTTL:       getEnvDuration("LOCAL_TOKEN_TTL", time.Hour),

		SessionDBPath: getEnv("SESSION_DB_PATH", "./data/session.db"),

		WriteDebounce:   getEnvDuration("WRITE_DEBOUNCE", time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
		RefreshSchedule: getEnvAllowEmpty("REFRESH_SCHEDULE", "@every 5m"),
		TaxJurisdiction: getEnv("TAX_JURISDICTION", string(tax.Brazil)),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "airbnb-organizer.events"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns every problem it finds
// in a single error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSheets}
	if !slices.Contains(validBackends, c.RemoteBackend) {
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, validBackends))
	}

	validProviders := []string{IdentityGoogle, IdentityLocal}
	if !slices.Contains(validProviders, c.IdentityProvider) {
		errors = append(errors, fmt.Sprintf("invalid identity provider '%s': must be one of %v", c.IdentityProvider, validProviders))
	}

	if c.RemoteBackend == BackendSheets && c.IdentityProvider != IdentityGoogle {
		errors = append(errors, "the sheets backend needs Google tokens: set IDENTITY_PROVIDER=google")
	}

	if c.IdentityProvider == IdentityGoogle {
		hasClientFile := c.GoogleOAuthClientFile != ""
		hasClientJSON := c.GoogleOAuthClientJSON != ""
		if !hasClientFile && !hasClientJSON {
			errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for google identity")
		}
		if hasClientFile {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		// 0 picks a free port.
		if port, err := strconv.Atoi(c.OAuthRedirectPort); err != nil || port < 0 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid OAuth redirect port '%s'", c.OAuthRedirectPort))
		}
	}

	if c.IdentityProvider == IdentityLocal {
		if c.LocalIdentitySecret == "" {
			errors = append(errors, "LOCAL_IDENTITY_SECRET is required for local identity")
		}
		if c.LocalIdentityEmail == "" {
			errors = append(errors, "LOCAL_IDENTITY_EMAIL is required for local identity")
		}
		if c.LocalTokenTTL < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid local token ttl %v: must be at least 1 minute", c.LocalTokenTTL))
		}
	}

	if c.SessionDBPath == "" {
		errors = append(errors, "session database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SessionDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create session database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.WriteDebounce < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid write debounce %v: must be at least 100ms", c.WriteDebounce))
	} else if c.WriteDebounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid write debounce %v: must be at most 1 minute", c.WriteDebounce))
	}
	if c.WriteTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid write timeout %v: must be at least 1 second", c.WriteTimeout))
	}

	if c.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid refresh schedule '%s': %v", c.RefreshSchedule, err))
		}
	}

	if _, err := tax.Get(tax.Jurisdiction(c.TaxJurisdiction)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid tax jurisdiction '%s': must be one of %v", c.TaxJurisdiction, tax.Jurisdictions()))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json", "tint"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
