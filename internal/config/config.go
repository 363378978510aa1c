package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names the optional TOML file read before the environment.
const ConfigFileEnv = "PLANILLA_CONFIG"

type Config struct {
	// HTTP Server
	Port string `toml:"port"`

	// Database
	SQLiteDBPath string `toml:"sqlite_db_path"`

	// Logging
	LogLevel string `toml:"log_level"`

	// AMQP (optional; empty URL disables week events)
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets payout export (optional)
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`
	GoogleServiceAccountJSON string `toml:"google_service_account_json"`

	// Payroll
	SupervisorPlaceholder string        `toml:"supervisor_placeholder"`
	SummaryCacheTTL       time.Duration `toml:"summary_cache_ttl"`
	StartupSyncWeeks      int           `toml:"startup_sync_weeks"`
}

func defaults() *Config {
	return &Config{
		Port:                  "8081",
		SQLiteDBPath:          "./data/planilla.db",
		LogLevel:              "info",
		AMQPExchange:          "planilla",
		AMQPQueue:             "week_closed",
		SupervisorPlaceholder: "Sin asignar",
		SummaryCacheTTL:       30 * time.Second,
		StartupSyncWeeks:      8,
	}
}

// Load reads configuration from the environment on top of the defaults.
func Load() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile decodes a TOML file on top of the defaults; environment variables
// still win over values from the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)

	c.SupervisorPlaceholder = getEnv("SUPERVISOR_PLACEHOLDER", c.SupervisorPlaceholder)
	c.SummaryCacheTTL = getEnvDuration("SUMMARY_CACHE_TTL", c.SummaryCacheTTL)
	c.StartupSyncWeeks = getEnvInt("STARTUP_SYNC_WEEKS", c.StartupSyncWeeks)
}

// AMQPEnabled reports whether week events should be published.
func (c *Config) AMQPEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// SheetsEnabled reports whether closed weeks are exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite configuration
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate AMQP URL if provided
	if c.AMQPEnabled() {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets configuration if a spreadsheet is set
	if c.SheetsEnabled() {
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided with GOOGLE_SPREADSHEET_ID")
		}
		if hasFile && !hasJSON {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if strings.TrimSpace(c.SupervisorPlaceholder) == "" {
		errors = append(errors, "supervisor placeholder cannot be blank")
	}

	if c.SummaryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must not be negative", c.SummaryCacheTTL))
	} else if c.SummaryCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at most 24 hours", c.SummaryCacheTTL))
	}

	if c.StartupSyncWeeks < 0 || c.StartupSyncWeeks > 520 {
		errors = append(errors, fmt.Sprintf("invalid startup sync weeks %d: must be between 0 and 520", c.StartupSyncWeeks))
	}

	// Return combined errors
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
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
