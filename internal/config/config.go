package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port              string
	WritesPerMinute   int
	TrustProxyHeaders bool

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	AMQPSyncQueue string

	// Calendar
	Timezone       string
	FirstDayOfWeek string

	// Background jobs
	RecurringInterval     time.Duration
	ReminderInterval      time.Duration
	RecurringMode         string
	RecurringSameDayGuard bool
	// ChangePollInterval is how often the server checks the database for
	// writes made by other processes.
	ChangePollInterval time.Duration

	// Google Sheets mirror, optional
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Statistics cache
	StatsCacheSize int
	StatsCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8081"),
		WritesPerMinute:   getEnvInt("WRITES_PER_MINUTE", 60),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expensekeeper.db"),

		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "expensekeeper"),
		AMQPQueue:     getEnv("AMQP_QUEUE", "expensekeeper.events"),
		AMQPSyncQueue: getEnv("AMQP_SYNC_QUEUE", "expensekeeper.sheets"),

		Timezone:       getEnv("TIMEZONE", "Local"),
		FirstDayOfWeek: getEnv("FIRST_DAY_OF_WEEK", "monday"),

		RecurringInterval:     getEnvDuration("RECURRING_INTERVAL", 24*time.Hour),
		ReminderInterval:      getEnvDuration("REMINDER_INTERVAL", 24*time.Hour),
		RecurringMode:         getEnv("RECURRING_MODE", "per-item"),
		RecurringSameDayGuard: getEnvBool("RECURRING_SAME_DAY_GUARD", true),
		ChangePollInterval:    getEnvDuration("CHANGE_POLL_INTERVAL", 2*time.Second),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		StatsCacheSize: getEnvInt("STATS_CACHE_SIZE", 128),
		StatsCacheTTL:  getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// StatsCacheEnabled reports whether reports and trends are cached. A size of
// zero disables the caches.
func (c *Config) StatsCacheEnabled() bool { return c.StatsCacheSize > 0 }

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// WeekStart resolves FirstDayOfWeek.
func (c *Config) WeekStart() (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(c.FirstDayOfWeek)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon", "":
		return time.Monday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	default:
		return time.Monday, fmt.Errorf("invalid first day of week '%s': must be monday, sunday or saturday", c.FirstDayOfWeek)
	}
}

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
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

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if _, err := c.WeekStart(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	}
	if c.ReminderInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 minute", c.ReminderInterval))
	}
	if c.ChangePollInterval < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid change poll interval %v: must be at least 100ms", c.ChangePollInterval))
	}
	switch strings.ToLower(c.RecurringMode) {
	case "per-item", "atomic":
	default:
		errors = append(errors, fmt.Sprintf("invalid recurring mode '%s': must be 'per-item' or 'atomic'", c.RecurringMode))
	}

	if c.SheetsEnabled() {
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.StatsCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid stats cache size %d: must not be negative", c.StatsCacheSize))
	}
	if c.StatsCacheSize > 0 && c.StatsCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid stats cache TTL %v: must be positive", c.StatsCacheTTL))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
