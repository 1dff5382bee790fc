package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver    string
	DBPath      string
	PostgresDSN string
	RawDir      string
	OutputDir   string

	PlansExportURL    string
	UserAgent         string
	FetchRateLimitRPS int
	FetchTimeoutMs    int
	FetchMaxAttempts  int
	BreakerFailures   int
	BreakerCooldownS  int

	EngineSettingsPath string
	DirectoryPath      string
	PublishFilter      string

	ERCOTPricesURL string
	ERCOTFuelURL   string
	EIAAPIBaseURL  string
	EIAAPIKey      string

	NotifySMTPAddr     string
	NotifySMTPUser     string
	NotifySMTPPassword string
	NotifyFrom         string
	NotifyTo           []string

	APIHost string
	APIPort int

	SchedulerIntervalMin int
	SchedulerAutoExport  bool
	SchedulerMarket      bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "wattwise.db")),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		RawDir:      getEnv("RAW_SNAPSHOT_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		PlansExportURL:    getEnv("PLANS_EXPORT_URL", "http://www.powertochoose.org/en-us/Plan/ExportToCsv"),
		UserAgent:         getEnv("FETCH_USER_AGENT", "WattWise Rate Updater/1.0"),
		FetchRateLimitRPS: getEnvInt("FETCH_RATE_LIMIT_RPS", 2),
		FetchTimeoutMs:    getEnvInt("FETCH_TIMEOUT_MS", 30000),
		FetchMaxAttempts:  getEnvInt("FETCH_MAX_ATTEMPTS", 5),
		BreakerFailures:   getEnvInt("FETCH_BREAKER_FAILURES", 3),
		BreakerCooldownS:  getEnvInt("FETCH_BREAKER_COOLDOWN_SEC", 300),

		EngineSettingsPath: getEnv("ENGINE_SETTINGS_PATH", ""),
		DirectoryPath:      getEnv("PROVIDER_DIRECTORY_PATH", ""),
		PublishFilter:      getEnv("PUBLISH_FILTER", ""),

		ERCOTPricesURL: getEnv("ERCOT_PRICES_URL", "https://www.ercot.com/content/cdr/html/real_time_spp.html"),
		ERCOTFuelURL:   getEnv("ERCOT_FUEL_URL", "https://www.ercot.com/content/cdr/html/real_time_system_conditions.html"),
		EIAAPIBaseURL:  getEnv("EIA_API_BASE_URL", "https://api.eia.gov/v2"),
		EIAAPIKey:      getEnv("EIA_API_KEY", ""),

		NotifySMTPAddr:     getEnv("NOTIFY_SMTP_ADDR", ""),
		NotifySMTPUser:     getEnv("NOTIFY_SMTP_USER", ""),
		NotifySMTPPassword: getEnv("NOTIFY_SMTP_PASSWORD", ""),
		NotifyFrom:         getEnv("NOTIFY_FROM", "wattwise@localhost"),
		NotifyTo:           getEnvList("NOTIFY_TO"),

		APIHost: getEnv("API_HOST", "0.0.0.0"),
		APIPort: getEnvInt("API_PORT", 8080),

		SchedulerIntervalMin: getEnvInt("SCHEDULER_INTERVAL_MIN", 360),
		SchedulerAutoExport:  getEnvBool("SCHEDULER_AUTO_EXPORT", true),
		SchedulerMarket:      getEnvBool("SCHEDULER_MARKET_REFRESH", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

func (c Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// NotifyEnabled reports whether run reports should be mailed.
func (c Config) NotifyEnabled() bool {
	return len(c.NotifyTo) > 0 && c.NotifySMTPAddr != ""
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
