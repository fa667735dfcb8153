package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adcopysurge/backend/internal/generator"
	"github.com/adcopysurge/backend/internal/ratelimit"
	"github.com/adcopysurge/backend/internal/scoring"
	internalsettings "github.com/adcopysurge/backend/internal/settings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvAdminToken   = "ADMIN_TOKEN"
	EnvLogLevel     = "LOG_LEVEL"
	EnvPort         = "PORT"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads .env (when present) and resolves the config path from the environment.
func LoadFromEnv() (AppConfig, error) {
	if errEnv := godotenv.Load(); errEnv != nil && !errors.Is(errEnv, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", errEnv)
	}
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./" + internalsettings.DefaultConfigPath
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// CreditsConfig tunes the monthly credit cycle.
type CreditsConfig struct {
	ResetInterval time.Duration `yaml:"reset-interval"`
}

// Config is the full application configuration.
type Config struct {
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Port       int                      `yaml:"port"`
	LogLevel   string                   `yaml:"log-level"`
	AdminToken string                   `yaml:"admin-token"`
	OpenAI     generator.OpenAIConfig   `yaml:"openai"`
	RateLimit  ratelimit.SettingsConfig `yaml:"rate-limit"`
	Scoring    scoring.Config           `yaml:"scoring"`
	Credits    CreditsConfig            `yaml:"credits"`
}

// DSN returns the configured database DSN, preferring the flat key.
func (c Config) DSN() string {
	if dsn := strings.TrimSpace(c.DatabaseDSN); dsn != "" {
		return dsn
	}
	return strings.TrimSpace(c.Database.DSN)
}

// Default returns the configuration used for keys the file omits.
func Default() Config {
	return Config{
		Port:      internalsettings.DefaultPort,
		LogLevel:  internalsettings.DefaultLogLevel,
		RateLimit: ratelimit.DefaultSettingsConfig(),
		Scoring:   scoring.DefaultConfig(),
		Credits:   CreditsConfig{ResetInterval: internalsettings.DefaultCreditResetInterval},
	}
}

// Load reads the YAML config file over the defaults and applies env overrides.
// A missing file is not an error; the defaults and environment still apply.
func Load(configPath string) (Config, error) {
	cfg := Default()

	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
		log.Infof("config file %s not found, using defaults and environment", configPath)
	default:
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if key := strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey)); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if token := strings.TrimSpace(os.Getenv(EnvAdminToken)); token != "" {
		cfg.AdminToken = token
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.LogLevel = level
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvPort)); portRaw != "" {
		port, errPort := strconv.Atoi(portRaw)
		if errPort != nil {
			return Config{}, fmt.Errorf("parse %s: %w", EnvPort, errPort)
		}
		cfg.Port = port
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Credits.ResetInterval <= 0 {
		cfg.Credits.ResetInterval = internalsettings.DefaultCreditResetInterval
	}
	cfg.RateLimit = cfg.RateLimit.Normalize()
	return cfg, nil
}

// LoadDatabaseDSN reads the database DSN from the environment or the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return "", err
	}
	if dsn := cfg.DSN(); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// ParseLogLevel maps a level name onto logrus, defaulting to info.
func ParseLogLevel(raw string) log.Level {
	level, err := log.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return log.InfoLevel
	}
	return level
}
