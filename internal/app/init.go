package app

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adcopysurge/backend/internal/db"
	internalsettings "github.com/adcopysurge/backend/internal/settings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned when init would overwrite an existing config file.
var ErrConfigExists = errors.New("config file already exists")

// InitRequest contains parameters for writing a starter config file.
type InitRequest struct {
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabasePath     string
	DatabaseSSLMode  string
	Port             int
	OpenAIAPIKey     string
}

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "adcopysurge.db"

// BuildDSN builds a database DSN from the init request.
func BuildDSN(req InitRequest) (string, error) {
	switch strings.ToLower(strings.TrimSpace(req.DatabaseType)) {
	case "postgres":
		sslMode := req.DatabaseSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			req.DatabaseUser,
			req.DatabasePassword,
			req.DatabaseHost,
			req.DatabasePort,
			req.DatabaseName,
			sslMode,
		), nil
	case "", "sqlite":
		path := strings.TrimSpace(req.DatabasePath)
		if path == "" {
			path = defaultSQLitePath
		}
		return db.BuildSQLiteDSN(path), nil
	default:
		return "", fmt.Errorf("unsupported database type %q", req.DatabaseType)
	}
}

// validateInitRequest normalizes and validates init input data.
func validateInitRequest(req *InitRequest) error {
	dbType := strings.ToLower(strings.TrimSpace(req.DatabaseType))
	if dbType == "" {
		dbType = "sqlite"
	}
	req.DatabaseType = dbType

	switch dbType {
	case "postgres":
		if strings.TrimSpace(req.DatabaseHost) == "" {
			return fmt.Errorf("database host is required")
		}
		if req.DatabasePort <= 0 {
			return fmt.Errorf("invalid database port")
		}
		if strings.TrimSpace(req.DatabaseUser) == "" {
			return fmt.Errorf("database username is required")
		}
		if strings.TrimSpace(req.DatabaseName) == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if strings.TrimSpace(req.DatabasePath) == "" {
			req.DatabasePath = defaultSQLitePath
		}
	default:
		return fmt.Errorf("unsupported database type %q", req.DatabaseType)
	}
	if req.Port == 0 {
		req.Port = internalsettings.DefaultPort
	}
	if req.Port < 0 || req.Port > 65535 {
		return fmt.Errorf("invalid port: %d", req.Port)
	}
	return nil
}

// TestDatabaseConnection validates that the DSN can connect and ping.
func TestDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	defer func() {
		if errClose := sqlDB.Close(); errClose != nil {
			log.Errorf("sql db close error: %v", errClose)
		}
	}()
	return sqlDB.Ping()
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Port        int       `yaml:"port"`
	DatabaseDSN string    `yaml:"database-dsn"`
	LogLevel    string    `yaml:"log-level"`
	AdminToken  string    `yaml:"admin-token"`
	OpenAI      openAICfg `yaml:"openai,omitempty"`
}

// openAICfg holds generator settings for the generated config file.
type openAICfg struct {
	APIKey string `yaml:"api-key,omitempty"`
}

// generateAdminToken creates a random admin bearer token.
func generateAdminToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate admin token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// WriteConfigFile writes the initial config file to disk and returns the generated admin token.
func WriteConfigFile(configPath string, dsn string, port int, openAIKey string) (string, error) {
	token, errToken := generateAdminToken()
	if errToken != nil {
		return "", errToken
	}
	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		LogLevel:    internalsettings.DefaultLogLevel,
		AdminToken:  token,
		OpenAI:      openAICfg{APIKey: strings.TrimSpace(openAIKey)},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return "", fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return "", fmt.Errorf("write config file: %w", errWrite)
	}

	return token, nil
}

// InitConfig validates the database, writes a starter config file and migrates the schema.
func InitConfig(configPath string, req InitRequest) (string, error) {
	if ConfigExists(configPath) {
		return "", fmt.Errorf("%w: %s", ErrConfigExists, configPath)
	}
	if errValidate := validateInitRequest(&req); errValidate != nil {
		return "", errValidate
	}
	dsn, errBuild := BuildDSN(req)
	if errBuild != nil {
		return "", errBuild
	}
	if errTest := TestDatabaseConnection(dsn); errTest != nil {
		return "", fmt.Errorf("database connection failed: %w", errTest)
	}
	token, errWrite := WriteConfigFile(configPath, dsn, req.Port, req.OpenAIAPIKey)
	if errWrite != nil {
		return "", errWrite
	}

	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return "", errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		if errRemove := os.Remove(configPath); errRemove != nil {
			log.Errorf("remove config file error: %v", errRemove)
		}
		return "", fmt.Errorf("migrate database: %w", errMigrate)
	}
	log.Infof("wrote config to %s", configPath)
	return token, nil
}
