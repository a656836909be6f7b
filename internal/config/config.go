// Package config provides YAML-based configuration for the portal backend.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// DocSpace platform connection
	DocSpace DocSpaceConfig `yaml:"docspace"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Spreadsheet export configuration
	Export ExportConfig `yaml:"export"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port              int    `yaml:"port"`
	BindAddress       string `yaml:"bindAddress"`
	EnableCORS        bool   `yaml:"enableCors"`
	AllowOrigins      string `yaml:"allowOrigins"`
	ReadTimeout       int    `yaml:"readTimeoutSeconds"`
	WriteTimeout      int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout       int    `yaml:"idleTimeoutSeconds"`
	RequestTimeout    int    `yaml:"requestTimeoutSeconds"`
	BodyLimit         string `yaml:"bodyLimit"`
	EnableCompression bool   `yaml:"enableCompression"`
	CompressionLevel  int    `yaml:"compressionLevel"`
	EnableMetrics     bool   `yaml:"enableMetrics"`
}

// DocSpaceConfig contains platform API settings
type DocSpaceConfig struct {
	BaseURL             string `yaml:"baseUrl"`
	APIKey              string `yaml:"apiKey"`
	FormsRoomID         string `yaml:"formsRoomId"`
	FormsRoomTitle      string `yaml:"formsRoomTitle"`
	TimeoutSeconds      int    `yaml:"timeoutSeconds"`
	RoomCacheTTLSeconds int    `yaml:"roomCacheTtlSeconds"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	Driver               string `yaml:"driver"`
	DataDirectory        string `yaml:"dataDirectory"`
	FlushIntervalSeconds int    `yaml:"flushIntervalSeconds"`
}

// ExportConfig contains spreadsheet export settings
type ExportConfig struct {
	DatabasePath string `yaml:"databasePath"`
	MaxRows      int    `yaml:"maxRows"`
	SheetName    string `yaml:"sheetName"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level                string `yaml:"level"`
	Pretty               bool   `yaml:"pretty"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              8089,
			BindAddress:       "0.0.0.0",
			EnableCORS:        true,
			AllowOrigins:      "*",
			ReadTimeout:       30,
			WriteTimeout:      60,
			IdleTimeout:       120,
			RequestTimeout:    55,
			BodyLimit:         "1M",
			EnableCompression: true,
			CompressionLevel:  5,
			EnableMetrics:     true,
		},
		DocSpace: DocSpaceConfig{
			FormsRoomTitle:      "Patient Forms",
			TimeoutSeconds:      30,
			RoomCacheTTLSeconds: 300,
		},
		Storage: StorageConfig{
			Driver:               "memory",
			DataDirectory:        "./data",
			FlushIntervalSeconds: 5,
		},
		Export: ExportConfig{
			DatabasePath: "./data/export.duckdb",
			MaxRows:      5000,
			SheetName:    "Export",
		},
		Logging: LoggingConfig{
			Level:                "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A default file is written
// when none exists. Variables from a .env file next to it, then the process
// environment, override file values.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is fine; existing environment variables win.
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# DocSpace portal backend configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if v := os.Getenv("DOCSPACE_BASE_URL"); v != "" {
		c.DocSpace.BaseURL = v
	}
	if v := os.Getenv("DOCSPACE_API_KEY"); v != "" {
		c.DocSpace.APIKey = v
	}
	if v := os.Getenv("DOCSPACE_FORMS_ROOM_ID"); v != "" {
		c.DocSpace.FormsRoomID = v
	}
	if v := os.Getenv("DOCSPACE_FORMS_ROOM_TITLE"); v != "" {
		c.DocSpace.FormsRoomTitle = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if c.Export.DatabasePath != "" && !filepath.IsAbs(c.Export.DatabasePath) {
		c.Export.DatabasePath = filepath.Join(configDir, c.Export.DatabasePath)
	}
}

// Validate reports configuration that would make the server unusable.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DocSpace.BaseURL) == "" {
		errs = append(errs, errors.New("docspace.baseUrl (DOCSPACE_BASE_URL) is required"))
	} else if u, err := url.Parse(c.DocSpace.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("docspace.baseUrl %q is not an absolute URL", c.DocSpace.BaseURL))
	}
	if strings.TrimSpace(c.DocSpace.APIKey) == "" {
		errs = append(errs, errors.New("docspace.apiKey (DOCSPACE_API_KEY) is required"))
	}
	if c.DocSpace.FormsRoomID == "" && c.DocSpace.FormsRoomTitle == "" {
		errs = append(errs, errors.New("docspace.formsRoomId or docspace.formsRoomTitle is required"))
	}
	switch c.Storage.Driver {
	case "memory", "duckdb":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q must be memory or duckdb", c.Storage.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// StorePath returns the file backing the configured storage driver.
func (c *AppConfig) StorePath() string {
	if c.Storage.Driver == "duckdb" {
		return filepath.Join(c.Storage.DataDirectory, "portal.duckdb")
	}
	return filepath.Join(c.Storage.DataDirectory, "portal.msgpack")
}

// FlushInterval returns the memory store flush interval.
func (c *AppConfig) FlushInterval() time.Duration {
	return time.Duration(c.Storage.FlushIntervalSeconds) * time.Second
}

// RequestTimeout bounds the context of each API request.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// DocSpaceTimeout returns the platform request timeout.
func (c *AppConfig) DocSpaceTimeout() time.Duration {
	return time.Duration(c.DocSpace.TimeoutSeconds) * time.Second
}

// RoomCacheTTL returns how long the resolved forms room is cached.
func (c *AppConfig) RoomCacheTTL() time.Duration {
	return time.Duration(c.DocSpace.RoomCacheTTLSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.Export.DatabasePath != "" {
		dirs = append(dirs, filepath.Dir(c.Export.DatabasePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
