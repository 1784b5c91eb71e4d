package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment overrides
const (
	EnvPort          = "LUONG_PORT"
	EnvDataDir       = "LUONG_DATA_DIR"
	EnvLogLevel      = "LUONG_LOG_LEVEL"
	EnvImportTimeout = "LUONG_IMPORT_TIMEOUT"
)

// AppConfig application configuration
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Log    LogConfig    `toml:"log"`
	Import ImportConfig `toml:"import"`
}

// ServerConfig HTTP server
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig data directory holding the database and uploads
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// LogConfig slog setup
type LogConfig struct {
	Level     string `toml:"level"`  // debug, info, warn, error
	Format    string `toml:"format"` // json, text
	Output    string `toml:"output"` // stdout, stderr, file
	FilePath  string `toml:"file_path"`
	AddSource bool   `toml:"add_source"`
}

// ImportConfig import engine limits
type ImportConfig struct {
	MaxUploadMB       int  `toml:"max_upload_mb"`
	TimeoutSeconds    int  `toml:"timeout_seconds"`
	HeaderScanRows    int  `toml:"header_scan_rows"`
	WarnDuplicateKeys bool `toml:"warn_duplicate_keys"`
}

// Timeout wall-clock limit of one import, zero means none
func (c ImportConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaxUploadBytes upload size limit in bytes
func (c ImportConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// LoadConfigInfo metadata about how the configuration was loaded
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
	EnvOverrides  []string
}

// DefaultConfig default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Import: ImportConfig{
			MaxUploadMB:       20,
			TimeoutSeconds:    60,
			HeaderScanRows:    10,
			WarnDuplicateKeys: true,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir directory of the running executable
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// configDir executable directory when it holds config.toml, else the working directory
func configDir() string {
	if exeDir, err := GetExeDir(); err == nil {
		if _, err := os.Stat(filepath.Join(exeDir, "config.toml")); err == nil {
			return exeDir
		}
	}
	return "."
}

// LoadConfigWithInfo loads config.toml from the executable (or working) directory,
// then .env, then environment overrides.
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadFromPath(filepath.Join(configDir(), "config.toml"))
}

// LoadFromPath loads the given config file; a missing file keeps the defaults
func LoadFromPath(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, info, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	// .env beside the config file; variables already set in the environment win
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, info, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	overrides, err := applyEnv(config)
	if err != nil {
		return nil, info, err
	}
	info.EnvOverrides = overrides
	if contains(overrides, EnvPort) {
		info.PortSpecified = true
	}
	return config, info, nil
}

func applyEnv(config *AppConfig) ([]string, error) {
	var applied []string
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: %q", EnvPort, v)
		}
		config.Server.Port = port
		applied = append(applied, EnvPort)
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		config.Data.DataDir = v
		applied = append(applied, EnvDataDir)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Log.Level = v
		applied = append(applied, EnvLogLevel)
	}
	if v := os.Getenv(EnvImportTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvImportTimeout, v)
		}
		config.Import.TimeoutSeconds = secs
		applied = append(applied, EnvImportTimeout)
	}
	return applied, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LoadConfig loads the configuration, see LoadConfigWithInfo
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig writes the configuration to path as TOML
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveDataDir absolute data directory; relative paths hang off the config directory
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	return filepath.Join(configDir(), config.Data.DataDir)
}

// EnsureDataDir creates the data directory and its uploads subdirectory
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)
	if err := os.MkdirAll(filepath.Join(dataDir, "uploads"), 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}

// GetDataPath path of a file inside the data directory
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(ResolveDataDir(config), subdir, filename)
}
