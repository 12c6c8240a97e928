package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7410"
	DefaultDBFileName = ".docrev.db"
	DefaultLogLevel   = "info"

	DefaultMaxUploadMB             = 100
	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024

	configDirEnvKey = "DOCREV_CONFIG_DIR"
	apiURLEnvKey    = "DOCREV_API_URL"
	dbPathEnvKey    = "DOCREV_DB"

	configFileName = ".docrev.toml"
)

// StorageConfig defines filesystem roots for stored documents.
type StorageConfig struct {
	DrawingRoot       string `toml:"drawing_root"`
	TechRoot          string `toml:"tech_root"`
	LegacyDrawingRoot string `toml:"legacy_drawing_root"`
	LegacyTechRoot    string `toml:"legacy_tech_root"`
}

// Config defines runtime configuration for docrev.
type Config struct {
	APIURL             string        `toml:"api_url"`
	DBPath             string        `toml:"db_path"`
	LogLevel           string        `toml:"log_level"`
	MaxUploadMB        int64         `toml:"max_upload_mb"`
	MultipartMaxMemory int64         `toml:"multipart_max_memory"`
	Storage            StorageConfig `toml:"storage"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:             DefaultAPIURL,
		DBPath:             "",
		LogLevel:           "",
		MaxUploadMB:        DefaultMaxUploadMB,
		MultipartMaxMemory: DefaultMultipartMaxMemory,
	}
}

// MaxUploadBytes converts the configured upload cap to bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}
	return mb * 1024 * 1024
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"max_upload_mb",
	"multipart_max_memory",
	"storage.drawing_root",
	"storage.tech_root",
	"storage.legacy_drawing_root",
	"storage.legacy_tech_root",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "max_upload_mb":
		return strconv.FormatInt(c.MaxUploadMB, 10), nil
	case "multipart_max_memory":
		return strconv.FormatInt(c.MultipartMaxMemory, 10), nil
	case "storage.drawing_root":
		return c.Storage.DrawingRoot, nil
	case "storage.tech_root":
		return c.Storage.TechRoot, nil
	case "storage.legacy_drawing_root":
		return c.Storage.LegacyDrawingRoot, nil
	case "storage.legacy_tech_root":
		return c.Storage.LegacyTechRoot, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from the global file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	globalPath, err := GlobalPath()
	if err == nil {
		if err := loadFile(globalPath, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "max_upload_mb", "multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.MultipartMaxMemory <= 0 {
		c.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Storage.DrawingRoot == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.Storage.DrawingRoot = filepath.Join(cwd, "storage", "drawings")
		}
	}
	if c.Storage.TechRoot == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.Storage.TechRoot = filepath.Join(cwd, "storage", "tech")
		}
	}
}
