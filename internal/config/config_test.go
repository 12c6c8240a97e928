package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != "http://127.0.0.1:7410" {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.MaxUploadMB != DefaultMaxUploadMB {
		t.Fatalf("expected max_upload_mb default %d, got %d", DefaultMaxUploadMB, cfg.MaxUploadMB)
	}
	if cfg.MultipartMaxMemory != DefaultMultipartMaxMemory {
		t.Fatalf("expected multipart default %d, got %d", DefaultMultipartMaxMemory, cfg.MultipartMaxMemory)
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := Config{MaxUploadMB: 2}
	if got := cfg.MaxUploadBytes(); got != 2*1024*1024 {
		t.Fatalf("expected 2 MiB, got %d", got)
	}
	zero := Config{}
	if got := zero.MaxUploadBytes(); got != DefaultMaxUploadMB*1024*1024 {
		t.Fatalf("expected default cap, got %d", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".docrev.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"
max_upload_mb = 25

[storage]
drawing_root = "/srv/drawings"
legacy_drawing_root = "/mnt/old/drawings"
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url override, got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.MaxUploadMB != 25 {
		t.Fatalf("expected max_upload_mb 25, got %d", cfg.MaxUploadMB)
	}
	if cfg.Storage.DrawingRoot != "/srv/drawings" {
		t.Fatalf("expected drawing_root, got %q", cfg.Storage.DrawingRoot)
	}
	if cfg.Storage.LegacyDrawingRoot != "/mnt/old/drawings" {
		t.Fatalf("expected legacy_drawing_root, got %q", cfg.Storage.LegacyDrawingRoot)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.docrev.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatal("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"db_path",
		"log_level",
		"max_upload_mb",
		"storage.drawing_root",
		"storage.tech_root",
		"storage.legacy_drawing_root",
		"storage.legacy_tech_root",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:      "http://test:1234",
		DBPath:      "/tmp/test.db",
		LogLevel:    "warn",
		MaxUploadMB: 123,
		Storage: StorageConfig{
			DrawingRoot: "/srv/drawings",
			TechRoot:    "/srv/tech",
		},
	}

	val, err := cfg.Get("api_url")
	if err != nil || val != "http://test:1234" {
		t.Fatalf("expected api_url, got %q (err: %v)", val, err)
	}
	val, err = cfg.Get("max_upload_mb")
	if err != nil || val != "123" {
		t.Fatalf("expected max_upload_mb, got %q (err: %v)", val, err)
	}
	val, err = cfg.Get("storage.tech_root")
	if err != nil || val != "/srv/tech" {
		t.Fatalf("expected storage.tech_root, got %q (err: %v)", val, err)
	}
	if _, err = cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("api_url = \"http://keep\"\nlog_level = \"info\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "debug"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected 'debug', got %q", cfg.LogLevel)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url, got %q", cfg.APIURL)
	}
}

func TestSetNestedStorageKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.toml")
	if err := SetKey(path, "storage.drawing_root", "/data/drawings"); err != nil {
		t.Fatalf("set nested key: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.DrawingRoot != "/data/drawings" {
		t.Fatalf("expected drawing_root set, got %q", cfg.Storage.DrawingRoot)
	}
}

func TestSetKeyInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	if err := SetKey(path, "invalid_key", "value"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyRejectsNonPositiveUploadCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cap.toml")
	if err := SetKey(path, "max_upload_mb", "0"); err == nil {
		t.Fatal("expected error for zero upload cap")
	}
}

func TestConfigDirOverridePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCREV_CONFIG_DIR", dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, ".docrev.toml") {
		t.Fatalf("unexpected global path: %s", globalPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCREV_CONFIG_DIR", t.TempDir())
	t.Setenv("DOCREV_API_URL", "http://example.com:8080")
	t.Setenv("DOCREV_DB", "/tmp/override.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
}

func TestLoadFillsStorageDefaults(t *testing.T) {
	t.Setenv("DOCREV_CONFIG_DIR", t.TempDir())
	t.Setenv("DOCREV_API_URL", "")
	t.Setenv("DOCREV_DB", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.DrawingRoot == "" || cfg.Storage.TechRoot == "" {
		t.Fatalf("expected storage roots defaulted, got %+v", cfg.Storage)
	}
	if cfg.MaxUploadMB != DefaultMaxUploadMB {
		t.Fatalf("expected default upload cap, got %d", cfg.MaxUploadMB)
	}
}
