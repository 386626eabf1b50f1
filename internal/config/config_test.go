package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waabox/seerrdeck/internal/config"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[server]
url = "https://requests.example.com"

[plex]
product = "Living Room"
poll_interval_ms = 2500
login_timeout_seconds = 120

[storage]
driver = "sqlite"
path = "/var/lib/seerrdeck/state.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.URL != "https://requests.example.com" {
		t.Errorf("expected server URL 'https://requests.example.com', got '%s'", cfg.Server.URL)
	}
	if got := cfg.ProductOrDefault(); got != "Living Room" {
		t.Errorf("expected product 'Living Room', got '%s'", got)
	}
	if got := cfg.PollIntervalOrDefault(); got != 2500*time.Millisecond {
		t.Errorf("expected poll interval 2.5s, got %s", got)
	}
	if got := cfg.LoginTimeoutOrDefault(); got != 2*time.Minute {
		t.Errorf("expected login timeout 2m, got %s", got)
	}
	if got := cfg.StorageDriverOrDefault(); got != "sqlite" {
		t.Errorf("expected driver 'sqlite', got '%s'", got)
	}
	if got := cfg.StoragePathOrDefault(); got != "/var/lib/seerrdeck/state.db" {
		t.Errorf("expected storage path from file, got '%s'", got)
	}
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[server]
url = "https://fromfile.example.com"

[plex]
poll_interval_ms = 2500
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SEERRDECK_SERVER_URL", "https://fromenv.example.com")
	t.Setenv("SEERRDECK_POLL_INTERVAL_MS", "500")
	t.Setenv("SEERRDECK_LOG_LEVEL", "debug")

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.URL != "https://fromenv.example.com" {
		t.Errorf("expected env URL, got '%s'", cfg.Server.URL)
	}
	if got := cfg.PollIntervalOrDefault(); got != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %s", got)
	}
	if got := cfg.LogLevelOrDefault(); got != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", got)
	}
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	t.Setenv("SEERRDECK_SERVER_URL", "http://onlyenv:5055")
	cfg, err := config.LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("missing file should not be an error, got: %v", err)
	}
	if cfg.Server.URL != "http://onlyenv:5055" {
		t.Errorf("expected URL from env, got '%s'", cfg.Server.URL)
	}
}

func TestLoad_InvalidEnvValueIsError(t *testing.T) {
	t.Setenv("SEERRDECK_LOGIN_TIMEOUT_SECONDS", "soon")
	if _, err := config.LoadFrom("/nonexistent/path/config.toml"); err == nil {
		t.Fatal("expected error for non-numeric timeout")
	}
}

func TestLoad_MalformedFileIsError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[server\nurl ="), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFrom(configPath); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg config.Config
	if got := cfg.ProductOrDefault(); got != "Seerrdeck" {
		t.Errorf("expected default product 'Seerrdeck', got '%s'", got)
	}
	if got := cfg.PollIntervalOrDefault(); got != time.Second {
		t.Errorf("expected default poll interval 1s, got %s", got)
	}
	if got := cfg.LoginTimeoutOrDefault(); got != 15*time.Minute {
		t.Errorf("expected default login timeout 15m, got %s", got)
	}
	if got := cfg.StorageDriverOrDefault(); got != "file" {
		t.Errorf("expected default driver 'file', got '%s'", got)
	}
	if got := filepath.Base(cfg.StoragePathOrDefault()); got != "state.toml" {
		t.Errorf("expected default storage file 'state.toml', got '%s'", got)
	}
	if got := cfg.LogLevelOrDefault(); got != "info" {
		t.Errorf("expected default log level 'info', got '%s'", got)
	}

	cfg.Storage.Driver = "sqlite"
	if got := filepath.Base(cfg.StoragePathOrDefault()); got != "state.db" {
		t.Errorf("expected sqlite storage file 'state.db', got '%s'", got)
	}
}

func TestSave_WritesAndReloads(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nested", "config.toml")

	var cfg config.Config
	cfg.Server.URL = "https://requests.example.com"
	cfg.Plex.LoginTimeoutSeconds = 300

	if err := config.Save(configPath, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	loaded, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Server.URL != cfg.Server.URL {
		t.Errorf("expected URL '%s', got '%s'", cfg.Server.URL, loaded.Server.URL)
	}
	if loaded.LoginTimeoutOrDefault() != 5*time.Minute {
		t.Errorf("expected 5m timeout, got %s", loaded.LoginTimeoutOrDefault())
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := config.DefaultConfigPath()
	if filepath.Base(path) != "config.toml" {
		t.Errorf("expected config.toml, got %s", path)
	}
	if filepath.Base(filepath.Dir(path)) != "seerrdeck" {
		t.Errorf("expected seerrdeck directory, got %s", path)
	}
}

func TestValidateServerURL(t *testing.T) {
	cases := []struct {
		url     string
		wantErr bool
	}{
		{"https://requests.example.com", false},
		{"http://192.168.1.10:5055", false},
		{"", true},
		{"ftp://requests.example.com", true},
		{"https://", true},
		{"requests.example.com", true},
	}
	for _, tc := range cases {
		err := config.ValidateServerURL(tc.url)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateServerURL(%q): wantErr=%v, got %v", tc.url, tc.wantErr, err)
		}
	}
}
