package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hnipps/seriesvault/pkg/models"
)

func clearTestEnv() {
	envVars := []string{
		"REQUEST_TIMEOUT", "REQUEST_DELAY", "CONCURRENT_LIMIT",
		"LOG_LEVEL", "LOG_FILE", "DRY_RUN", "CRON_SCHEDULE",
	}
	for _, envVar := range envVars {
		os.Unsetenv(envVar)
	}
}

func TestLoadConfig_WithDefaults(t *testing.T) {
	clearTestEnv()
	defer clearTestEnv()

	cfg, err := LoadConfig([]string{"/media/shows"})
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.FolderPath != "/media/shows" {
		t.Errorf("FolderPath = %q, want /media/shows", cfg.FolderPath)
	}
	if cfg.ConfigPath != "/media/shows" {
		t.Errorf("ConfigPath defaults to FolderPath, got %q", cfg.ConfigPath)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.RequestDelay != 500*time.Millisecond {
		t.Errorf("RequestDelay = %v, want 500ms", cfg.RequestDelay)
	}
	if cfg.ConcurrentLimit != 5 {
		t.Errorf("ConcurrentLimit = %d, want 5", cfg.ConcurrentLimit)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", cfg.LogLevel)
	}
	if cfg.DryRun {
		t.Errorf("DryRun = true, want false")
	}
	if cfg.CronSchedule != "" {
		t.Errorf("CronSchedule = %q, want empty (scheduler disabled by default)", cfg.CronSchedule)
	}
	if cfg.LogFilePath != "" {
		t.Errorf("LogFilePath = %q, want empty (console logging by default)", cfg.LogFilePath)
	}
}

func TestLoadConfig_WithCustomValues(t *testing.T) {
	clearTestEnv()
	defer clearTestEnv()

	os.Setenv("REQUEST_TIMEOUT", "60s")
	os.Setenv("REQUEST_DELAY", "1s")
	os.Setenv("CONCURRENT_LIMIT", "10")
	os.Setenv("LOG_LEVEL", "DEBUG")
	os.Setenv("DRY_RUN", "true")

	cfg, err := LoadConfig([]string{"/media/shows", "/etc/seriesvault", "--cron", "@every 30m", "--log-file", "/var/log/seriesvault.log"})
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.LogFilePath != "/var/log/seriesvault.log" {
		t.Errorf("LogFilePath = %q, want /var/log/seriesvault.log", cfg.LogFilePath)
	}
	if cfg.ConfigPath != "/etc/seriesvault" {
		t.Errorf("ConfigPath = %q, want /etc/seriesvault", cfg.ConfigPath)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %v, want 60s", cfg.RequestTimeout)
	}
	if cfg.RequestDelay != time.Second {
		t.Errorf("RequestDelay = %v, want 1s", cfg.RequestDelay)
	}
	if cfg.ConcurrentLimit != 10 {
		t.Errorf("ConcurrentLimit = %d, want 10", cfg.ConcurrentLimit)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q, want DEBUG", cfg.LogLevel)
	}
	if !cfg.DryRun {
		t.Errorf("DryRun = false, want true")
	}
	if cfg.CronSchedule != "@every 30m" {
		t.Errorf("CronSchedule = %q, want '@every 30m'", cfg.CronSchedule)
	}
}

func TestLoadConfig_MissingFolderPath(t *testing.T) {
	clearTestEnv()
	defer clearTestEnv()

	if _, err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for missing folder_path")
	}
}

func TestLoadConfig_Help(t *testing.T) {
	clearTestEnv()
	defer clearTestEnv()

	cfg, err := LoadConfig([]string{"--help"})
	if err != nil {
		t.Fatalf("LoadConfig(--help) should not error: %v", err)
	}
	if !cfg.ShowHelp {
		t.Fatalf("expected ShowHelp = true")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				FolderPath:      "/media",
				RequestTimeout:  30 * time.Second,
				ConcurrentLimit: 5,
			},
			wantErr: false,
		},
		{
			name: "missing folder path",
			config: &Config{
				RequestTimeout:  30 * time.Second,
				ConcurrentLimit: 5,
			},
			wantErr: true,
		},
		{
			name: "zero timeout",
			config: &Config{
				FolderPath:      "/media",
				RequestTimeout:  0,
				ConcurrentLimit: 5,
			},
			wantErr: true,
		},
		{
			name: "zero concurrent limit",
			config: &Config{
				FolderPath:      "/media",
				RequestTimeout:  30 * time.Second,
				ConcurrentLimit: 0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFilterRules(t *testing.T) {
	dir := t.TempDir()
	doc := `{"blacklist_extensions":["nfo"],"whitelist_folders":["extras"],"whitelist_filenames":[],"whitelist_tags":["1080p"]}`
	if err := os.WriteFile(filepath.Join(dir, "app_config.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadFilterRules(dir)
	if err != nil {
		t.Fatalf("LoadFilterRules failed: %v", err)
	}
	if !rules.IsBlacklistedExtension("nfo") {
		t.Errorf("expected nfo blacklisted")
	}
	if !rules.IsWhitelistedFolder("extras") {
		t.Errorf("expected extras whitelisted")
	}
	if !rules.IsWhitelistedTag("1080p") {
		t.Errorf("expected 1080p whitelisted")
	}
}

func TestLoadFilterRules_Missing(t *testing.T) {
	dir := t.TempDir()
	rules, err := LoadFilterRules(dir)
	if err != nil {
		t.Fatalf("expected no error for missing app_config.json, got %v", err)
	}
	if rules.IsBlacklistedExtension("nfo") {
		t.Errorf("expected empty rules")
	}
}

func TestLoadFilterRules_Malformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app_config.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFilterRules(dir); err == nil {
		t.Fatalf("expected error for malformed app_config.json")
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if _, ok, err := LoadCredentials(dir); err != nil || ok {
		t.Fatalf("expected ok=false, err=nil for missing credentials.json, got ok=%v err=%v", ok, err)
	}

	doc := models.CredentialsFile{
		Credentials: models.Credentials{APIKey: "key", UserKey: "user", Username: "name"},
		Token:       "tok",
	}
	if err := SaveCredentials(dir, doc); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	loaded, ok, err := LoadCredentials(dir)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true after save")
	}
	if loaded != doc {
		t.Fatalf("loaded = %+v, want %+v", loaded, doc)
	}
}
