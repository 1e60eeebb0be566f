// Package config loads seriesvault's run configuration from command line
// flags and environment variables, plus the two on-disk JSON documents the
// catalog domain needs: app_config.json (filter rules) and
// credentials.json (TVDB login).
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/hnipps/seriesvault/pkg/models"
)

// Config holds all configuration for a seriesvault run.
type Config struct {
	FolderPath string
	ConfigPath string

	RequestTimeout  time.Duration
	RequestDelay    time.Duration
	ConcurrentLimit int
	LogLevel        string
	DryRun          bool

	// LogFilePath, when non-empty, sends log output to a plain
	// "[LEVEL] msg" file logger instead of the colorized console logger.
	LogFilePath string

	// CronSchedule arms the optional periodic-rescan scheduler when
	// non-empty (e.g. "@every 30m"). Empty disables it, so the program
	// runs once and exits.
	CronSchedule string

	ShowHelp bool
}

// LoadConfig loads configuration from args and the environment.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("seriesvault", flag.ContinueOnError)

	cronFlag := fs.String("cron", "", `periodic rescan schedule (e.g. "@every 30m"); omit to run once and exit`)
	logFileFlag := fs.String("log-file", "", "write logs to this file instead of the console")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "seriesvault - catalog-driven media folder renamer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s <folder_path> [config_path] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  REQUEST_TIMEOUT   HTTP request timeout (default: 30s)\n")
		fmt.Fprintf(os.Stderr, "  REQUEST_DELAY     Delay between API requests (default: 500ms)\n")
		fmt.Fprintf(os.Stderr, "  CONCURRENT_LIMIT  Max concurrent requests (default: 5)\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL         Log level (default: INFO)\n")
		fmt.Fprintf(os.Stderr, "  LOG_FILE          Write logs to this file instead of the console\n")
		fmt.Fprintf(os.Stderr, "  DRY_RUN           Run in dry-run mode (default: false)\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s /media/shows\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s /media/shows /etc/seriesvault --cron '@every 30m'\n", os.Args[0])
	}

	// flag stops at the first positional argument, so parse repeatedly to
	// accept options both before and after <folder_path> [config_path].
	var rest []string
	for {
		if err := fs.Parse(args); err != nil {
			if err == flag.ErrHelp {
				return &Config{ShowHelp: true}, nil
			}
			return nil, fmt.Errorf("error parsing flags: %w", err)
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		rest = append(rest, args[0])
		args = args[1:]
	}

	_ = godotenv.Load()

	if len(rest) == 0 {
		return nil, fmt.Errorf("folder_path is required")
	}

	cfg := &Config{
		FolderPath:      rest[0],
		RequestTimeout:  30 * time.Second,
		RequestDelay:    500 * time.Millisecond,
		ConcurrentLimit: 5,
		LogLevel:        "INFO",
		CronSchedule:    *cronFlag,
		LogFilePath:     *logFileFlag,
	}
	if len(rest) > 1 {
		cfg.ConfigPath = rest[1]
	} else {
		cfg.ConfigPath = cfg.FolderPath
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return nil, fmt.Errorf("parse REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("REQUEST_DELAY"); v != "" {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return nil, fmt.Errorf("parse REQUEST_DELAY: %w", err)
		}
		cfg.RequestDelay = d
	}
	if v := os.Getenv("CONCURRENT_LIMIT"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("parse CONCURRENT_LIMIT: %w", err)
		}
		cfg.ConcurrentLimit = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if cfg.LogFilePath == "" {
		cfg.LogFilePath = os.Getenv("LOG_FILE")
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("parse DRY_RUN: %w", err)
		}
		cfg.DryRun = b
	}
	if cfg.CronSchedule == "" {
		cfg.CronSchedule = os.Getenv("CRON_SCHEDULE")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	if c.FolderPath == "" {
		return fmt.Errorf("folder_path is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.ConcurrentLimit <= 0 {
		return fmt.Errorf("concurrent limit must be greater than 0")
	}
	return nil
}

// appConfigDoc is the on-disk shape of app_config.json.
type appConfigDoc struct {
	BlacklistExtensions []string `json:"blacklist_extensions"`
	WhitelistFolders    []string `json:"whitelist_folders"`
	WhitelistFilenames  []string `json:"whitelist_filenames"`
	WhitelistTags       []string `json:"whitelist_tags"`
}

// LoadFilterRules reads <configPath>/app_config.json. A missing file
// yields empty rules; malformed JSON is a ConfigParse-kind error.
func LoadFilterRules(configPath string) (models.FilterRules, error) {
	path := filepath.Join(configPath, "app_config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewFilterRules(nil, nil, nil, nil), nil
		}
		return models.FilterRules{}, fmt.Errorf("read %s: %w", path, err)
	}

	var doc appConfigDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.FilterRules{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return models.NewFilterRules(
		doc.BlacklistExtensions,
		doc.WhitelistFolders,
		doc.WhitelistFilenames,
		doc.WhitelistTags,
	), nil
}

// LoadCredentials reads <configPath>/credentials.json. A missing file is
// not an error - it simply means no cached session or stored credentials
// exist yet.
func LoadCredentials(configPath string) (models.CredentialsFile, bool, error) {
	path := filepath.Join(configPath, "credentials.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.CredentialsFile{}, false, nil
		}
		return models.CredentialsFile{}, false, fmt.Errorf("read %s: %w", path, err)
	}

	var doc models.CredentialsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.CredentialsFile{}, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, true, nil
}

// SaveCredentials writes the credentials document back to
// <configPath>/credentials.json, e.g. after a successful login or token
// refresh updates the cached token.
func SaveCredentials(configPath string, doc models.CredentialsFile) error {
	path := filepath.Join(configPath, "credentials.json")
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
