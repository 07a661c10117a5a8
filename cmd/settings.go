package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/litcal-mcp/internal/config"
	"github.com/teemow/litcal-mcp/internal/logging"
)

// settingsFlags are the configuration flags shared by serve and cache.
// A flag only overrides the environment and the config file when it was
// set explicitly.
type settingsFlags struct {
	configFile      string
	apiBaseURL      string
	cacheDir        string
	cacheBackend    string
	rateLimit       float64
	valkeyURL       string
	valkeyPassword  string
	valkeyDB        int
	valkeyTLS       bool
	valkeyKeyPrefix string
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "Path to a litcal.config.yaml file (default: search the working directory)")
	cmd.Flags().StringVar(&f.apiBaseURL, "api-base-url", "", "Liturgical Calendar API base URL. Can also use LITCAL_API_BASE_URL env var.")
	cmd.Flags().StringVar(&f.cacheDir, "cache-dir", "", "Directory for cached calendars (file backend). Can also use LITCAL_CACHE_DIR env var.")
	cmd.Flags().StringVar(&f.cacheBackend, "cache-backend", "", "Calendar cache backend: file or valkey. Can also use LITCAL_CACHE_BACKEND env var.")
	cmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 0, "Maximum requests per second to the API (0 = unlimited). Can also use LITCAL_RATE_LIMIT env var.")
	cmd.Flags().StringVar(&f.valkeyURL, "valkey-url", "", "Valkey server address (e.g., valkey.namespace.svc:6379). Can also use VALKEY_URL env var.")
	cmd.Flags().StringVar(&f.valkeyPassword, "valkey-password", "", "Valkey password. Can also use VALKEY_PASSWORD env var.")
	cmd.Flags().IntVar(&f.valkeyDB, "valkey-db", 0, "Valkey database number. Can also use VALKEY_DB env var.")
	cmd.Flags().BoolVar(&f.valkeyTLS, "valkey-tls", false, "Enable TLS for Valkey connections. Can also use VALKEY_TLS_ENABLED env var.")
	cmd.Flags().StringVar(&f.valkeyKeyPrefix, "valkey-key-prefix", "", "Prefix for all Valkey keys (default: litcal:). Can also use VALKEY_KEY_PREFIX env var.")
}

// load resolves the settings from .env, environment and config file, then
// applies the flags the user set.
func (f *settingsFlags) load(cmd *cobra.Command, logger *slog.Logger) (*config.Settings, error) {
	settings, err := config.Load(config.Options{
		ConfigFile: f.configFile,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("api-base-url") {
		settings.APIBaseURL = strings.TrimRight(strings.TrimSpace(f.apiBaseURL), "/")
	}
	if changed("cache-dir") {
		dir, err := filepath.Abs(f.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("invalid cache directory %q: %w", f.cacheDir, err)
		}
		settings.CacheDir = dir
	}
	if changed("cache-backend") {
		settings.CacheBackend = strings.ToLower(strings.TrimSpace(f.cacheBackend))
	}
	if changed("rate-limit") {
		settings.RateLimit = f.rateLimit
	}
	if changed("valkey-url") {
		settings.Valkey.URL = f.valkeyURL
	}
	if changed("valkey-password") {
		settings.Valkey.Password = f.valkeyPassword
	}
	if changed("valkey-db") {
		settings.Valkey.DB = f.valkeyDB
	}
	if changed("valkey-tls") {
		settings.Valkey.TLSEnabled = f.valkeyTLS
	}
	if changed("valkey-key-prefix") {
		settings.Valkey.KeyPrefix = f.valkeyKeyPrefix
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// newLogger builds the process logger. Log lines always go to stderr:
// stdout carries the MCP stdio channel.
func newLogger(debug bool, format string) (*slog.Logger, error) {
	level := os.Getenv("LOG_LEVEL")
	if debug {
		level = "debug"
	}
	return logging.NewLogger(os.Stderr, level, format)
}
