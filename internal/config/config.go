package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teemow/litcal-mcp/internal/logging"
)

// Defaults applied when neither the environment nor the config file set a value.
const (
	DefaultAPIBaseURL          = "https://litcal.johnromanodorazio.com/api/dev"
	DefaultTimeout             = 30 * time.Second
	DefaultMetadataCacheExpiry = 24 * time.Hour
	DefaultCalendarCacheExpiry = 7 * 24 * time.Hour
	DefaultCacheDir            = "cache"
	DefaultValkeyKeyPrefix     = "litcal:"

	BackendFile   = "file"
	BackendValkey = "valkey"
)

// Environment variable names.
const (
	EnvAPIBaseURL          = "LITCAL_API_BASE_URL"
	EnvDefaultTimeout      = "LITCAL_DEFAULT_TIMEOUT"
	EnvMetadataCacheExpiry = "LITCAL_METADATA_CACHE_EXPIRY_HOURS"
	EnvCalendarCacheExpiry = "LITCAL_CALENDAR_CACHE_EXPIRY_HOURS"
	EnvCacheDir            = "LITCAL_CACHE_DIR"
	EnvCacheBackend        = "LITCAL_CACHE_BACKEND"
	EnvRateLimit           = "LITCAL_RATE_LIMIT"
	EnvRateBurst           = "LITCAL_RATE_BURST"
	EnvValkeyURL           = "VALKEY_URL"
	EnvValkeyPassword      = "VALKEY_PASSWORD"
	EnvValkeyDB            = "VALKEY_DB"
	EnvValkeyTLSEnabled    = "VALKEY_TLS_ENABLED"
	EnvValkeyKeyPrefix     = "VALKEY_KEY_PREFIX"
)

// File names searched in the working directory, in order.
var configFileNames = []string{"litcal.config.yaml", "litcal.config.yml"}

// Settings is the resolved runtime configuration.
type Settings struct {
	APIBaseURL          string
	Timeout             time.Duration
	MetadataCacheExpiry time.Duration
	CalendarCacheExpiry time.Duration
	CacheDir            string
	CacheBackend        string
	Valkey              ValkeySettings

	// RateLimit is the maximum number of upstream requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// Source is the config file that was applied, empty when none was found.
	Source string
}

// ValkeySettings configures the shared cache backend.
type ValkeySettings struct {
	URL        string
	Password   string
	DB         int
	TLSEnabled bool
	KeyPrefix  string
}

// fileSettings mirrors litcal.config.yaml. Pointer fields distinguish
// "absent" from a zero value.
type fileSettings struct {
	APIBaseURL               *string  `yaml:"api_base_url"`
	DefaultTimeout           *int     `yaml:"default_timeout"`
	MetadataCacheExpiryHours *int     `yaml:"metadata_cache_expiry_hours"`
	CalendarCacheExpiryHours *int     `yaml:"calendar_cache_expiry_hours"`
	CacheDir                 *string  `yaml:"cache_dir"`
	CacheBackend             *string  `yaml:"cache_backend"`
	RateLimit                *float64 `yaml:"rate_limit"`
	RateBurst                *int     `yaml:"rate_burst"`
	Valkey                   struct {
		URL        *string `yaml:"url"`
		Password   *string `yaml:"password"`
		DB         *int    `yaml:"db"`
		TLSEnabled *bool   `yaml:"tls_enabled"`
		KeyPrefix  *string `yaml:"key_prefix"`
	} `yaml:"valkey"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit YAML file. When set it must exist.
	ConfigFile string

	// WorkDir is searched for .env and litcal.config.yaml. Defaults to the
	// process working directory.
	WorkDir string

	// LookupEnv reads environment variables. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Logger receives warnings about ignored values.
	Logger *slog.Logger

	// SkipDotEnv disables loading WorkDir/.env.
	SkipDotEnv bool
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		APIBaseURL:          DefaultAPIBaseURL,
		Timeout:             DefaultTimeout,
		MetadataCacheExpiry: DefaultMetadataCacheExpiry,
		CalendarCacheExpiry: DefaultCalendarCacheExpiry,
		CacheDir:            DefaultCacheDir,
		CacheBackend:        BackendFile,
		Valkey: ValkeySettings{
			KeyPrefix: DefaultValkeyKeyPrefix,
		},
	}
}

// Load resolves settings with the precedence environment > config file > defaults.
// Invalid individual values are logged and replaced by their default; only an
// unreadable explicit config file or an unknown cache backend is an error.
func Load(opts Options) (*Settings, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		opts.WorkDir = wd
	}
	if !opts.SkipDotEnv {
		// godotenv.Load never overrides variables that are already set
		envFile := filepath.Join(opts.WorkDir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				opts.Logger.Warn("failed to load .env file", logging.Path(envFile), logging.Err(err))
			}
		}
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	s := Defaults()

	file, source, err := readFile(opts)
	if err != nil {
		return nil, err
	}
	s.Source = source
	if file != nil {
		applyFile(&s, file, opts.Logger)
	}
	applyEnv(&s, opts.LookupEnv, opts.Logger)

	s.APIBaseURL = strings.TrimRight(strings.TrimSpace(s.APIBaseURL), "/")
	if s.APIBaseURL == "" {
		s.APIBaseURL = DefaultAPIBaseURL
	}
	if !filepath.IsAbs(s.CacheDir) {
		s.CacheDir = filepath.Join(opts.WorkDir, s.CacheDir)
	}
	s.CacheBackend = strings.ToLower(strings.TrimSpace(s.CacheBackend))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports settings that cannot be used.
func (s *Settings) Validate() error {
	switch s.CacheBackend {
	case BackendFile:
	case BackendValkey:
		if s.Valkey.URL == "" {
			return fmt.Errorf("%s is required when the cache backend is %q", EnvValkeyURL, BackendValkey)
		}
	default:
		return fmt.Errorf("invalid cache backend %q, must be one of: %s, %s", s.CacheBackend, BackendFile, BackendValkey)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", s.RateLimit)
	}
	return nil
}

// LogAttrs summarizes the settings for a startup log line. The Valkey
// password is never included.
func (s *Settings) LogAttrs() []any {
	attrs := []any{
		slog.String("api_base_url", s.APIBaseURL),
		slog.Duration("timeout", s.Timeout),
		slog.Duration("metadata_cache_expiry", s.MetadataCacheExpiry),
		slog.Duration("calendar_cache_expiry", s.CalendarCacheExpiry),
		slog.String("cache_backend", s.CacheBackend),
	}
	if s.CacheBackend == BackendValkey {
		attrs = append(attrs, slog.String("valkey_url", s.Valkey.URL), slog.Int("valkey_db", s.Valkey.DB))
	} else {
		attrs = append(attrs, slog.String("cache_dir", s.CacheDir))
	}
	if s.Source != "" {
		attrs = append(attrs, slog.String("config_file", s.Source))
	}
	return attrs
}

func readFile(opts Options) (*fileSettings, string, error) {
	path := opts.ConfigFile
	explicit := path != ""
	if !explicit {
		found, err := FindConfigFile(opts.WorkDir)
		if err != nil {
			return nil, "", nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		opts.Logger.Warn("could not read config file, using defaults", logging.Path(path), logging.Err(err))
		return nil, "", nil
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		if explicit {
			return nil, "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		opts.Logger.Warn("could not parse config file, using defaults", logging.Path(path), logging.Err(err))
		return nil, "", nil
	}
	return &fs, path, nil
}

func applyFile(s *Settings, fs *fileSettings, logger *slog.Logger) {
	if fs.APIBaseURL != nil {
		s.APIBaseURL = *fs.APIBaseURL
	}
	if fs.DefaultTimeout != nil {
		s.Timeout = positiveDuration("default_timeout", *fs.DefaultTimeout, time.Second, DefaultTimeout, logger)
	}
	if fs.MetadataCacheExpiryHours != nil {
		s.MetadataCacheExpiry = positiveDuration("metadata_cache_expiry_hours", *fs.MetadataCacheExpiryHours, time.Hour, DefaultMetadataCacheExpiry, logger)
	}
	if fs.CalendarCacheExpiryHours != nil {
		s.CalendarCacheExpiry = positiveDuration("calendar_cache_expiry_hours", *fs.CalendarCacheExpiryHours, time.Hour, DefaultCalendarCacheExpiry, logger)
	}
	if fs.CacheDir != nil && *fs.CacheDir != "" {
		s.CacheDir = *fs.CacheDir
	}
	if fs.CacheBackend != nil && *fs.CacheBackend != "" {
		s.CacheBackend = *fs.CacheBackend
	}
	if fs.RateLimit != nil {
		s.RateLimit = *fs.RateLimit
	}
	if fs.RateBurst != nil {
		s.RateBurst = *fs.RateBurst
	}
	if fs.Valkey.URL != nil {
		s.Valkey.URL = *fs.Valkey.URL
	}
	if fs.Valkey.Password != nil {
		s.Valkey.Password = *fs.Valkey.Password
	}
	if fs.Valkey.DB != nil {
		s.Valkey.DB = *fs.Valkey.DB
	}
	if fs.Valkey.TLSEnabled != nil {
		s.Valkey.TLSEnabled = *fs.Valkey.TLSEnabled
	}
	if fs.Valkey.KeyPrefix != nil {
		s.Valkey.KeyPrefix = *fs.Valkey.KeyPrefix
	}
}

func applyEnv(s *Settings, lookup func(string) (string, bool), logger *slog.Logger) {
	if v, ok := lookup(EnvAPIBaseURL); ok && v != "" {
		s.APIBaseURL = v
	}
	if n, ok := envInt(lookup, EnvDefaultTimeout, logger); ok {
		s.Timeout = positiveDuration(EnvDefaultTimeout, n, time.Second, DefaultTimeout, logger)
	}
	if n, ok := envInt(lookup, EnvMetadataCacheExpiry, logger); ok {
		s.MetadataCacheExpiry = positiveDuration(EnvMetadataCacheExpiry, n, time.Hour, DefaultMetadataCacheExpiry, logger)
	}
	if n, ok := envInt(lookup, EnvCalendarCacheExpiry, logger); ok {
		s.CalendarCacheExpiry = positiveDuration(EnvCalendarCacheExpiry, n, time.Hour, DefaultCalendarCacheExpiry, logger)
	}
	if v, ok := lookup(EnvCacheDir); ok && v != "" {
		s.CacheDir = v
	}
	if v, ok := lookup(EnvCacheBackend); ok && v != "" {
		s.CacheBackend = v
	}
	if v, ok := lookup(EnvRateLimit); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			logger.Warn("invalid value, using default", slog.String("key", EnvRateLimit), slog.String("value", v))
		} else {
			s.RateLimit = f
		}
	}
	if n, ok := envInt(lookup, EnvRateBurst, logger); ok {
		s.RateBurst = n
	}
	if v, ok := lookup(EnvValkeyURL); ok && v != "" {
		s.Valkey.URL = v
	}
	if v, ok := lookup(EnvValkeyPassword); ok && v != "" {
		s.Valkey.Password = v
	}
	if n, ok := envInt(lookup, EnvValkeyDB, logger); ok {
		s.Valkey.DB = n
	}
	if v, ok := lookup(EnvValkeyTLSEnabled); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid value, using default", slog.String("key", EnvValkeyTLSEnabled), slog.String("value", v))
		} else {
			s.Valkey.TLSEnabled = b
		}
	}
	if v, ok := lookup(EnvValkeyKeyPrefix); ok && v != "" {
		s.Valkey.KeyPrefix = v
	}
}

func envInt(lookup func(string) (string, bool), key string, logger *slog.Logger) (int, bool) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn("invalid value, using default", slog.String("key", key), slog.String("value", v))
		return 0, false
	}
	return n, true
}

func positiveDuration(key string, n int, unit, def time.Duration, logger *slog.Logger) time.Duration {
	if n <= 0 {
		logger.Warn("non-positive value, using default", slog.String("key", key), slog.Int("value", n), slog.Duration("default", def))
		return def
	}
	return time.Duration(n) * unit
}

// ErrNoConfigFile is returned by FindConfigFile when no file exists.
var ErrNoConfigFile = errors.New("no litcal.config.yaml or litcal.config.yml found")

// FindConfigFile returns the config file Load would pick up in dir.
func FindConfigFile(dir string) (string, error) {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNoConfigFile
}
