package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix               = "CARITAU_"
	defaultEnvFile          = ".env"
	defaultAddr             = ":8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultStoreDriver      = DriverSupabase
	defaultSupabaseTimeout  = 10 * time.Second
	defaultSQLitePath       = "caritauyuk.db"
	defaultAdminSessionTTL  = 8 * time.Hour
	defaultReconcileSpec    = "@hourly"
	defaultSiteName         = "Cari Tau Yuk"
	defaultThumbnail        = "https://images.unsplash.com/photo-1517694712202-14dd9538aa97?w=500"
	defaultEnvironment      = "local"
	defaultLogLevel         = "info"
	defaultRelatedLimit     = 5
	minProductionSessionKey = 32
)

// Store drivers.
const (
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Store       StoreConfig
	Supabase    SupabaseConfig
	SQLite      SQLiteConfig
	Session     SessionConfig
	Admin       AdminConfig
	Jobs        JobsConfig
	Site        SiteConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the content backend.
type StoreConfig struct {
	Driver string
}

// SupabaseConfig holds the remote store endpoint and keys.
type SupabaseConfig struct {
	URL        string
	AnonKey    string
	ServiceKey string
	JWTSecret  string
	Timeout    time.Duration
}

// SQLiteConfig holds the local database location.
type SQLiteConfig struct {
	Path string
}

// SessionConfig stores cookie signing material.
type SessionConfig struct {
	HashKey  string
	BlockKey string
	Secure   bool
}

// AdminConfig holds local admin credentials (sqlite driver) and session lifetime.
type AdminConfig struct {
	Email      string
	Password   string
	SessionTTL time.Duration
}

// JobsConfig controls background jobs. An empty spec disables the job.
type JobsConfig struct {
	ReconcileSpec string
}

// SiteConfig carries presentation settings.
type SiteConfig struct {
	Name             string
	DefaultThumbnail string
	BasePath         string
	RelatedLimit     int
}

// Production reports whether the environment is production.
func (c Config) Production() bool {
	switch strings.ToLower(c.Environment) {
	case "prod", "production":
		return true
	}
	return false
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	configFile   string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithConfigFile sets the YAML file layered beneath the environment. It overrides CARITAU_CONFIG_FILE.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration from defaults, an optional YAML file,
// .env overrides, environment variables and explicit maps, in increasing precedence.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	envLookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	configFile := options.configFile
	if configFile == "" {
		configFile, _ = envLookup(envPrefix + "CONFIG_FILE")
	}
	fileValues, err := loadConfigFile(configFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := envLookup(key); ok {
			return value, true
		}
		value, ok := fileValues[key]
		return value, ok
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, envPrefix+"ENV", defaultEnvironment)),
		LogLevel:    stringWithDefault(lookup, envPrefix+"LOG_LEVEL", stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		Server: ServerConfig{
			Addr:         stringWithDefault(lookup, envPrefix+"SERVER_ADDR", defaultAddr),
			ReadTimeout:  durationWithDefault(lookup, envPrefix+"SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, envPrefix+"SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, envPrefix+"SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, envPrefix+"STORE_DRIVER", defaultStoreDriver)),
		},
		Supabase: SupabaseConfig{
			URL:        strings.TrimRight(stringWithDefault(lookup, envPrefix+"SUPABASE_URL", ""), "/"),
			AnonKey:    stringWithDefault(lookup, envPrefix+"SUPABASE_ANON_KEY", ""),
			ServiceKey: stringWithDefault(lookup, envPrefix+"SUPABASE_SERVICE_KEY", ""),
			JWTSecret:  stringWithDefault(lookup, envPrefix+"SUPABASE_JWT_SECRET", ""),
			Timeout:    durationWithDefault(lookup, envPrefix+"SUPABASE_TIMEOUT", defaultSupabaseTimeout),
		},
		SQLite: SQLiteConfig{
			Path: stringWithDefault(lookup, envPrefix+"SQLITE_PATH", defaultSQLitePath),
		},
		Session: SessionConfig{
			HashKey:  stringWithDefault(lookup, envPrefix+"SESSION_HASH_KEY", ""),
			BlockKey: stringWithDefault(lookup, envPrefix+"SESSION_BLOCK_KEY", ""),
		},
		Admin: AdminConfig{
			Email:      strings.TrimSpace(stringWithDefault(lookup, envPrefix+"ADMIN_EMAIL", "")),
			Password:   stringWithDefault(lookup, envPrefix+"ADMIN_PASSWORD", ""),
			SessionTTL: durationWithDefault(lookup, envPrefix+"ADMIN_SESSION_TTL", defaultAdminSessionTTL),
		},
		Site: SiteConfig{
			Name:             stringWithDefault(lookup, envPrefix+"SITE_NAME", defaultSiteName),
			DefaultThumbnail: stringWithDefault(lookup, envPrefix+"SITE_DEFAULT_THUMBNAIL", defaultThumbnail),
			BasePath:         normalizeBasePath(stringWithDefault(lookup, envPrefix+"SITE_BASE_PATH", "")),
			RelatedLimit:     intWithDefault(lookup, envPrefix+"SITE_RELATED_LIMIT", defaultRelatedLimit),
		},
	}

	// An explicitly empty reconcile spec disables the job.
	if spec, ok := lookup(envPrefix + "JOBS_RECONCILE_SPEC"); ok {
		cfg.Jobs.ReconcileSpec = strings.TrimSpace(spec)
	} else {
		cfg.Jobs.ReconcileSpec = defaultReconcileSpec
	}
	cfg.Session.Secure = boolWithDefault(lookup, envPrefix+"SESSION_SECURE", cfg.Production())

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		missing = append(missing, "Server.Addr")
	}
	switch cfg.Store.Driver {
	case DriverSupabase:
		if cfg.Supabase.URL == "" {
			missing = append(missing, "Supabase.URL")
		}
		if cfg.Supabase.AnonKey == "" {
			missing = append(missing, "Supabase.AnonKey")
		}
		if cfg.Supabase.Timeout <= 0 {
			missing = append(missing, "Supabase.Timeout")
		}
	case DriverSQLite:
		if strings.TrimSpace(cfg.SQLite.Path) == "" {
			missing = append(missing, "SQLite.Path")
		}
	default:
		missing = append(missing, "Store.Driver")
	}
	if cfg.Site.RelatedLimit <= 0 {
		missing = append(missing, "Site.RelatedLimit")
	}
	if cfg.Admin.SessionTTL <= 0 {
		missing = append(missing, "Admin.SessionTTL")
	}
	if cfg.Production() && len(cfg.Session.HashKey) < minProductionSessionKey {
		missing = append(missing, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		missing = append(missing, "Session.BlockKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

// loadConfigFile flattens a YAML document into env-style keys: server.addr becomes CARITAU_SERVER_ADDR.
func loadConfigFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	values := make(map[string]string)
	for key, raw := range k.All() {
		name := envPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		switch v := raw.(type) {
		case nil:
			values[name] = ""
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[name] = strings.Join(parts, ",")
		default:
			values[name] = fmt.Sprint(v)
		}
	}
	return values, nil
}

func normalizeBasePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
