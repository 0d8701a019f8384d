package config

import (
	"fmt"
	"strings"
	"time"

	sharedauth "github.com/hydrosync/hydration-service/shared/auth"
	"github.com/hydrosync/hydration-service/shared/envconfig"
)

// Config encapsulates the runtime configuration for the hydration service.
type Config struct {
	Port         string    `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel     string    `env:"LOG_LEVEL" envDefault:"info"`
	GCPProjectID string    `env:"GCP_PROJECT_ID"`
	DataStore    DataStore `env:"DATASTORE" envDefault:"memory"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
	SQLite       SQLiteConfig
	Calendar     CalendarConfig
	Export       ExportConfig
	CORS         CORSConfig
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps hydration data in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores data in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
	// DataStoreSQLite stores data in a local SQLite file.
	DataStoreSQLite DataStore = "sqlite"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode      sharedauth.Mode `env:"AUTH_MODE" envDefault:"noop"`
	JWTSecret string          `env:"SUPABASE_JWT_SECRET"`
	JWKSURL   string          `env:"JWKS_URL" validate:"omitempty,url"`
	Audience  string          `env:"JWT_AUDIENCE"`
	Issuer    string          `env:"JWT_ISSUER"`
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	Database     string `env:"FIRESTORE_DATABASE" envDefault:"(default)"`
	EmulatorHost string `env:"FIRESTORE_EMULATOR_HOST"`
}

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"hydration.db"`
}

// CalendarConfig decides where day and week boundaries fall.
type CalendarConfig struct {
	Timezone    string `env:"TIMEZONE" envDefault:"UTC"`
	WeekStart   string `env:"WEEK_START" envDefault:"sunday"`
	HistoryDays int    `env:"HISTORY_DAYS" envDefault:"28" validate:"gte=7,lte=366"`

	location *time.Location
}

// Location returns the parsed TIMEZONE.
func (c CalendarConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// FirstWeekday returns the parsed WEEK_START.
func (c CalendarConfig) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// ExportConfig contains Cloud Storage settings for history exports.
type ExportConfig struct {
	Bucket string `env:"EXPORT_BUCKET"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads environment variables into Config with validation.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Parse(&cfg); err != nil {
		return Config{}, err
	}
	normalize(&cfg)

	if err := envconfig.Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DataStore = DataStore(strings.ToLower(strings.TrimSpace(string(cfg.DataStore))))
	cfg.Auth.Mode = sharedauth.Mode(strings.ToLower(strings.TrimSpace(string(cfg.Auth.Mode))))
	cfg.Calendar.WeekStart = strings.ToLower(strings.TrimSpace(cfg.Calendar.WeekStart))

	origins := cfg.CORS.AllowedOrigins[:0]
	for _, origin := range cfg.CORS.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	cfg.CORS.AllowedOrigins = origins
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", cfg.LogLevel)
	}

	switch cfg.DataStore {
	case DataStoreMemory:
		// no-op
	case DataStoreFirestore:
		if cfg.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID required when DATASTORE=firestore")
		}
	case DataStoreSQLite:
		if strings.TrimSpace(cfg.SQLite.Path) == "" {
			return fmt.Errorf("SQLITE_PATH required when DATASTORE=sqlite")
		}
	default:
		return fmt.Errorf("unsupported datastore: %s", cfg.DataStore)
	}

	switch cfg.Auth.Mode {
	case sharedauth.ModeSupabase:
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required when AUTH_MODE=supabase")
		}
	case sharedauth.ModeJWKS:
		if cfg.Auth.JWKSURL == "" {
			return fmt.Errorf("JWKS_URL is required when AUTH_MODE=jwks")
		}
	case sharedauth.ModeNoop:
		// no-op
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}

	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Calendar.Timezone, err)
	}
	cfg.Calendar.location = loc

	switch cfg.Calendar.WeekStart {
	case "sunday", "monday":
	default:
		return fmt.Errorf("WEEK_START must be sunday or monday, got %q", cfg.Calendar.WeekStart)
	}

	return nil
}
