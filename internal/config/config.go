// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server, logging,
// persistence, object storage, portal automation and observability settings.
//
// Portal credentials live separately in a SettingsStore (see settings.go) so
// they can be replaced at runtime through the admin API.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StorageConfig selects and configures the remote object store.
type StorageConfig struct {
	Backend string // drive|minio

	// Google Drive
	DriveFolderID   string // parent folder; empty uploads to the drive root
	CredentialsFile string // OAuth client secrets (credentials.json)
	TokenFile       string // cached user token (token.json)

	// MinIO / S3
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	MinioPublicBaseURL string // optional; presigned links are used when empty
}

// RPAConfig tunes the submission orchestrator and the browser driver.
type RPAConfig struct {
	MaxAttempts           int           // attempts per submission (>= 1)
	BaseDelay             time.Duration // backoff base; delay = base * 2^attempt
	MaxConcurrentSessions int           // 0 = unbounded
	StepTimeout           time.Duration // driver step timeout (report download)
	BrowserBin            string        // optional Chromium binary
	ArtifactDir           string        // local scratch for artifacts and diagnostics
	ReplayTTL             time.Duration // how long completed submissions are replayable
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration // submissions can take minutes; keep generous
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// Auth
	APIKey string // X-API-Key; empty disables the guard

	// Persistence
	DBDriver       string // sqlite|postgres
	DBPath         string // SQLite path
	DatabaseURL    string // Postgres DSN
	CounterBackend string // sql|redis
	RedisURL       string

	// Portal settings file (dotenv format)
	SettingsFile string

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	Storage StorageConfig
	RPA     RPAConfig
	OTEL    OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadEnvFile seeds the process environment from a dotenv file. Variables
// already present in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 15*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		APIKey: getenv("API_KEY", ""),

		DBDriver:       strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:         getenv("DB_PATH", "reg_data.db"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		CounterBackend: strings.ToLower(getenv("COUNTER_BACKEND", "sql")),
		RedisURL:       getenv("REDIS_URL", "redis://localhost:6379/0"),

		SettingsFile: getenv("SETTINGS_FILE", "portal.env"),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		Storage: StorageConfig{
			Backend:            strings.ToLower(getenv("STORAGE_BACKEND", "drive")),
			DriveFolderID:      getenv("DRIVE_FOLDER_ID", ""),
			CredentialsFile:    getenv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
			TokenFile:          getenv("GOOGLE_TOKEN_FILE", "token.json"),
			MinioEndpoint:      getenv("MINIO_ENDPOINT", ""),
			MinioAccessKey:     getenv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey:     getenv("MINIO_SECRET_KEY", ""),
			MinioBucket:        getenv("MINIO_BUCKET", "portal-artifacts"),
			MinioUseSSL:        getbool("MINIO_USE_SSL", false),
			MinioPublicBaseURL: getenv("MINIO_PUBLIC_BASE_URL", ""),
		},

		RPA: RPAConfig{
			MaxAttempts:           getint("RPA_MAX_ATTEMPTS", 3),
			BaseDelay:             getdur("RPA_BASE_DELAY", 5*time.Second),
			MaxConcurrentSessions: getint("RPA_MAX_CONCURRENT_SESSIONS", 0),
			StepTimeout:           getdur("RPA_STEP_TIMEOUT", 2*time.Minute),
			BrowserBin:            getenv("BROWSER_BIN", ""),
			ArtifactDir:           getenv("ARTIFACT_DIR", os.TempDir()),
			ReplayTTL:             getdur("SUBMISSION_REPLAY_TTL", 24*time.Hour),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "portal-rpa"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.CounterBackend {
	case "sql":
	case "redis":
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return errors.New("REDIS_URL is required when COUNTER_BACKEND=redis")
		}
	default:
		return errors.New("COUNTER_BACKEND must be one of: sql, redis")
	}
	switch cfg.Storage.Backend {
	case "drive":
		if strings.TrimSpace(cfg.Storage.CredentialsFile) == "" || strings.TrimSpace(cfg.Storage.TokenFile) == "" {
			return errors.New("GOOGLE_CREDENTIALS_FILE and GOOGLE_TOKEN_FILE must not be empty")
		}
	case "minio":
		if cfg.Storage.MinioEndpoint == "" || cfg.Storage.MinioAccessKey == "" || cfg.Storage.MinioSecretKey == "" {
			return errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when STORAGE_BACKEND=minio")
		}
		if strings.TrimSpace(cfg.Storage.MinioBucket) == "" {
			return errors.New("MINIO_BUCKET must not be empty")
		}
	default:
		return errors.New("STORAGE_BACKEND must be one of: drive, minio")
	}
	if strings.TrimSpace(cfg.SettingsFile) == "" {
		return errors.New("SETTINGS_FILE must not be empty")
	}
	if cfg.RPA.MaxAttempts < 1 {
		return errors.New("RPA_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.RPA.BaseDelay < 0 {
		return errors.New("RPA_BASE_DELAY must be >= 0")
	}
	if cfg.RPA.MaxConcurrentSessions < 0 {
		return errors.New("RPA_MAX_CONCURRENT_SESSIONS must be >= 0")
	}
	if cfg.RPA.StepTimeout <= 0 {
		return errors.New("RPA_STEP_TIMEOUT must be > 0")
	}
	if cfg.RPA.ReplayTTL <= 0 {
		return errors.New("SUBMISSION_REPLAY_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if b, ok := parseBool(v); ok {
			return b
		}
	}
	return def
}

// parseBool accepts the usual spellings plus Python-style "True"/"False",
// optionally wrapped in quotes.
func parseBool(v string) (value, ok bool) {
	v = strings.Trim(strings.TrimSpace(v), `"'`)
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
