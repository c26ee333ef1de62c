package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

// DevHMACSecret signs tokens in development when AUTH_HMAC_SECRET is unset.
// Production refuses to start with it.
const DevHMACSecret = "supersecret-dev-key"

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

type Config struct {
	Mode     Mode   `yaml:"mode"`
	HTTPAddr string `yaml:"http_addr"`
	BasePath string `yaml:"base_path"`
	// PublicURL is the externally reachable origin, used for fs blob URLs.
	PublicURL string `yaml:"public_url"`

	DBDriver string `yaml:"db_driver"` // sqlite|postgres
	DBDSN    string `yaml:"db_dsn"`

	BlobDriver          string `yaml:"blob_driver"`    // fs|gcs
	BlobBasePath        string `yaml:"blob_base_path"` // for fs
	GCSBucket           string `yaml:"gcs_bucket"`
	StorageEmulatorHost string `yaml:"storage_emulator_host"`
	TmpDir              string `yaml:"tmp_dir"`

	AuthHMACSecret string        `yaml:"auth_hmac_secret"`
	AuthTokenTTL   time.Duration `yaml:"auth_token_ttl"`

	GeminiAPIKey      string        `yaml:"gemini_api_key"`
	GeminiBaseURL     string        `yaml:"gemini_base_url"`
	GeminiModel       string        `yaml:"gemini_model"`
	GeminiVisionModel string        `yaml:"gemini_vision_model"`
	AITimeout         time.Duration `yaml:"ai_timeout"`

	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	CORSOrigins    []string `yaml:"cors_origins"`

	LogRedaction bool `yaml:"log_redaction"`
}

// Defaults returns the configuration used when neither a file nor env sets a key.
func Defaults() Config {
	return Config{
		Mode:              ModeDevelopment,
		HTTPAddr:          ":5000",
		BasePath:          "/api",
		DBDriver:          "sqlite",
		BlobDriver:        "fs",
		BlobBasePath:      "./data",
		TmpDir:            os.TempDir(),
		AuthHMACSecret:    DevHMACSecret,
		AuthTokenTTL:      8 * time.Hour,
		GeminiBaseURL:     "https://generativelanguage.googleapis.com",
		GeminiModel:       "gemini-1.5-flash",
		GeminiVisionModel: "gemini-1.5-flash",
		AITimeout:         2 * time.Minute,
		MaxUploadBytes:    10 << 20,
		CORSOrigins:       []string{"http://localhost:5173"},
		LogRedaction:      true,
	}
}

// Load reads .env (if any), then CONFIG_FILE (YAML, if set), then the environment.
// Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if cfg.Mode != ModeDevelopment && cfg.Mode != ModeProduction {
		return Config{}, fmt.Errorf("config: unsupported MODE %q", cfg.Mode)
	}
	if cfg.Mode == ModeProduction && (cfg.AuthHMACSecret == "" || cfg.AuthHMACSecret == DevHMACSecret) {
		return Config{}, fmt.Errorf("config: AUTH_HMAC_SECRET must be set in production")
	}
	if cfg.BlobDriver == "gcs" && cfg.GCSBucket == "" {
		return Config{}, fmt.Errorf("config: GCS_BUCKET is required when BLOB_DRIVER=gcs")
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Mode = Mode(envOr("MODE", string(cfg.Mode)))
	// PORT is honoured for hosting platforms that only inject a port number.
	if p := os.Getenv("PORT"); p != "" {
		cfg.HTTPAddr = ":" + p
	}
	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.BasePath = strings.TrimSuffix(envOr("BASE_PATH", cfg.BasePath), "/")
	cfg.PublicURL = strings.TrimSuffix(envOr("PUBLIC_URL", cfg.PublicURL), "/")

	cfg.DBDriver = envOr("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = envOr("DB_DSN", cfg.DBDSN)

	cfg.BlobDriver = envOr("BLOB_DRIVER", cfg.BlobDriver)
	cfg.BlobBasePath = envOr("BLOB_BASE_PATH", cfg.BlobBasePath)
	cfg.GCSBucket = envOr("GCS_BUCKET", cfg.GCSBucket)
	cfg.StorageEmulatorHost = envOr("STORAGE_EMULATOR_HOST", cfg.StorageEmulatorHost)
	cfg.TmpDir = envOr("TMP_DIR", cfg.TmpDir)

	cfg.AuthHMACSecret = envOr("AUTH_HMAC_SECRET", cfg.AuthHMACSecret)
	cfg.AuthTokenTTL = envDuration("AUTH_TOKEN_TTL", cfg.AuthTokenTTL)

	cfg.GeminiAPIKey = envOr("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiBaseURL = strings.TrimSuffix(envOr("GEMINI_BASE_URL", cfg.GeminiBaseURL), "/")
	cfg.GeminiModel = envOr("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiVisionModel = envOr("GEMINI_VISION_MODEL", cfg.GeminiVisionModel)
	cfg.AITimeout = envDuration("AI_TIMEOUT", cfg.AITimeout)

	cfg.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = csvOr("CORS_ORIGINS", v)
	} else if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.CORSOrigins = []string{v}
	}
	cfg.LogRedaction = envBool("LOG_REDACTION_ENABLED", cfg.LogRedaction)
}

// IsDevelopment reports whether upstream error causes may be exposed to clients.
func (c Config) IsDevelopment() bool { return c.Mode == ModeDevelopment }

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
