package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage backends accepted in STORAGE_BACKEND.
const (
	BackendMemory     = "memory"
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
	BackendGCS        = "gcs"
	BackendMongoDB    = "mongodb"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port           string `toml:"port"`
	StorageBackend string `toml:"storage_backend"`
	DataDir        string `toml:"data_dir"`
	// PublicBaseURL roots thumbnail URLs for backends without native public
	// URLs; it should point at this server's /blobs route.
	PublicBaseURL string `toml:"public_base_url"`
	ImagePrefix   string `toml:"image_prefix"`
	LedgerPrefix  string `toml:"ledger_prefix"`

	MongoURI string `toml:"mongodb_uri"`
	DBName   string `toml:"mongodb_db"`

	S3Bucket       string   `toml:"s3_bucket"`
	S3Region       string   `toml:"s3_region"`
	S3AccessKeyID  string   `toml:"s3_access_key_id"`
	S3SecretKey    string   `toml:"s3_secret_access_key"`
	S3Endpoint     string   `toml:"s3_endpoint"`
	S3UsePathStyle bool     `toml:"s3_use_path_style"`
	PresignExpiry  Duration `toml:"presign_expiry"`

	GCSBucket          string `toml:"gcs_bucket"`
	GCSCredentialsFile string `toml:"gcs_credentials_file"`

	JWTSecret        string   `toml:"jwt_secret"`
	UserCacheTTL     Duration `toml:"user_cache_ttl"`
	MaxWriteAttempts int      `toml:"max_write_attempts"`

	CORSOrigins []string `toml:"cors_origins"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the configuration used before any file or environment
// overrides are applied.
func Default() Config {
	return Config{
		Port:             "8080",
		StorageBackend:   BackendFilesystem,
		DataDir:          "./storage",
		PublicBaseURL:    "http://localhost:8080/blobs",
		ImagePrefix:      "images/",
		LedgerPrefix:     "data/pages/",
		DBName:           "transcribe",
		S3Region:         "us-east-1",
		PresignExpiry:    Duration(time.Hour),
		JWTSecret:        defaultJWTSecret,
		UserCacheTTL:     Duration(5 * time.Minute),
		MaxWriteAttempts: 5,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load builds the configuration from defaults, the TOML file named by
// CONFIG_FILE (if any) and then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.ImagePrefix = getEnv("IMAGE_PREFIX", c.ImagePrefix)
	c.LedgerPrefix = getEnv("LEDGER_PREFIX", c.LedgerPrefix)
	c.MongoURI = getEnv("MONGODB_URI", c.MongoURI)
	c.DBName = getEnv("MONGODB_DB", c.DBName)
	c.S3Bucket = getEnv("AWS_S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("AWS_REGION", c.S3Region)
	c.S3AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", c.S3AccessKeyID)
	c.S3SecretKey = getEnv("AWS_SECRET_ACCESS_KEY", c.S3SecretKey)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.GCSBucket = getEnv("GCS_BUCKET", c.GCSBucket)
	c.GCSCredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.GCSCredentialsFile)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("S3_USE_PATH_STYLE: %w", err)
		}
		c.S3UsePathStyle = b
	}
	if v := os.Getenv("MAX_WRITE_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_WRITE_ATTEMPTS: %w", err)
		}
		c.MaxWriteAttempts = n
	}
	for key, dst := range map[string]*Duration{
		"USER_CACHE_TTL": &c.UserCacheTTL,
		"PRESIGN_EXPIRY": &c.PresignExpiry,
	} {
		if v := os.Getenv(key); v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.ImagePrefix = withTrailingSlash(c.ImagePrefix)
	c.LedgerPrefix = withTrailingSlash(c.LedgerPrefix)
}

// Validate checks the fields the selected backend depends on.
func (c *Config) Validate() error {
	var problems []string
	switch c.StorageBackend {
	case BackendMemory:
	case BackendFilesystem:
		if c.DataDir == "" {
			problems = append(problems, "DATA_DIR is required for the filesystem backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			problems = append(problems, "AWS_S3_BUCKET is required for the s3 backend")
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			problems = append(problems, "GCS_BUCKET is required for the gcs backend")
		}
	case BackendMongoDB:
		if c.MongoURI == "" {
			problems = append(problems, "MONGODB_URI is required for the mongodb backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.MaxWriteAttempts < 1 {
		problems = append(problems, "MAX_WRITE_ATTEMPTS must be at least 1")
	}
	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		problems = append(problems, "JWT_SECRET must be set to a strong secret")
	}
	if c.ImagePrefix == c.LedgerPrefix {
		problems = append(problems, "IMAGE_PREFIX and LEDGER_PREFIX must differ")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func withTrailingSlash(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// Duration is a time.Duration written as "90s" or "5m" in files and env.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
