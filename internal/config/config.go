package config

import (
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// URL, when set, takes precedence over the individual components.
type DatabaseConfig struct {
	URL                string
	ApplicationName    string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config holds settings for the AWS SDK backed store. Endpoint is optional
// and lets the same backend talk to any S3-compatible service.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// Storage drivers.
const (
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// StorageConfig selects and configures the blob backend.
type StorageConfig struct {
	Driver string
	// PublicURL is the base the stored file URL is built from, e.g.
	// "http://localhost:9000/acadrive-files". Empty means derive it from the backend.
	PublicURL string
	MinIO     MinIOConfig
	S3        S3Config
}

// Upload defaults, applied wherever an UploadConfig is consumed.
const (
	DefaultUploadMaxBytes int64 = 10 << 20
	// multipart framing on top of the file itself
	uploadBodyOverhead = 1 << 20
)

// DefaultUploadTypes is the content type allow-list used when none is configured.
var DefaultUploadTypes = []string{"application/pdf"}

// UploadConfig bounds what the catalog accepts.
type UploadConfig struct {
	MaxBytes            int64
	AllowedContentTypes []string
}

// WithDefaults fills a non-positive MaxBytes and an empty allow-list.
func (u UploadConfig) WithDefaults() UploadConfig {
	if u.MaxBytes <= 0 {
		u.MaxBytes = DefaultUploadMaxBytes
	}
	if len(u.AllowedContentTypes) == 0 {
		u.AllowedContentTypes = append([]string(nil), DefaultUploadTypes...)
	}
	return u
}

// BodyLimit is the largest HTTP request body an upload of MaxBytes needs.
func (u UploadConfig) BodyLimit() int {
	return int(u.WithDefaults().MaxBytes) + uploadBodyOverhead
}

// LogConfig controls the slog handler and error reporting.
type LogConfig struct {
	Env       string
	SentryDSN string
	Timezone  string
}

// IsDev reports whether human readable logs are wanted.
func (l LogConfig) IsDev() bool {
	return l.Env == "development" || l.Env == "dev"
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string
	Port           string
	Database       DatabaseConfig
	Storage        StorageConfig
	Upload         UploadConfig
	LocalStatePath string
	Log            LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "acadrive"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(getEnv("STORAGE_DRIVER", DriverMinIO)),
			PublicURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", ""), "/"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "acadrive-files"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:          getEnv("S3_REGION", "us-east-1"),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				Bucket:          getEnv("S3_BUCKET", "acadrive-files"),
				UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			},
		},
		Upload: UploadConfig{
			MaxBytes:            getEnvInt64("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes),
			AllowedContentTypes: getEnvList("UPLOAD_ALLOWED_TYPES", nil),
		}.WithDefaults(),
		LocalStatePath: getEnv("LOCAL_STATE_PATH", defaultStatePath()),
		Log: LogConfig{
			Env:       getEnv("APP_ENV", "production"),
			SentryDSN: getEnv("SENTRY_DSN", ""),
			Timezone:  getEnv("LOG_TIMEZONE", "UTC"),
		},
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "acadrive.db"
	}
	return dir + string(os.PathSeparator) + "acadrive" + string(os.PathSeparator) + "state.db"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil && i > 0 {
			return i
		}
	}
	return def
}

// getEnvList reads a comma separated list, dropping empty items.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
