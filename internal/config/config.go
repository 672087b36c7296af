// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lipsync/internal/pkg/errors"
)

const (
	RecordStoreMongo    = "mongo"
	RecordStorePostgres = "postgres"

	MediaHostCloudinary = "cloudinary"
	MediaHostS3         = "s3"
	MediaHostGDrive     = "gdrive"
	MediaHostLocalFS    = "localfs"
)

type Config struct {
	HTTPPort         string
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
	AllowedOrigins   []string

	LogLevel  string
	LogFormat string
	LogSource bool

	RecordStore   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	RedisAddr       string
	HistoryCacheTTL time.Duration

	MediaHost  string
	Cloudinary CloudinaryConfig
	S3         S3Config
	GDrive     GDriveConfig
	LocalFS    LocalFSConfig

	Fal FalConfig

	UploadcarePublicKey string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

type GDriveConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

type LocalFSConfig struct {
	Root          string
	PublicBaseURL string
}

type FalConfig struct {
	Key          string
	Model        string
	QueueURL     string
	WebhookURL   string
	PollInterval time.Duration
}

// Load reads .env.local and .env when present, then the process environment.
// Variables already set in the environment win over file values.
func Load() *Config {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching files.
func FromEnv() *Config {
	port := env("HTTP_PORT", "")
	if port == "" {
		port = env("PORT", "8080")
	}

	return &Config{
		HTTPPort:         port,
		HTTPWriteTimeout: durationEnv("HTTP_WRITE_TIMEOUT", 15*time.Minute),
		ShutdownTimeout:  durationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		AllowedOrigins: csvEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:8080",
		}),

		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "json"),
		LogSource: boolEnv("LOG_SOURCE", false),

		RecordStore:   strings.ToLower(env("RECORD_STORE", RecordStoreMongo)),
		MongoURI:      env("MONGO_URI", ""),
		MongoDatabase: env("MONGO_DATABASE", "lipsync"),
		DatabaseURL:   env("DATABASE_URL", ""),

		RedisAddr:       env("REDIS_ADDR", ""),
		HistoryCacheTTL: durationEnv("HISTORY_CACHE_TTL", 30*time.Second),

		MediaHost: strings.ToLower(env("MEDIA_HOST", MediaHostCloudinary)),
		Cloudinary: CloudinaryConfig{
			CloudName: env("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    env("CLOUDINARY_API_KEY", ""),
			APISecret: env("CLOUDINARY_API_SECRET", ""),
		},
		S3: S3Config{
			Bucket:          env("S3_BUCKET", ""),
			Region:          env("S3_REGION", "auto"),
			Endpoint:        env("S3_ENDPOINT", ""),
			AccessKeyID:     env("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env("S3_SECRET_ACCESS_KEY", ""),
			PublicURL:       env("S3_PUBLIC_URL", ""),
		},
		GDrive: GDriveConfig{
			ClientID:     env("GDRIVE_CLIENT_ID", ""),
			ClientSecret: env("GDRIVE_CLIENT_SECRET", ""),
			RefreshToken: env("GDRIVE_REFRESH_TOKEN", ""),
			FolderID:     env("GDRIVE_FOLDER_ID", ""),
		},
		LocalFS: LocalFSConfig{
			Root:          env("MEDIA_LOCAL_ROOT", ""),
			PublicBaseURL: strings.TrimRight(env("PUBLIC_BASE_URL", ""), "/"),
		},

		Fal: FalConfig{
			Key:          env("FAL_KEY", ""),
			Model:        env("FAL_MODEL", "fal-ai/sync-lipsync"),
			QueueURL:     strings.TrimRight(env("FAL_QUEUE_URL", "https://queue.fal.run"), "/"),
			WebhookURL:   env("FAL_WEBHOOK_URL", ""),
			PollInterval: durationEnv("FAL_POLL_INTERVAL", time.Second),
		},

		UploadcarePublicKey: firstNonEmpty(
			env("UPLOADCARE_PUBLIC_KEY", ""),
			env("NEXT_PUBLIC_UPLOADCARE_PUBLIC_KEY", ""),
		),
	}
}

// Validate reports every required key missing for the selected backends.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	var errs []error

	switch c.RecordStore {
	case RecordStoreMongo:
		require("MONGO_URI", c.MongoURI)
	case RecordStorePostgres:
		require("DATABASE_URL", c.DatabaseURL)
	default:
		errs = append(errs, errors.Newf(errors.CodeConfig, "unknown RECORD_STORE %q", c.RecordStore))
	}

	switch c.MediaHost {
	case MediaHostCloudinary:
		require("CLOUDINARY_CLOUD_NAME", c.Cloudinary.CloudName)
		require("CLOUDINARY_API_KEY", c.Cloudinary.APIKey)
		require("CLOUDINARY_API_SECRET", c.Cloudinary.APISecret)
	case MediaHostS3:
		require("S3_BUCKET", c.S3.Bucket)
		require("S3_ACCESS_KEY_ID", c.S3.AccessKeyID)
		require("S3_SECRET_ACCESS_KEY", c.S3.SecretAccessKey)
		require("S3_PUBLIC_URL", c.S3.PublicURL)
	case MediaHostGDrive:
		require("GDRIVE_CLIENT_ID", c.GDrive.ClientID)
		require("GDRIVE_CLIENT_SECRET", c.GDrive.ClientSecret)
		require("GDRIVE_REFRESH_TOKEN", c.GDrive.RefreshToken)
	case MediaHostLocalFS:
		require("MEDIA_LOCAL_ROOT", c.LocalFS.Root)
		require("PUBLIC_BASE_URL", c.LocalFS.PublicBaseURL)
	default:
		errs = append(errs, errors.Newf(errors.CodeConfig, "unknown MEDIA_HOST %q", c.MediaHost))
	}

	require("FAL_KEY", c.Fal.Key)
	require("UPLOADCARE_PUBLIC_KEY", c.UploadcarePublicKey)

	if len(missing) > 0 {
		errs = append(errs, errors.New(errors.CodeConfig, "missing required environment variables").
			WithField("keys", strings.Join(missing, ",")))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Missing returns the keys Validate found absent, for logging.
func Missing(err error) []string {
	fields := errors.GetFields(err)
	keys, _ := fields["keys"].(string)
	if keys == "" {
		return nil
	}
	return strings.Split(keys, ",")
}

func (c *Config) String() string {
	return fmt.Sprintf("store=%s media_host=%s model=%s redis=%t", c.RecordStore, c.MediaHost, c.Fal.Model, c.RedisAddr != "")
}

func env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func boolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationEnv(k string, def time.Duration) time.Duration {
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

func csvEnv(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
