package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Runner   RunnerConfig
	Pipeline PipelineConfig
	S3       S3Config
	DB       DBConfig
	Log      LogConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// RunnerConfig holds settings for the colocated GPU model runner.
type RunnerConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	ModelName   string        `mapstructure:"model_name"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	Preload     bool          `mapstructure:"preload"`
}

// PipelineConfig holds inference pipeline settings.
type PipelineConfig struct {
	// InferenceTimeout bounds how long a caller waits for a result,
	// queueing included. It is server-wide and not client-configurable.
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`
	MaxBacklog       int           `mapstructure:"max_backlog"`
	DefaultPreset    string        `mapstructure:"default_preset"`
	DefaultTask      string        `mapstructure:"default_task"`
	MaxImageSizeMB   int64         `mapstructure:"max_image_size_mb"`
	FetchURLTimeout  time.Duration `mapstructure:"fetch_url_timeout"`
	AllowImageURLs   bool          `mapstructure:"allow_image_urls"`
}

// S3Config holds the optional annotated-image artifact store settings.
// An empty bucket disables the store and annotated images are returned
// inline instead.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// Enabled reports whether the artifact store is configured.
func (s *S3Config) Enabled() bool { return s.Bucket != "" }

// DBConfig holds the optional PostgreSQL audit log settings. An empty
// host disables the audit log.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// Enabled reports whether the audit log database is configured.
func (d *DBConfig) Enabled() bool { return d.Host != "" }

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the OCRGATE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OCRGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "330s")
	v.SetDefault("server.environment", "development")

	// Runner defaults
	v.SetDefault("runner.endpoint", "http://127.0.0.1:9000")
	v.SetDefault("runner.model_name", "deepseek-ocr")
	v.SetDefault("runner.load_timeout", "10m")
	v.SetDefault("runner.preload", true)

	// Pipeline defaults
	v.SetDefault("pipeline.inference_timeout", "300s")
	v.SetDefault("pipeline.max_backlog", 32)
	v.SetDefault("pipeline.default_preset", "Gundam")
	v.SetDefault("pipeline.default_task", "free_ocr")
	v.SetDefault("pipeline.max_image_size_mb", 20)
	v.SetDefault("pipeline.fetch_url_timeout", "15s")
	v.SetDefault("pipeline.allow_image_urls", true)

	// S3 defaults (disabled unless a bucket is set)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.key_prefix", "annotated")
	v.SetDefault("s3.presign_expiry", 3600)

	// DB defaults (disabled unless a host is set)
	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ocrgate")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "ocrgate_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (permissive for the bundled browser UI)
	v.SetDefault("cors.allowed_origins", "*")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "OCRGATE_SERVER_PORT",
		"server.read_timeout":        "OCRGATE_SERVER_READ_TIMEOUT",
		"server.write_timeout":       "OCRGATE_SERVER_WRITE_TIMEOUT",
		"server.environment":         "OCRGATE_SERVER_ENVIRONMENT",
		"runner.endpoint":            "OCRGATE_RUNNER_ENDPOINT",
		"runner.model_name":          "OCRGATE_RUNNER_MODEL_NAME",
		"runner.load_timeout":        "OCRGATE_RUNNER_LOAD_TIMEOUT",
		"runner.preload":             "OCRGATE_RUNNER_PRELOAD",
		"pipeline.inference_timeout": "OCRGATE_PIPELINE_INFERENCE_TIMEOUT",
		"pipeline.max_backlog":       "OCRGATE_PIPELINE_MAX_BACKLOG",
		"pipeline.default_preset":    "OCRGATE_PIPELINE_DEFAULT_PRESET",
		"pipeline.default_task":      "OCRGATE_PIPELINE_DEFAULT_TASK",
		"pipeline.max_image_size_mb": "OCRGATE_PIPELINE_MAX_IMAGE_SIZE_MB",
		"pipeline.fetch_url_timeout": "OCRGATE_PIPELINE_FETCH_URL_TIMEOUT",
		"pipeline.allow_image_urls":  "OCRGATE_PIPELINE_ALLOW_IMAGE_URLS",
		"s3.region":                  "OCRGATE_S3_REGION",
		"s3.bucket":                  "OCRGATE_S3_BUCKET",
		"s3.endpoint":                "OCRGATE_S3_ENDPOINT",
		"s3.access_key":              "OCRGATE_S3_ACCESS_KEY",
		"s3.secret_key":              "OCRGATE_S3_SECRET_KEY",
		"s3.key_prefix":              "OCRGATE_S3_KEY_PREFIX",
		"s3.presign_expiry":          "OCRGATE_S3_PRESIGN_EXPIRY",
		"db.host":                    "OCRGATE_DB_HOST",
		"db.port":                    "OCRGATE_DB_PORT",
		"db.user":                    "OCRGATE_DB_USER",
		"db.password":                "OCRGATE_DB_PASSWORD",
		"db.name":                    "OCRGATE_DB_NAME",
		"db.sslmode":                 "OCRGATE_DB_SSLMODE",
		"db.max_open":                "OCRGATE_DB_MAX_OPEN",
		"db.max_idle":                "OCRGATE_DB_MAX_IDLE",
		"log.level":                  "OCRGATE_LOG_LEVEL",
		"log.format":                 "OCRGATE_LOG_FORMAT",
		"cors.allowed_origins":       "OCRGATE_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if OCRGATE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("OCRGATE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Runner = RunnerConfig{
		Endpoint:    v.GetString("runner.endpoint"),
		ModelName:   v.GetString("runner.model_name"),
		LoadTimeout: v.GetDuration("runner.load_timeout"),
		Preload:     v.GetBool("runner.preload"),
	}
	cfg.Pipeline = PipelineConfig{
		InferenceTimeout: v.GetDuration("pipeline.inference_timeout"),
		MaxBacklog:       v.GetInt("pipeline.max_backlog"),
		DefaultPreset:    v.GetString("pipeline.default_preset"),
		DefaultTask:      v.GetString("pipeline.default_task"),
		MaxImageSizeMB:   v.GetInt64("pipeline.max_image_size_mb"),
		FetchURLTimeout:  v.GetDuration("pipeline.fetch_url_timeout"),
		AllowImageURLs:   v.GetBool("pipeline.allow_image_urls"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		KeyPrefix:     v.GetString("s3.key_prefix"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
