package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Model   ModelConfig
	Catalog CatalogConfig
	Store   StoreConfig
	Upload  UploadConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type ModelConfig struct {
	BundlePath string
	IDColumn   string
}

type CatalogConfig struct {
	Driver     string // postgres | sqlite
	Postgres   PostgresConfig
	SQLitePath string
}

type PostgresConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	ConnectTimeout time.Duration
}

// DSN renders a libpq URL understood by pgx.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type StoreConfig struct {
	Backend string // s3 | gcs | redis | fs
	S3      S3Config
	GCS     GCSConfig
	Redis   RedisConfig
	FSRoot  string
}

type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type UploadConfig struct {
	MaxBytes int64
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("MODEL_BUNDLE_PATH", "models/model_pipeline.json")
	v.SetDefault("MODEL_ID_COLUMN", "ID")

	v.SetDefault("CATALOG_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "blendpredict")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("SQLITE_PATH", "data/catalog.db")

	v.SetDefault("STORE_BACKEND", "fs")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("AWS_DEFAULT_REGION", "us-east-1")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_CREDENTIALS_FILE", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "blendpredict:")
	v.SetDefault("STORE_FS_ROOT", "data/artifacts")

	v.SetDefault("UPLOAD_MAX_BYTES", 32<<20)

	// Env
	v.AutomaticEnv()

	connectTimeout, err := time.ParseDuration(v.GetString("DB_CONNECT_TIMEOUT"))
	if err != nil {
		connectTimeout = 5 * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Model: ModelConfig{
			BundlePath: v.GetString("MODEL_BUNDLE_PATH"),
			IDColumn:   v.GetString("MODEL_ID_COLUMN"),
		},
		Catalog: CatalogConfig{
			Driver: v.GetString("CATALOG_DRIVER"),
			Postgres: PostgresConfig{
				Host:           v.GetString("DB_HOST"),
				Port:           v.GetInt("DB_PORT"),
				User:           v.GetString("DB_USER"),
				Password:       v.GetString("DB_PASSWORD"),
				Name:           v.GetString("DB_NAME"),
				SSLMode:        v.GetString("DB_SSLMODE"),
				ConnectTimeout: connectTimeout,
			},
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		Store: StoreConfig{
			Backend: v.GetString("STORE_BACKEND"),
			S3: S3Config{
				Bucket:          v.GetString("S3_BUCKET"),
				Region:          v.GetString("AWS_DEFAULT_REGION"),
				AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
				Endpoint:        v.GetString("S3_ENDPOINT"),
			},
			GCS: GCSConfig{
				Bucket:          v.GetString("GCS_BUCKET"),
				CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
			},
			Redis: RedisConfig{
				Addr:      v.GetString("REDIS_ADDR"),
				Password:  v.GetString("REDIS_PASSWORD"),
				DB:        v.GetInt("REDIS_DB"),
				KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
			},
			FSRoot: v.GetString("STORE_FS_ROOT"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case "postgres":
	case "sqlite":
		if c.Catalog.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite catalog")
		}
	default:
		return fmt.Errorf("unknown CATALOG_DRIVER %q (want postgres or sqlite)", c.Catalog.Driver)
	}

	switch c.Store.Backend {
	case "s3":
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 store")
		}
	case "gcs":
		if c.Store.GCS.Bucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for the gcs store")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case "fs":
		if c.Store.FSRoot == "" {
			return fmt.Errorf("STORE_FS_ROOT is required for the fs store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want s3, gcs, redis or fs)", c.Store.Backend)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}
