package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DatabaseURLEnv переопределяет DSN мастер-базы
const DatabaseURLEnv = "BLOG_DATABASE_URL"

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type DatabaseConfig struct {
	// Driver: postgres или sqlite
	Driver string `yaml:"driver"`
	// DSN задается целиком (путь к файлу для sqlite), иначе собирается из Master
	DSN          string     `yaml:"dsn"`
	Master       DBConfig   `yaml:"master"`
	Replicas     []DBConfig `yaml:"replicas"`
	MaxOpenConns int        `yaml:"max_open_conns"`
	LogLevel     string     `yaml:"log_level"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	// Backend: memory, redis или none
	Backend  string        `yaml:"backend"`
	Prefix   string        `yaml:"prefix"`
	IndexTTL time.Duration `yaml:"index_ttl"`

	// MaxEntries - предел ключей для memory
	MaxEntries int `yaml:"max_entries"`
}

type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	PublicURL      string `yaml:"public_url"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

type MediaConfig struct {
	// Backend: local или s3
	Backend   string   `yaml:"backend"`
	Root      string   `yaml:"root"`
	URLPrefix string   `yaml:"url_prefix"`
	MaxSize   int64    `yaml:"max_size"`
	S3        S3Config `yaml:"s3"`
}

type FeedConfig struct {
	PageSize      int `yaml:"page_size"`
	NotifyWorkers int `yaml:"notify_workers"`
	NotifyBuffer  int `yaml:"notify_buffer"`
}

type LogsConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

type BackendConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Database DatabaseConfig `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Media    MediaConfig    `yaml:"media"`
	Feed     FeedConfig     `yaml:"feed"`
	Logs     LogsConfig     `yaml:"logs"`
}

// Defaults возвращает конфигурацию для локального запуска без файла
func Defaults() *Config {
	conf := &Config{}
	conf.applyDefaults()
	return conf
}

// LoadConfig читает yaml-файл и дополняет незаданные значения дефолтами
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filePath, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	conf := &Config{}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.Host == "" {
		c.Backend.Host = "0.0.0.0"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8080
	}
	if c.Backend.Mode == "" {
		c.Backend.Mode = "release"
	}
	if c.Backend.ShutdownTimeout == 0 {
		c.Backend.ShutdownTimeout = 10 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "blog.db"
	}
	if c.Database.Master.Port == 0 {
		c.Database.Master.Port = 5432
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}
	if dsn := os.Getenv(DatabaseURLEnv); dsn != "" {
		c.Database.DSN = dsn
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "blog:"
	}
	if c.Cache.IndexTTL == 0 {
		c.Cache.IndexTTL = 20 * time.Second
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 300
	}

	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "feed_events"
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "feed_push"
	}

	if c.Media.Backend == "" {
		c.Media.Backend = "local"
	}
	if c.Media.Root == "" {
		c.Media.Root = "media"
	}
	if c.Media.URLPrefix == "" {
		c.Media.URLPrefix = "/media/"
	}
	if c.Media.MaxSize == 0 {
		c.Media.MaxSize = 5 << 20
	}

	if c.Feed.PageSize == 0 {
		c.Feed.PageSize = 10
	}
	if c.Feed.NotifyWorkers == 0 {
		c.Feed.NotifyWorkers = 5
	}
	if c.Feed.NotifyBuffer == 0 {
		c.Feed.NotifyBuffer = 256
	}

	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown db driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" && c.Database.Master.Host == "" {
		return fmt.Errorf("master database configuration is missing")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Media.Backend {
	case "local":
	case "s3":
		if c.Media.S3.Bucket == "" {
			return fmt.Errorf("media.s3.bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}
	if c.Feed.PageSize < 1 {
		return fmt.Errorf("feed.page_size must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Backend.Host, c.Backend.Port)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
