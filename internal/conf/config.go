package conf

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite database file

	MaxIdleConns    int           `mapstructure:"maxidleconns"`
	MaxOpenConns    int           `mapstructure:"maxopenconns"`
	ConnMaxLifetime time.Duration `mapstructure:"connmaxlifetime"`
	LogLevel        string        `mapstructure:"loglevel"`
}

type StorageConfig struct {
	Path            string        `mapstructure:"path"`
	MaxFileSize     int64         `mapstructure:"max_file_size"`
	RetentionDays   int           `mapstructure:"retention_days"`
	DownloadURLBase string        `mapstructure:"download_url_base"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

type RateLimitConfig struct {
	MaxRequests   int           `mapstructure:"max_requests"`
	Window        time.Duration `mapstructure:"window"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("FILEDEPOT")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "filedepot.db")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxidleconns", 10)
	viper.SetDefault("database.maxopenconns", 100)
	viper.SetDefault("database.connmaxlifetime", time.Hour)
	viper.SetDefault("database.loglevel", "warn")

	viper.SetDefault("storage.path", "./storage")
	viper.SetDefault("storage.max_file_size", int64(2)<<30) // 2 GiB
	viper.SetDefault("storage.retention_days", 30)
	viper.SetDefault("storage.download_url_base", "http://localhost:8000")
	viper.SetDefault("storage.sweep_interval", time.Hour)

	viper.SetDefault("ratelimit.max_requests", 10)
	viper.SetDefault("ratelimit.window", time.Minute)
	viper.SetDefault("ratelimit.prune_interval", 5*time.Minute)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "console")
}

func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if c.Storage.MaxFileSize <= 0 {
		return errors.New("storage max file size must be greater than 0")
	}
	if c.Storage.RetentionDays <= 0 {
		return errors.New("storage retention days must be greater than 0")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("postgres driver requires database host and dbname")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("sqlite driver requires database path")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	return nil
}

// DSN returns the PostgreSQL connection string. For sqlite use Path directly.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
