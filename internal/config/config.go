/**
 * @description
 * This package handles the configuration management for the user-service. It uses the
 * Viper library to read configuration from environment variables (and an optional .env
 * file), providing a centralized way to manage application settings.
 *
 * Configuration is read once at process start. The service version in particular is
 * resolved here and never re-read per request.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */
package config

import (
	"errors"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the user-service.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	// ServiceVersion selects the response version tag ("v2" enables the enhanced tag).
	ServiceVersion string `mapstructure:"VERSION"`

	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBUser         string        `mapstructure:"DB_USER"`
	DBPassword     string        `mapstructure:"DB_PASSWORD"`
	DBHost         string        `mapstructure:"DB_HOST"`
	DBPort         string        `mapstructure:"DB_PORT"`
	DBName         string        `mapstructure:"DB_NAME"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	DBQueryTimeout time.Duration `mapstructure:"DB_QUERY_TIMEOUT"`

	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	CreditRateLimitPerMinute int    `mapstructure:"CREDIT_RATE_LIMIT_PER_MINUTE"`

	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	CreditEventExchange string `mapstructure:"CREDIT_EVENT_EXCHANGE"`

	ServiceJWTSecret   string `mapstructure:"SERVICE_JWT_SECRET"`
	ServiceJWTAudience string `mapstructure:"SERVICE_JWT_AUDIENCE"`

	PoolStatsSchedule string `mapstructure:"POOL_STATS_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables, with an optional .env file
// in the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("VERSION", "v1")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 20)
	viper.SetDefault("DB_MIN_CONNS", 2)
	viper.SetDefault("DB_QUERY_TIMEOUT", "5s")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "swiftorder:rate_limit")
	viper.SetDefault("CREDIT_RATE_LIMIT_PER_MINUTE", 600)
	viper.SetDefault("CREDIT_EVENT_EXCHANGE", "swiftorder.events")
	viper.SetDefault("POOL_STATS_SCHEDULE", "@every 1m")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("VERSION", "VERSION", "SERVICE_VERSION")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("DB_USER")
	_ = viper.BindEnv("DB_PASSWORD")
	_ = viper.BindEnv("DB_HOST")
	_ = viper.BindEnv("DB_PORT")
	_ = viper.BindEnv("DB_NAME")
	_ = viper.BindEnv("DB_MAX_CONNS")
	_ = viper.BindEnv("DB_MIN_CONNS")
	_ = viper.BindEnv("DB_QUERY_TIMEOUT")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("CREDIT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CREDIT_EVENT_EXCHANGE")
	_ = viper.BindEnv("SERVICE_JWT_SECRET")
	_ = viper.BindEnv("SERVICE_JWT_AUDIENCE")
	_ = viper.BindEnv("POOL_STATS_SCHEDULE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "swiftorder:rate_limit"
	}
	if strings.TrimSpace(config.DBPort) == "" {
		config.DBPort = "5432"
	}

	if config.DBMaxConns <= 0 {
		log.Printf("level=warn component=config msg=\"invalid DB_MAX_CONNS; using default\" value=%d", config.DBMaxConns)
		config.DBMaxConns = 20
	}
	if config.DBMinConns < 0 || config.DBMinConns > config.DBMaxConns {
		log.Printf("level=warn component=config msg=\"invalid DB_MIN_CONNS; using default\" value=%d", config.DBMinConns)
		config.DBMinConns = min(2, config.DBMaxConns)
	}
	if config.DBQueryTimeout <= 0 {
		log.Printf("level=warn component=config msg=\"invalid DB_QUERY_TIMEOUT; using default\" value=%s", config.DBQueryTimeout)
		config.DBQueryTimeout = 5 * time.Second
	}
	if config.CreditRateLimitPerMinute < 0 {
		config.CreditRateLimitPerMinute = 0
	}

	if config.DatabaseURL == "" && strings.TrimSpace(config.DBHost) == "" {
		err = errors.New("database is not configured: set DATABASE_URL or DB_HOST")
		return
	}

	return
}

// DatabaseDSN returns the connection string for the User Store. DATABASE_URL wins when set;
// otherwise the URL is assembled from the DB_* parts with credentials escaped.
func (c Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	dsn := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBUser != "" {
		if c.DBPassword != "" {
			dsn.User = url.UserPassword(c.DBUser, c.DBPassword)
		} else {
			dsn.User = url.User(c.DBUser)
		}
	}
	return dsn.String()
}

// RateLimitingEnabled reports whether the credit route should be rate limited.
func (c Config) RateLimitingEnabled() bool {
	return c.RedisURL != "" && c.CreditRateLimitPerMinute > 0
}
