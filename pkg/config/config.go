package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Coordinator CoordinatorConfig
	Catalog     CatalogConfig
	Redis       RedisConfig
	Router      RouterConfig
	Optimizer   OptimizerConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type CoordinatorConfig struct {
	TimeoutMS           int
	MaxRetries          int
	CacheTTLSec         int
	CacheBackend        string
	HealthCheckInterval int
}

type CatalogConfig struct {
	Backend string
	Path    string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RouterConfig struct {
	Mode        string
	APIKey      string
	Model       string
	Temperature float32
	TimeoutSec  int
}

type OptimizerConfig struct {
	MaxRowLimit int
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/validis-agent")

	viper.SetEnvPrefix("VALIDIS_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("coordinator.timeoutMS", 10000)
	viper.SetDefault("coordinator.maxRetries", 2)
	viper.SetDefault("coordinator.cacheTTLSec", 300)
	viper.SetDefault("coordinator.cacheBackend", "memory")
	viper.SetDefault("coordinator.healthCheckInterval", 60)

	viper.SetDefault("catalog.backend", "static")
	viper.SetDefault("catalog.path", "./data/catalog.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("router.mode", "keyword")
	viper.SetDefault("router.model", "gpt-4")
	viper.SetDefault("router.temperature", 0.1)
	viper.SetDefault("router.timeoutSec", 15)

	viper.SetDefault("optimizer.maxRowLimit", 1000)

	viper.SetDefault("ratelimit.requestsPerMinute", 120)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
