package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	DB       DBConfig      `yaml:"db"`
	Kafka    KafkaConfig   `yaml:"kafka"`
	Redis    RedisConfig   `yaml:"redis"`
	Services Services      `yaml:"services"`
	Features FeatureConfig `yaml:"features"`
}

type HTTPConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type DBConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"` //nolint:gosec // config struct, not hardcoded cred
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MigrationsPath string `yaml:"migrations_path"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
	Topics  []string `yaml:"topics"`
}

type RedisConfig struct {
	Address string `yaml:"address"`
}

type Services struct {
	GradingService ServiceConfig `yaml:"grading_service"`
	UserService    ServiceConfig `yaml:"user_service"`
}

type ServiceConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type FeatureConfig struct {
	// VerificationEnabled gates the event trigger layer; when off, submission
	// and allocation events are consumed but do not materialize slots.
	VerificationEnabled bool `yaml:"verification_enabled"`
}

func Load() (*Config, error) {
	configPath := getConfigPath()
	data, err := os.ReadFile(configPath) //nolint:gosec // config path from env/flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	possiblePaths := []string{
		"config/config.yaml",
		"/etc/verification-service/config.yaml",
		"./config.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config.yaml"
}

func setDefaults(cfg *Config) {
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}

	if cfg.Services.GradingService.Timeout == 0 {
		cfg.Services.GradingService.Timeout = 10 * time.Second
	}

	if cfg.Services.UserService.Timeout == 0 {
		cfg.Services.UserService.Timeout = 10 * time.Second
	}

	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "verification-service-group"
	}

	if len(cfg.Kafka.Topics) == 0 {
		cfg.Kafka.Topics = []string{
			"submission-created",
			"submission-updated",
			"verifier-allocations",
		}
	}
}

func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("HTTP_ADDRESS"); val != "" {
		cfg.HTTP.Address = val
	}
	if val := os.Getenv("HTTP_TIMEOUT"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			cfg.HTTP.Timeout = time.Duration(timeout) * time.Second
		}
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		cfg.DB.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.DB.Port = port
		}
	}
	if val := os.Getenv("DB_USER"); val != "" {
		cfg.DB.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		cfg.DB.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		cfg.DB.DBName = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		cfg.DB.SSLMode = val
	}
	if val := os.Getenv("DB_MIGRATIONS_PATH"); val != "" {
		cfg.DB.MigrationsPath = val
	}

	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		cfg.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("KAFKA_GROUP_ID"); val != "" {
		cfg.Kafka.GroupID = val
	}
	if val := os.Getenv("KAFKA_TOPICS"); val != "" {
		cfg.Kafka.Topics = strings.Split(val, ",")
	}

	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}

	if val := os.Getenv("GRADING_SERVICE_ADDRESS"); val != "" {
		cfg.Services.GradingService.Address = val
	}
	if val := os.Getenv("USER_SERVICE_ADDRESS"); val != "" {
		cfg.Services.UserService.Address = val
	}

	if val := os.Getenv("VERIFICATION_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.Features.VerificationEnabled = enabled
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.HTTP.Address == "" {
		return fmt.Errorf("HTTP address must be set")
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker must be specified")
	}

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.DBName == "" {
		return fmt.Errorf("database configuration is incomplete")
	}

	if cfg.Services.GradingService.Address == "" {
		return fmt.Errorf("grading service address must be specified")
	}

	if cfg.Services.UserService.Address == "" {
		return fmt.Errorf("user service address must be specified")
	}

	return nil
}
