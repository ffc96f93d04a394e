package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	SMTP         SMTPConfig
	JWT          JWTConfig
	Notification NotificationConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type NotificationConfig struct {
	CooldownMonths      int           `mapstructure:"cooldown_months"`
	WorkerCount         int           `mapstructure:"worker_count"`
	BatchSize           int           `mapstructure:"batch_size"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	ReminderHorizonDays int           `mapstructure:"reminder_horizon_days"`
}

// secrets are env-only overrides for values that must not live in the
// yaml file.
type secrets struct {
	DBPassword   string `envconfig:"DB_PASSWORD"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	RedisURL     string `envconfig:"REDIS_URL"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("notification.cooldown_months", 1)
	viper.SetDefault("notification.worker_count", 4)
	viper.SetDefault("notification.batch_size", 50)
	viper.SetDefault("notification.poll_interval", 10*time.Second)
	viper.SetDefault("notification.reminder_horizon_days", 60)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var sec secrets
	if err := envconfig.Process("certapi", &sec); err != nil {
		return nil, fmt.Errorf("failed to read env overrides: %w", err)
	}
	if sec.DBPassword != "" {
		config.Database.Password = sec.DBPassword
	}
	if sec.SMTPPassword != "" {
		config.SMTP.Password = sec.SMTPPassword
	}
	if sec.RedisURL != "" {
		config.Redis.URL = sec.RedisURL
	}
	if sec.JWTSecret != "" {
		config.JWT.Secret = sec.JWTSecret
	}

	return &config, nil
}
