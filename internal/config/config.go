package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Account  AccountConfig
	CORS     CORSConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers       []string
	EventsTopic   string
	AccountTopic  string
	ConsumerGroup string
	Enabled       bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthConfig holds the shared secret the generator and terminal present.
type AuthConfig struct {
	APIKey string
}

// AccountCredentials is one preconfigured terminal login.
type AccountCredentials struct {
	Account  string
	Password string
	Server   string
}

// AccountConfig selects between the demo and real credential sets.
type AccountConfig struct {
	Mode string // "demo" or "real"
	Demo AccountCredentials
	Real AccountCredentials
}

// CORSConfig holds the allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8000"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "trader"),
			Password: getEnv("DB_PASSWORD", "trader"),
			DBName:   getEnv("DB_NAME", "community_trading"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       parseList(getEnv("KAFKA_BROKERS", "localhost:19092")),
			EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "trading.events"),
			AccountTopic:  getEnv("KAFKA_ACCOUNT_TOPIC", "trading.account"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "community-trading-api"),
			Enabled:       getEnvBool("KAFKA_ENABLED", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_SECRET_KEY", ""),
		},
		Account: AccountConfig{
			Mode: strings.ToLower(getEnv("ACCOUNT_MODE", "demo")),
			Demo: AccountCredentials{
				Account:  getEnv("DEMO_ACCOUNT", ""),
				Password: getEnv("DEMO_PASSWORD", ""),
				Server:   getEnv("DEMO_SERVER", "FBS-Demo"),
			},
			Real: AccountCredentials{
				Account:  getEnv("REAL_ACCOUNT", ""),
				Password: getEnv("REAL_PASSWORD", ""),
				Server:   getEnv("REAL_SERVER", "FBS-Real"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "*")),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

// IsDemo reports whether the demo credential set is active.
func (a *AccountConfig) IsDemo() bool {
	return a.Mode != "real"
}

// Active returns the credential set selected by Mode.
func (a *AccountConfig) Active() AccountCredentials {
	if a.IsDemo() {
		return a.Demo
	}
	return a.Real
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseList splits a comma-separated value
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
