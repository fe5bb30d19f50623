package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Auth      AuthConfig      `json:"auth"`
	Media     MediaConfig     `json:"media"`
	Analytics AnalyticsConfig `json:"analytics"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host          string `json:"host"`
	Port          string `json:"port"`
	User          string `json:"user"`
	Password      string `json:"password"`
	DBName        string `json:"db_name"`
	SSLMode       string `json:"ssl_mode"`
	MaxOpenConns  int    `json:"max_open_conns"`
	MaxIdleConns  int    `json:"max_idle_conns"`
	RunMigrations bool   `json:"run_migrations"`

	// ConnMaxLifetimeMinutes ограничивает жизнь соединения в пуле
	ConnMaxLifetimeMinutes int `json:"conn_max_lifetime_minutes"`
}

// DSN собирает строку подключения lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=5",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Orders  string `json:"orders"`
	Catalog string `json:"catalog"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// AuthConfig описывает параметры выпуска JWT
type AuthConfig struct {
	JWTSecret     string `json:"-"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

// MediaConfig описывает S3-совместимое хранилище изображений
type MediaConfig struct {
	Endpoint      string `json:"endpoint"`
	Region        string `json:"region"`
	AccessKey     string `json:"-"`
	SecretKey     string `json:"-"`
	Bucket        string `json:"bucket"`
	PublicURL     string `json:"public_url"`
	MaxImageBytes int64  `json:"max_image_bytes"`
	MaxFiles      int    `json:"max_files"`
}

// AnalyticsConfig хранит настройки аналитики продаж
type AnalyticsConfig struct {
	MaxRangeDays          int `json:"max_range_days"`
	DefaultTopLimit       int `json:"default_top_limit"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

// RateLimitConfig описывает лимиты запросов: общий для API и отдельный для входа и регистрации
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Requests      int    `json:"requests"`
	AuthRequests  int    `json:"auth_requests"`
	WindowSeconds int    `json:"window_seconds"`
	KeyPrefix     string `json:"key_prefix"`
}

// Load загружает конфигурацию из .env (если есть) и переменных окружения
func Load() *Config {
	// Отсутствие .env не ошибка: в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "eshop_user"),
			Password:      getEnv("DB_PASSWORD", "eshop_pass"),
			DBName:        getEnv("DB_NAME", "eshop"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:  getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),

			ConnMaxLifetimeMinutes: getEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "eshop"),
			Topics: Topics{
				Orders:  getEnv("KAFKA_TOPIC_ORDERS", "orders"),
				Catalog: getEnv("KAFKA_TOPIC_CATALOG", "catalog"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "change-me"),
			TokenTTLHours: getEnvAsInt("JWT_TTL_HOURS", 72),
		},
		Media: MediaConfig{
			Endpoint:      getEnv("MEDIA_S3_ENDPOINT", ""),
			Region:        getEnv("MEDIA_S3_REGION", "us-east-1"),
			AccessKey:     getEnv("MEDIA_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("MEDIA_S3_SECRET_KEY", ""),
			Bucket:        getEnv("MEDIA_S3_BUCKET", "eshop"),
			PublicURL:     getEnv("MEDIA_PUBLIC_URL", ""),
			MaxImageBytes: int64(getEnvAsFloat("MEDIA_MAX_IMAGE_MB", 50) * 1024 * 1024),
			MaxFiles:      getEnvAsInt("MEDIA_MAX_FILES", 5),
		},
		Analytics: AnalyticsConfig{
			MaxRangeDays:          getEnvAsInt("ANALYTICS_MAX_RANGE_DAYS", 3650),
			DefaultTopLimit:       getEnvAsInt("ANALYTICS_DEFAULT_TOP_LIMIT", 5),
			RequestTimeoutSeconds: getEnvAsInt("ANALYTICS_REQUEST_TIMEOUT_SECONDS", 10),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			AuthRequests:  getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		},
	}
}

// Validate проверяет значения, без которых сервис не может стартовать.
// Возвращает все найденные ошибки сразу.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	port, err := strconv.Atoi(c.Server.Port)
	check(err == nil && port > 0 && port < 65536, "SERVER_PORT must be a valid port, got %q", c.Server.Port)
	check(c.Database.Host != "" && c.Database.DBName != "", "DB_HOST and DB_NAME are required")
	check(c.Auth.JWTSecret != "", "JWT_SECRET is required")
	check(c.Auth.TokenTTLHours > 0, "JWT_TTL_HOURS must be positive, got %d", c.Auth.TokenTTLHours)
	check(len(c.Kafka.Brokers) > 0 && c.Kafka.Brokers[0] != "", "KAFKA_BROKERS is required")
	check(c.Kafka.Topics.Orders != "" && c.Kafka.Topics.Catalog != "", "kafka topics are required")
	check(c.Media.MaxFiles > 0, "MEDIA_MAX_FILES must be positive, got %d", c.Media.MaxFiles)
	check(c.Media.MaxImageBytes > 0, "MEDIA_MAX_IMAGE_MB must be positive")
	check(c.Analytics.MaxRangeDays > 0, "ANALYTICS_MAX_RANGE_DAYS must be positive, got %d", c.Analytics.MaxRangeDays)

	if c.RateLimit.Enabled {
		check(c.RateLimit.Requests > 0, "RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimit.Requests)
		check(c.RateLimit.WindowSeconds > 0, "RATE_LIMIT_WINDOW_SECONDS must be positive, got %d", c.RateLimit.WindowSeconds)
	}

	return errors.Join(errs...)
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat получает значение переменной окружения как float64 с значением по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool с значением по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}
