package config

import (
	"os"
	"strconv"
	"strings"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Pricing   PricingConfig   `json:"pricing"`
	Cache     CacheConfig     `json:"cache"`
	Stats     StatsConfig     `json:"stats"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Breaker   BreakerConfig   `json:"breaker"`
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
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
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
	Quotes string `json:"quotes"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// PricingConfig задаёт политику расчёта стоимости рецепта.
type PricingConfig struct {
	Strict         bool    `json:"strict"`          // отклонять нечисловой и отрицательный ввод
	ClampNegative  bool    `json:"clamp_negative"`  // не опускать итог ниже нуля
	DefaultRefills float64 `json:"default_refills"` // значение для пустого поля refills
	CurrencySymbol string  `json:"currency_symbol"`
}

// CacheConfig хранит настройки кеша котировок
type CacheConfig struct {
	QuoteTTLMinutes int `json:"quote_ttl_minutes"`
}

// StatsConfig хранит настройки статистики расчётов
type StatsConfig struct {
	CacheTTLMinutes       int    `json:"cache_ttl_minutes"`
	MaxRangeDays          int    `json:"max_range_days"`
	DefaultGroupBy        string `json:"default_group_by"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// RateLimitConfig описывает настройки rate limiting
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Requests      int    `json:"requests"`
	WindowSeconds int    `json:"window_seconds"`
	KeyPrefix     string `json:"key_prefix"`
}

// BreakerConfig описывает circuit breaker для публикации событий
type BreakerConfig struct {
	MaxRequests         uint32 `json:"max_requests"`
	IntervalSeconds     int    `json:"interval_seconds"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "refill_user"),
			Password: getEnv("DB_PASSWORD", "refill_pass"),
			DBName:   getEnv("DB_NAME", "refill_pricing"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "refill-pricing"),
			Topics: Topics{
				Quotes: getEnv("KAFKA_TOPIC_QUOTES", "quotes"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Pricing: PricingConfig{
			Strict:         getEnvAsBool("PRICING_STRICT", false),
			ClampNegative:  getEnvAsBool("PRICING_CLAMP_NEGATIVE", false),
			DefaultRefills: getEnvAsFloat("PRICING_DEFAULT_REFILLS", 1),
			CurrencySymbol: getEnv("PRICING_CURRENCY_SYMBOL", "$"),
		},
		Cache: CacheConfig{
			QuoteTTLMinutes: getEnvAsInt("QUOTE_CACHE_TTL_MINUTES", 15),
		},
		Stats: StatsConfig{
			CacheTTLMinutes:       getEnvAsInt("STATS_CACHE_TTL_MINUTES", 10),
			MaxRangeDays:          getEnvAsInt("STATS_MAX_RANGE_DAYS", 365),
			DefaultGroupBy:        getEnv("STATS_DEFAULT_GROUP_BY", "none"),
			RequestTimeoutSeconds: getEnvAsInt("STATS_REQUEST_TIMEOUT_SECONDS", 5),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		},
		Breaker: BreakerConfig{
			MaxRequests:         uint32(getEnvAsInt("BREAKER_MAX_REQUESTS", 3)),
			IntervalSeconds:     getEnvAsInt("BREAKER_INTERVAL_SECONDS", 60),
			TimeoutSeconds:      getEnvAsInt("BREAKER_TIMEOUT_SECONDS", 30),
			ConsecutiveFailures: uint32(getEnvAsInt("BREAKER_CONSECUTIVE_FAILURES", 5)),
		},
	}
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
