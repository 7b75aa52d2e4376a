// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP ---
	HTTPPort            int           `envconfig:"HTTP_PORT" default:"8080"`
	HTTPReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"aura"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"aura"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Oracle (Gemini) ---
	// Ключ не обязателен: без него оценка всегда идёт по запасной эвристике.
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash-exp"`
	GeminiTimeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"15s"`
	// Сколько исправленных примеров добавляем в промпт (максимум)
	OracleMaxExamples int `envconfig:"ORACLE_MAX_EXAMPLES" default:"10"`

	// --- Sessions / Auth ---
	SessionTTL          time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	LoginMaxAttempts    int           `envconfig:"LOGIN_MAX_ATTEMPTS" default:"5"`
	LoginAttemptsWindow time.Duration `envconfig:"LOGIN_ATTEMPTS_WINDOW" default:"1h"`

	// --- Badge import ---
	BadgeProviderURL string        `envconfig:"BADGE_PROVIDER_URL"`
	BadgePageSize    int           `envconfig:"BADGE_PAGE_SIZE" default:"20"`
	BadgeBatchSize   int           `envconfig:"BADGE_BATCH_SIZE" default:"50"`
	BadgeHTTPTimeout time.Duration `envconfig:"BADGE_HTTP_TIMEOUT" default:"20s"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("некорректный HTTP_PORT: %d", c.HTTPPort)
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.OracleMaxExamples < 0 || c.OracleMaxExamples > 10 {
		return fmt.Errorf("ORACLE_MAX_EXAMPLES должен быть в диапазоне 0..10")
	}
	if c.BadgeBatchSize <= 0 || c.BadgeBatchSize > 50 {
		return fmt.Errorf("BADGE_BATCH_SIZE должен быть в диапазоне 1..50")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
