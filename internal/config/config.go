package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config - конфигурация сервиса.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`

	// Database. DATABASE_URL имеет приоритет над DB_*.
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"artstory"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	RunMigrations bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	// Секрет: DB_PASSWORD или /run/secrets/db_password
	DBPassword string `ignored:"true"`

	// Redis для лимитера запросов. Пустой адрес - лимитер в памяти.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string `ignored:"true"`

	RateLimitPerMinute uint `envconfig:"RATE_LIMIT_PER_MINUTE" default:"10"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Подпись cookie с текущей сессией истории.
	SessionSecret string        `ignored:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	// AI
	AIClientType     string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL        string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel          string        `envconfig:"AI_MODEL" default:"gpt-4o"`
	AITimeout        time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	AIRateLimitRPS   float64       `envconfig:"AI_RATE_LIMIT_RPS" default:"2"`
	AIRateLimitBurst int           `envconfig:"AI_RATE_LIMIT_BURST" default:"4"`
	StoryTemperature float64       `envconfig:"STORY_TEMPERATURE" default:"0.8"`
	AIAPIKey         string        `ignored:"true"`

	ImageFetchTimeout time.Duration `envconfig:"IMAGE_FETCH_TIMEOUT" default:"10s"`
	ImageMaxBytes     int64         `envconfig:"IMAGE_MAX_BYTES" default:"20971520"`

	// YAML с каталогом пресетов истории. Пусто - встроенные значения.
	StoryOptionsPath string `envconfig:"STORY_OPTIONS_PATH"`
}

// LoadConfig читает .env (если есть), переменные окружения и секреты.
func LoadConfig(envFilePath string) (*Config, error) {
	cfg, err := loadBase(envFilePath)
	if err != nil {
		return nil, err
	}

	if cfg.SessionSecret, err = secret("SESSION_SECRET", "session_secret"); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.AIClientType, "openai") {
		cfg.AIAPIKey, err = secret("AI_API_KEY", "ai_api_key")
		if err != nil {
			// Совместимость со старым именем переменной
			if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				cfg.AIAPIKey, err = key, nil
			} else {
				return nil, err
			}
		}
	}

	// Необязательный секрет
	if redisPass, err := secret("REDIS_PASSWORD", "redis_password"); err == nil {
		cfg.RedisPassword = redisPass
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabaseConfig - только то, что нужно для подключения к базе (cmd/migrate).
func LoadDatabaseConfig(envFilePath string) (*Config, error) {
	return loadBase(envFilePath)
}

func loadBase(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	if cfg.DatabaseURL == "" {
		password, err := secret("DB_PASSWORD", "db_password")
		if err != nil {
			return nil, err
		}
		cfg.DBPassword = password
	}
	return &cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	switch strings.ToLower(c.AIClientType) {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown AI_CLIENT_TYPE '%s'", c.AIClientType)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.AIRateLimitRPS <= 0 || c.AIRateLimitBurst <= 0 {
		return fmt.Errorf("AI rate limit must be positive (rps=%v, burst=%d)", c.AIRateLimitRPS, c.AIRateLimitBurst)
	}
	if c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("IMAGE_FETCH_TIMEOUT must be positive")
	}
	return nil
}

// GetDSN возвращает строку подключения к PostgreSQL.
func (c *Config) GetDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// MaskedDSN - DSN без пароля, для логов.
func (c *Config) MaskedDSN() string {
	u, err := url.Parse(c.GetDSN())
	if err != nil {
		return "<invalid dsn>"
	}
	return u.Redacted()
}

// GetAllowedOrigins разбивает CORS_ALLOWED_ORIGINS по запятой.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}
