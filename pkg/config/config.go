package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	LLM          LLMConfig
	Import       ImportConfig
	Analysis     AnalysisConfig
	Notification NotificationConfig
	Logger       LoggerConfig
	Metrics      MetricsConfig
}

type LoggerConfig struct {
	Level  string
	Format string // json or console
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
	CronSecret   string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool
}

// DSN returns the pgx connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

// LLMConfig configures the inference providers. Primary selects which
// provider is tried first; the other one, when configured, is the fallback.
type LLMConfig struct {
	Primary        string
	RequestTimeout time.Duration
	ChatCompletion ChatCompletionConfig
	GigaChat       GigaChatConfig
}

type ChatCompletionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

type ImportConfig struct {
	SampleRows   int
	MaxBatchSize int
	DayFirst     bool
	MaxFileBytes int
}

type AnalysisConfig struct {
	WindowDays int
	Currency   string
}

type NotificationConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	DailyEnabled    bool
	DailyHour       int
	DailyMinute     int
	Timezone        string
	AppURL          string
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too (Docker/K8s)
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(getEnvAsInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("SERVER_WRITE_TIMEOUT", 120)) * time.Second,
			BodyLimit:    getEnvAsInt("SERVER_BODY_LIMIT_MB", 10) * 1024 * 1024,
			CronSecret:   getEnv("CRON_SECRET", ""),
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "fintrack"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 10),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
			RefreshExp: time.Duration(getEnvAsInt("JWT_REFRESH_EXPIRATION_HOURS", 168)) * time.Hour,
		},
		LLM: LLMConfig{
			Primary:        getEnv("LLM_PRIMARY", "chat-completions"),
			RequestTimeout: time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 90)) * time.Second,
			ChatCompletion: ChatCompletionConfig{
				BaseURL: getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
				APIKey:  getEnv("LLM_API_KEY", ""),
				Model:   getEnv("LLM_MODEL", "deepseek-chat"),
			},
			GigaChat: GigaChatConfig{
				APIKey:             getEnv("GIGACHAT_API_KEY", ""),
				Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
				InsecureSkipVerify: getEnvAsBool("GIGACHAT_INSECURE_SKIP_VERIFY", false),
			},
		},
		Import: ImportConfig{
			SampleRows:   getEnvAsInt("IMPORT_SAMPLE_ROWS", 40),
			MaxBatchSize: getEnvAsInt("IMPORT_MAX_BATCH", 1000),
			DayFirst:     getEnvAsBool("IMPORT_DAY_FIRST", true),
			MaxFileBytes: getEnvAsInt("IMPORT_MAX_FILE_MB", 5) * 1024 * 1024,
		},
		Analysis: AnalysisConfig{
			WindowDays: getEnvAsInt("ANALYSIS_WINDOW_DAYS", 90),
			Currency:   getEnv("DEFAULT_CURRENCY", "VND"),
		},
		Notification: NotificationConfig{
			VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subscriber:      getEnv("VAPID_SUBSCRIBER", "mailto:admin@fintrack.local"),
			DailyEnabled:    getEnvAsBool("NOTIFY_DAILY_ENABLED", true),
			DailyHour:       getEnvAsInt("NOTIFY_DAILY_HOUR", 21),
			DailyMinute:     getEnvAsInt("NOTIFY_DAILY_MINUTE", 0),
			Timezone:        getEnv("NOTIFY_TIMEZONE", "Asia/Ho_Chi_Minh"),
			AppURL:          getEnv("APP_URL", "http://localhost:3000"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Notification.DailyHour < 0 || c.Notification.DailyHour > 23 {
		return fmt.Errorf("NOTIFY_DAILY_HOUR must be within 0-23, got %d", c.Notification.DailyHour)
	}
	if c.Notification.DailyMinute < 0 || c.Notification.DailyMinute > 59 {
		return fmt.Errorf("NOTIFY_DAILY_MINUTE must be within 0-59, got %d", c.Notification.DailyMinute)
	}
	if c.Import.SampleRows < 2 {
		return fmt.Errorf("IMPORT_SAMPLE_ROWS must be at least 2, got %d", c.Import.SampleRows)
	}
	if _, err := time.LoadLocation(c.Notification.Timezone); err != nil {
		return fmt.Errorf("invalid NOTIFY_TIMEZONE %q: %w", c.Notification.Timezone, err)
	}
	return nil
}

// Location returns the configured notification timezone, UTC when invalid.
func (c *NotificationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
