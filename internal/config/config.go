package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
)

//go:embed catalog.yml
var defaultCatalog []byte

type Config struct {
	Port      string `validate:"required,numeric"`
	LogLevel  string
	LogFormat string

	StoreBackend  string `validate:"oneof=memory file postgres sqlite redis"`
	DBFile        string `validate:"required_if=StoreBackend file"`
	DatabaseURL   string `validate:"required_if=StoreBackend postgres"`
	SQLitePath    string `validate:"required_if=StoreBackend sqlite"`
	RedisAddr     string `validate:"required_if=StoreBackend redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
	SessionTTL    time.Duration

	AdminToken string

	OpenAIKey   string
	OpenAIModel string
	AITimeout   time.Duration `validate:"gt=0"`

	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
	OperatorWhatsApp string

	TelegramToken  string
	TelegramChatID int64

	NotifyTimeout time.Duration `validate:"gt=0"`

	RateLimitPerMin int `validate:"gte=0"`
	MetricsEnabled  bool

	Catalog domain.Catalog `validate:"-"`
}

// TwilioEnabled: уведомления оператору через WhatsApp возможны только при полном наборе переменных.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioSID != "" && c.TwilioToken != "" && c.TwilioFrom != "" && c.OperatorWhatsApp != ""
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func (c *Config) AIEnabled() bool {
	return c.OpenAIKey != ""
}

// Load читает .env (если есть), окружение и каталог.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:      env("PORT", "3000"),
		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "json"),

		StoreBackend:  strings.ToLower(env("STORE_BACKEND", "file")),
		DBFile:        env("DB_FILE", "db.json"),
		DatabaseURL:   env("DATABASE_URL", ""),
		SQLitePath:    env("SQLITE_PATH", "bot.db"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPassword: env("REDIS_PASSWORD", ""),

		AdminToken: env("ADMIN_TOKEN", ""),

		OpenAIKey:   env("OPENAI_API_KEY", ""),
		OpenAIModel: env("OPENAI_MODEL", "gpt-4o-mini"),

		TwilioSID:        env("TWILIO_ACCOUNT_SID", ""),
		TwilioToken:      env("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:       env("TWILIO_FROM", ""),
		OperatorWhatsApp: env("OPERATOR_WHATSAPP", ""),

		TelegramToken: env("TELEGRAM_BOT_TOKEN", ""),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(env("REDIS_DB", "0")); err != nil {
		return nil, errs.New("invalid REDIS_DB").Wrap(err)
	}
	if cfg.RateLimitPerMin, err = strconv.Atoi(env("RATE_LIMIT_PER_MIN", "30")); err != nil {
		return nil, errs.New("invalid RATE_LIMIT_PER_MIN").Wrap(err)
	}
	if v := env("TELEGRAM_CHAT_ID", ""); v != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, errs.New("invalid TELEGRAM_CHAT_ID").Wrap(err)
		}
	}
	if cfg.SessionTTL, err = time.ParseDuration(env("SESSION_TTL", "0s")); err != nil {
		return nil, errs.New("invalid SESSION_TTL").Wrap(err)
	}
	if cfg.AITimeout, err = time.ParseDuration(env("AI_TIMEOUT", "15s")); err != nil {
		return nil, errs.New("invalid AI_TIMEOUT").Wrap(err)
	}
	if cfg.NotifyTimeout, err = time.ParseDuration(env("NOTIFY_TIMEOUT", "10s")); err != nil {
		return nil, errs.New("invalid NOTIFY_TIMEOUT").Wrap(err)
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(env("METRICS_ENABLED", "true")); err != nil {
		return nil, errs.New("invalid METRICS_ENABLED").Wrap(err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errs.New("config validation failed").Wrap(err)
	}

	raw := defaultCatalog
	if path := env("CATALOG_FILE", ""); path != "" {
		if raw, err = os.ReadFile(path); err != nil {
			return nil, errs.New("failed to read catalog file").Arg("path", path).Wrap(err)
		}
	}
	if cfg.Catalog, err = ParseCatalog(raw); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseCatalog разбирает YAML каталога и проверяет его.
func ParseCatalog(raw []byte) (domain.Catalog, error) {
	var cat domain.Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return domain.Catalog{}, errs.New("failed to unmarshal catalog").Wrap(err)
	}
	if err := validator.New().Struct(cat); err != nil {
		return domain.Catalog{}, errs.New("catalog validation failed").Wrap(err)
	}
	return cat, nil
}

// DefaultCatalog: встроенный каталог, паникует только если сломан сам бинарник.
func DefaultCatalog() domain.Catalog {
	cat, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return cat
}
