package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/admin"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/bot"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/config"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/metrics"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/middleware"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/notify"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/storage/filestore"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/storage/memory"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/storage/redisstore"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/storage/sqlstore"
)

const (
	rateLimitedText = "Estás enviando muchos mensajes. Espera un momento e inténtalo de nuevo."
	webhookBurst    = 5
)

func noClose() error { return nil }

// pinger: бэкенды, у которых есть проверка соединения.
type pinger interface {
	Ping(ctx context.Context) error
}

// openStore выбирает бэкенд по STORE_BACKEND. Второе значение закрывает соединения.
func openStore(ctx context.Context, cfg *config.Config) (bot.Store, func() error, error) {
	switch cfg.StoreBackend {
	case "memory":
		return memory.New(), noClose, nil

	case "file":
		st, err := filestore.Open(cfg.DBFile)
		if err != nil {
			return nil, nil, err
		}
		return st, noClose, nil

	case "postgres", "sqlite":
		driver, dsn, dialect := "postgres", cfg.DatabaseURL, sqlstore.Postgres
		if cfg.StoreBackend == "sqlite" {
			driver, dsn, dialect = "sqlite3", cfg.SQLitePath, sqlstore.SQLite
		}
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, nil, errs.New("db open error").Arg("driver", driver).Wrap(err)
		}
		st, err := sqlstore.New(ctx, db, dialect)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return st, db.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errs.New("redis ping error").Arg("addr", cfg.RedisAddr).Wrap(err)
		}
		return redisstore.New(client, cfg.SessionTTL), client.Close, nil
	}

	return nil, nil, errs.New("unknown store backend").Arg("backend", cfg.StoreBackend)
}

// newNotifier собирает каналы до оператора. Без настроек уведомления просто не уходят.
func newNotifier(cfg *config.Config, log zerolog.Logger) bot.Notifier {
	var channels notify.Multi
	if cfg.TwilioEnabled() {
		channels = append(channels, notify.NewTwilio(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, cfg.OperatorWhatsApp))
	}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Error().Err(err).Msg("telegram init error, channel skipped")
		} else {
			channels = append(channels, tg)
		}
	}

	if len(channels) == 0 {
		log.Warn().Msg("no operator channel configured, notifications disabled")
		return notify.Nop{}
	}
	return channels
}

// newRouter без метрик (m == nil) не отдаёт /metrics.
func newRouter(cfg *config.Config, svc bot.Service, store bot.Store, m *metrics.Metrics, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}

	// --- WhatsApp webhook ---
	// Twilio не исполняет TwiML из не-2xx ответа, поэтому отказ тоже 200.
	limit := middleware.RateLimit(cfg.RateLimitPerMin, webhookBurst, bot.SenderFromRequest,
		func(w http.ResponseWriter, _ *http.Request) {
			bot.WriteTwiML(w, http.StatusOK, rateLimitedText)
		}, log)
	bot.RegisterRoutes(r, bot.NewHandler(svc), limit)

	// --- Admin ---
	admin.RegisterRoutes(r, admin.NewHandler(store, cfg.Catalog, cfg.AdminToken, log))

	// --- health ---
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if p, ok := store.(pinger); ok {
			if err := p.Ping(req.Context()); err != nil {
				log.Error().Err(err).Msg("health check: store unavailable")
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}
