package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/ai"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/bot"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/config"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/logger"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New("info", "json")
		l.Fatal().Err(err).Msg("config error")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("store open error")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("store close error")
		}
	}()
	log.Info().Str("backend", cfg.StoreBackend).Msg("store ready")

	// --- AI ---
	var aiClient ai.AI = ai.Disabled{}
	if cfg.AIEnabled() {
		aiClient = ai.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, log)
	} else {
		log.Warn().Msg("OPENAI_API_KEY is not set, ai replies disabled")
	}

	// --- Operator notifications ---
	notifier := newNotifier(cfg, log)

	// --- Metrics ---
	var m *metrics.Metrics
	opts := []bot.Option{bot.WithTimeouts(cfg.AITimeout, cfg.NotifyTimeout)}
	if cfg.MetricsEnabled {
		m = metrics.New("mpc_bot")
		opts = append(opts, bot.WithObserver(m))
	}

	svc := bot.NewService(store, aiClient, notifier, cfg.Catalog, log, opts...)
	r := newRouter(cfg, svc, store, m, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
