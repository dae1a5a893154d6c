package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/linemk/plugmarket-bot/internal/app"
	"github.com/linemk/plugmarket-bot/internal/app/handlers"
	"github.com/linemk/plugmarket-bot/internal/config"
	"github.com/linemk/plugmarket-bot/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/plugmarket-bot/internal/lib/logger"
	"github.com/linemk/plugmarket-bot/internal/lib/logger/handlers/urllog"
	"github.com/linemk/plugmarket-bot/internal/transport/telegram"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env, cfg.LogLevel)
	log.Info("starting bot", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage.Driver))

	// хранилище, телеграм, получатели событий и сервисы
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("failed to close app", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Handle("/metrics", promhttp.Handler())
	// вход админа
	router.Post("/api/auth", handlers.AuthHandler(log, application.Auth))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(cfg.JWT.Secret))
		// карточка заказа, живого или архивного
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(log, application.Orders))
		// решения админа: confirm, reject, deliver, decline, cancel
		r.Post("/api/orders/{id}/{action}", handlers.OrderActionHandler(log, application.Orders))
		// сводка продаж за период
		r.Get("/api/report", handlers.ReportHandler(log, application.Orders, application.Reports))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// long polling телеграма
	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeout
	updates := application.BotAPI.GetUpdatesChan(u)

	bot := telegram.New(log, application.BotAPI, application.Orders, application.Reports, application.Catalog)
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Run(ctx, updates)
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info("received shutdown signal")

	application.BotAPI.StopReceivingUpdates()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("bot gracefully stopped")
}
