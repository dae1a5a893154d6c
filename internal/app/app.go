package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/config"
	"github.com/linemk/plugmarket-bot/internal/notify"
	"github.com/linemk/plugmarket-bot/internal/service"
	"github.com/linemk/plugmarket-bot/internal/storage"
	"github.com/segmentio/kafka-go"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *sql.DB // nil при storage.driver = memory
	BotAPI  *tgbotapi.BotAPI
	Catalog *catalog.Catalog

	Orders  *service.OrderService
	Reports *service.ReportService
	Auth    *service.AuthService

	kafka *kafka.Writer
}

// NewApp создаёт новый экземпляр App
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  log,
		Catalog: catalog.Default(),
	}

	orders, err := app.openStorage()
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	app.BotAPI = api
	log.Info("authorized in telegram", slog.String("bot", api.Self.UserName))

	// получатели событий: чат бота и, если настроен, трекер в kafka
	notifiers := notify.Fanout{
		notify.NewTelegramNotifier(log, api, cfg.Telegram.AdminID, app.Catalog, cfg.PaymentMethods),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		app.kafka = notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		notifiers = append(notifiers, notify.NewKafkaTracker(log, app.kafka))
		log.Info("order tracker enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	app.Orders = service.NewOrderService(log, orders, notifiers, app.Catalog, service.Options{
		AdminID: cfg.Telegram.AdminID,
		Methods: cfg.Methods(),
	})
	app.Reports = service.NewReportService(log, orders, app.Catalog, nil)
	app.Auth = service.NewAuthService(log, service.AdminCredentials{
		AdminID:      cfg.Telegram.AdminID,
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
		JWTSecret:    cfg.JWT.Secret,
	}, time.Duration(cfg.JWT.TokenTTL)*time.Minute)

	return app, nil
}

func (a *App) openStorage() (storage.OrderStorage, error) {
	if a.Config.Storage.Driver == config.StorageMemory {
		a.Logger.Warn("using in-memory storage, orders are lost on restart")
		return storage.NewMemoryStorage(), nil
	}

	db, err := sql.Open("postgres", a.Config.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	a.DB = db
	return storage.NewOrderRepository(db), nil
}

// Close освобождает внешние подключения; приём обновлений телеграма останавливает вызывающий
func (a *App) Close() error {
	var errs []error
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka writer: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
