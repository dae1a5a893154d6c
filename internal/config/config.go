package config

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Env            string                  `yaml:"env" env:"APP_ENV" env-default:"local"` // local, dev, prod
	LogLevel       string                  `yaml:"log_level" env:"LOG_LEVEL"`             // debug, info, warn, error; пусто - по окружению
	HTTPServer     HTTPServerConfig        `yaml:"http_server"`
	Storage        StorageConfig           `yaml:"storage"`
	Database       DatabaseConfig          `yaml:"database"`
	JWT            JWTConfig               `yaml:"jwt"`
	Telegram       TelegramConfig          `yaml:"telegram"`
	Admin          AdminConfig             `yaml:"admin"`
	Kafka          KafkaConfig             `yaml:"kafka"`
	PaymentMethods []models.PaymentAccount `yaml:"payment_methods"`
	Migrations     MigrationsConfig        `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// StorageConfig где хранятся заказы
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Name     string `yaml:"name"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"` // минуты
}

// TelegramConfig настройка бота
type TelegramConfig struct {
	Token       string `yaml:"-" env:"TELEGRAM_TOKEN" env-required:"true"`
	AdminID     int64  `yaml:"admin_id" env:"TELEGRAM_ADMIN_ID" env-required:"true"`
	PollTimeout int    `yaml:"poll_timeout" env-default:"60"` // секунды long polling
	Debug       bool   `yaml:"debug"`
}

// AdminConfig вход админа в HTTP API
type AdminConfig struct {
	Username     string `yaml:"username" env-default:"admin"`
	PasswordHash string `yaml:"-" env:"ADMIN_PASSWORD_HASH"` // bcrypt
}

// KafkaConfig трекер событий заказов; без брокеров выключен
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env-default:"order_events"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// DefaultPaymentMethods способы оплаты, если в конфиге не задано иное
func DefaultPaymentMethods() []models.PaymentAccount {
	return []models.PaymentAccount{
		{Method: "cbe", Title: "CBE (Commercial Bank of Ethiopia)"},
		{Method: "telebirr", Title: "Telebirr"},
	}
}

// Methods коды настроенных способов оплаты
func (c *Config) Methods() []models.PaymentMethod {
	res := make([]models.PaymentMethod, 0, len(c.PaymentMethods))
	for _, pm := range c.PaymentMethods {
		res = append(res, pm.Method)
	}
	return res
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	cfg, err := LoadByPath(configPath)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadByPath читает YAML, накладывает переменные окружения и проверяет значения
func LoadByPath(configPath string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if len(cfg.PaymentMethods) == 0 {
		cfg.PaymentMethods = DefaultPaymentMethods()
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("invalid log level %q", c.LogLevel)
		}
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.User == "" || c.Database.Name == "" || c.Database.Password == "" {
			return fmt.Errorf("postgres storage requires database credentials")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	seen := make(map[models.PaymentMethod]bool, len(c.PaymentMethods))
	for _, pm := range c.PaymentMethods {
		if pm.Method == "" {
			return fmt.Errorf("payment method without code")
		}
		if seen[pm.Method] {
			return fmt.Errorf("duplicate payment method %q", pm.Method)
		}
		seen[pm.Method] = true
	}
	return nil
}
