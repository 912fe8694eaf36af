package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Bot    BotConfig
	Access AccessConfig
	Store  StoreConfig
	Redis  RedisConfig
	Log    LogConfig
	Ops    OpsConfig

	location *time.Location
}

type BotConfig struct {
	Token       string        `envconfig:"BOT_TOKEN" required:"true"`
	AdminID     int64         `envconfig:"ADMIN_ID" required:"true"`
	PollTimeout time.Duration `envconfig:"BOT_POLL_TIMEOUT" default:"50s"`
}

type AccessConfig struct {
	PricePerSearch          int64  `envconfig:"PRICE_PER_SEARCH" default:"5"`
	FreeDailyLimit          int    `envconfig:"FREE_DAILY_LIMIT" default:"3"`
	FreeSpamCooldownSeconds int    `envconfig:"FREE_SPAM_COOLDOWN_SECONDS" default:"60"`
	Timezone                string `envconfig:"TIMEZONE" default:"UTC"`
	StoreMaxAttempts        int    `envconfig:"STORE_MAX_ATTEMPTS" default:"5"`
	LedgerWorkers           int    `envconfig:"LEDGER_WORKERS" default:"2"`
	LedgerQueueSize         int    `envconfig:"LEDGER_QUEUE_SIZE" default:"64"`
}

type StoreConfig struct {
	Driver       string        `envconfig:"STORE_DRIVER" default:"postgres"`
	DSN          string        `envconfig:"POSTGRES_DSN"`
	Host         string        `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port         string        `envconfig:"POSTGRES_PORT" default:"5432"`
	Name         string        `envconfig:"POSTGRES_DB" default:"search_bot"`
	User         string        `envconfig:"POSTGRES_USER" default:"search_bot"`
	Password     string        `envconfig:"POSTGRES_PASSWORD"`
	QueryTimeout time.Duration `envconfig:"POSTGRES_QUERY_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Prefix   string `envconfig:"REDIS_PREFIX" default:"search_bot"`
	TTLHours int    `envconfig:"REDIS_PREFS_TTL_HOURS" default:"720"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type OpsConfig struct {
	Addr string `envconfig:"OPS_ADDR" default:":9090"`
}

// Load reads envFile (missing is fine; real environment wins) and decodes the environment.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Access.PricePerSearch <= 0 {
		return errors.New("PRICE_PER_SEARCH must be positive")
	}
	if c.Access.FreeDailyLimit < 0 {
		return errors.New("FREE_DAILY_LIMIT must not be negative")
	}
	if c.Access.FreeSpamCooldownSeconds < 0 {
		return errors.New("FREE_SPAM_COOLDOWN_SECONDS must not be negative")
	}
	if c.Access.StoreMaxAttempts < 1 {
		return errors.New("STORE_MAX_ATTEMPTS must be at least 1")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Access.Timezone))
	if err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// Location is the calendar used for "today" in statistics.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// PostgresDSN returns POSTGRES_DSN or one assembled from the discrete settings.
func (s StoreConfig) PostgresDSN() string {
	if dsn := strings.TrimSpace(s.DSN); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     s.Host + ":" + s.Port,
		Path:     "/" + s.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}
