package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	Cron         CronConfig
	Events       EventsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPKIT_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPKIT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPKIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPKIT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPKIT_DB_DSN"`
	Driver string `envconfig:"SHOPKIT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPKIT_DB_HOST"`
	Port     int    `envconfig:"SHOPKIT_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPKIT_DB_USER"`
	Password string `envconfig:"SHOPKIT_DB_PASSWORD"`
	Name     string `envconfig:"SHOPKIT_DB_NAME"`
	SSLMode  string `envconfig:"SHOPKIT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPKIT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPKIT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPKIT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPKIT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN builds a DSN from the discrete fields when one is not provided.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}
	userInfo := url.User(d.User)
	if d.Password != "" {
		userInfo = url.UserPassword(d.User, d.Password)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL      string `envconfig:"SHOPKIT_REDIS_URL"`
	Address  string `envconfig:"SHOPKIT_REDIS_ADDRESS"`
	Password string `envconfig:"SHOPKIT_REDIS_PASSWORD"`
	DB       int    `envconfig:"SHOPKIT_REDIS_DB" default:"0"`

	PoolSize     int           `envconfig:"SHOPKIT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPKIT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPKIT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPKIT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"SHOPKIT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPKIT_JWT_SECRET"`
	Issuer            string `envconfig:"SHOPKIT_JWT_ISSUER" default:"shopkit"`
	ExpirationMinutes int    `envconfig:"SHOPKIT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CartConfig struct {
	// GuestTTL bounds both the guest cart expiry and the guest token cookie.
	GuestTTL          time.Duration `envconfig:"SHOPKIT_CART_GUEST_TTL" default:"168h"`
	LowStockThreshold int           `envconfig:"SHOPKIT_CART_LOW_STOCK_THRESHOLD" default:"5"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SHOPKIT_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"SHOPKIT_CRON_LOCK_KEY" default:"shopkit:cron:lock"`
	LockTTL  time.Duration `envconfig:"SHOPKIT_CRON_LOCK_TTL" default:"50m"`
}

type EventsConfig struct {
	Enabled   bool   `envconfig:"SHOPKIT_EVENTS_ENABLED" default:"false"`
	ProjectID string `envconfig:"SHOPKIT_EVENTS_PROJECT_ID"`
	CartTopic string `envconfig:"SHOPKIT_EVENTS_CART_TOPIC" default:"cart-events"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPKIT_FEATURE_AUTO_MIGRATE" default:"false"`
}
