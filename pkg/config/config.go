package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	CMS          CMSConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if cfg.Cart.UsesSQL() || cfg.FeatureFlags.AutoMigrate {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`
	// Driver selects the GORM dialector: postgres or sqlite.
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite dialector is configured.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CartConfig tunes the cart engine and its persistence.
type CartConfig struct {
	Storage         string        `envconfig:"STOREFRONT_CART_STORAGE" default:"redis"`
	Namespace       string        `envconfig:"STOREFRONT_CART_NAMESPACE" default:"cart-storage"`
	StateTTL        time.Duration `envconfig:"STOREFRONT_CART_STATE_TTL" default:"720h"`
	PersistTimeout  time.Duration `envconfig:"STOREFRONT_CART_PERSIST_TIMEOUT" default:"2s"`
	DiscountTimeout time.Duration `envconfig:"STOREFRONT_CART_DISCOUNT_TIMEOUT" default:"5s"`
	TaxTimeout      time.Duration `envconfig:"STOREFRONT_CART_TAX_TIMEOUT" default:"5s"`
	SessionIdleTTL  time.Duration `envconfig:"STOREFRONT_CART_SESSION_IDLE_TTL" default:"30m"`
	SweepInterval   time.Duration `envconfig:"STOREFRONT_CART_SWEEP_INTERVAL" default:"5m"`
	Currency        string        `envconfig:"STOREFRONT_CART_CURRENCY" default:"USD"`
}

// UsesSQL reports whether cart state lives in the SQL backend.
func (c CartConfig) UsesSQL() bool {
	return strings.EqualFold(strings.TrimSpace(c.Storage), CartStorageSQL)
}

// CurrencyCode parses the configured draft currency.
func (c CartConfig) CurrencyCode() (enums.Currency, error) {
	return enums.ParseCurrency(strings.ToUpper(strings.TrimSpace(c.Currency)))
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case CartStorageRedis, CartStorageSQL:
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvCartStorage, CartStorageRedis, CartStorageSQL)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("%s cannot be empty", EnvCartNamespace)
	}
	if _, err := c.CurrencyCode(); err != nil {
		return fmt.Errorf("%s: %w", EnvCartCurrency, err)
	}
	return nil
}

// CMSConfig points at the hosted headless CMS that validates discounts and
// serves tax settings.
type CMSConfig struct {
	BaseURL             string        `envconfig:"STOREFRONT_CMS_BASE_URL" required:"true"`
	APIToken            string        `envconfig:"STOREFRONT_CMS_API_TOKEN"`
	HTTPTimeout         time.Duration `envconfig:"STOREFRONT_CMS_HTTP_TIMEOUT" default:"10s"`
	TaxSettingsCacheTTL time.Duration `envconfig:"STOREFRONT_CMS_TAX_CACHE_TTL" default:"5m"`
	BreakerMaxFailures  uint32        `envconfig:"STOREFRONT_CMS_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout  time.Duration `envconfig:"STOREFRONT_CMS_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

type RateLimitConfig struct {
	DiscountWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_DISCOUNT_WINDOW" default:"1m"`
	DiscountLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_DISCOUNT_LIMIT" default:"10"`
	// DiscountIPLimit caps attempts per client IP across sessions.
	DiscountIPLimit int `envconfig:"STOREFRONT_RATE_LIMIT_DISCOUNT_IP_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// EnsureDSN builds the DSN from component variables when it is not set directly.
func (db *DBConfig) EnsureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range componentDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
