package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	MercadoPago  MercadoPagoConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
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
	Env          string `envconfig:"BELORI_APP_ENV" required:"true"`
	Port         string `envconfig:"BELORI_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"BELORI_APP_BASE_URL" required:"true"`
	LogLevel     string `envconfig:"BELORI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BELORI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BELORI_DB_DSN"`
	Driver string `envconfig:"BELORI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BELORI_DB_HOST"`
	LegacyPort     int    `envconfig:"BELORI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BELORI_DB_USER"`
	LegacyPassword string `envconfig:"BELORI_DB_PASSWORD"`
	LegacyName     string `envconfig:"BELORI_DB_NAME"`
	LegacySSLMode  string `envconfig:"BELORI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BELORI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BELORI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BELORI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BELORI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BELORI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BELORI_REDIS_ADDR"`
	Password     string        `envconfig:"BELORI_REDIS_PASSWORD"`
	DB           int           `envconfig:"BELORI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BELORI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BELORI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BELORI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BELORI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BELORI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BELORI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BELORI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BELORI_JWT_EXPIRATION_MINUTES" default:"480"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BELORI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BELORI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BELORI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BELORI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BELORI_ARGON_KEY_LEN" default:"32"`
}

type MercadoPagoConfig struct {
	AccessToken         string        `envconfig:"BELORI_MERCADOPAGO_ACCESS_TOKEN"`
	BaseURL             string        `envconfig:"BELORI_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	NotificationURL     string        `envconfig:"BELORI_MERCADOPAGO_NOTIFICATION_URL" required:"true"`
	StatementDescriptor string        `envconfig:"BELORI_MERCADOPAGO_STATEMENT_DESCRIPTOR" default:"BELORI"`
	RequestTimeout      time.Duration `envconfig:"BELORI_MERCADOPAGO_REQUEST_TIMEOUT" default:"10s"`
	RetryAttempts       int           `envconfig:"BELORI_MERCADOPAGO_RETRY_ATTEMPTS" default:"3"`
}

type CheckoutConfig struct {
	OrderNumberAttempts int           `envconfig:"BELORI_CHECKOUT_ORDER_NUMBER_ATTEMPTS" default:"5"`
	PendingOrderTTL     time.Duration `envconfig:"BELORI_CHECKOUT_PENDING_ORDER_TTL" default:"72h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BELORI_CRON_INTERVAL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BELORI_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
