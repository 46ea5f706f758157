package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "KITCHENSTOCK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "KITCHENSTOCK_APP_ENV"
	EnvPort        = "KITCHENSTOCK_APP_PORT"
	EnvDBDSN       = "KITCHENSTOCK_DB_DSN"
	EnvDBHost      = "KITCHENSTOCK_DB_HOST"
	EnvDBUser      = "KITCHENSTOCK_DB_USER"
	EnvDBName      = "KITCHENSTOCK_DB_NAME"
	EnvRedisURL    = "KITCHENSTOCK_REDIS_URL"
	EnvTxMode      = "KITCHENSTOCK_INVENTORY_TX_MODE"
	EnvLowStockPct = "KITCHENSTOCK_INVENTORY_LOW_STOCK_RATIO"
	EnvTimezone    = "KITCHENSTOCK_INVENTORY_TIMEZONE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Transaction modes for stock batches.
const (
	TxModeAuto     = "auto"
	TxModeRequired = "required"
	TxModeDisabled = "disabled"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Cron         CronConfig
	Notifier     NotifierConfig
	Tracing      TracingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Inventory.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Tracing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"KITCHENSTOCK_APP_ENV" required:"true"`
	Port         string   `envconfig:"KITCHENSTOCK_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"KITCHENSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"KITCHENSTOCK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"KITCHENSTOCK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KITCHENSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KITCHENSTOCK_DB_DSN"`
	Driver string `envconfig:"KITCHENSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KITCHENSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"KITCHENSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KITCHENSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"KITCHENSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"KITCHENSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"KITCHENSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KITCHENSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KITCHENSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KITCHENSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KITCHENSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KITCHENSTOCK_REDIS_URL"`
	Address      string        `envconfig:"KITCHENSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"KITCHENSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"KITCHENSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KITCHENSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KITCHENSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KITCHENSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KITCHENSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KITCHENSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether enough settings exist to dial redis.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KITCHENSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KITCHENSTOCK_AUTO_MIGRATE" default:"false"`
}

// InventoryConfig tunes the stock engine. LowStockRatio is the fraction of the
// effective threshold under which an ingredient counts as low.
type InventoryConfig struct {
	LowStockRatio        float64 `envconfig:"KITCHENSTOCK_INVENTORY_LOW_STOCK_RATIO" default:"0.1"`
	TransactionMode      string  `envconfig:"KITCHENSTOCK_INVENTORY_TX_MODE" default:"auto"`
	ReopenResolvedAlerts bool    `envconfig:"KITCHENSTOCK_INVENTORY_REOPEN_RESOLVED_ALERTS" default:"false"`
	Timezone             string  `envconfig:"KITCHENSTOCK_INVENTORY_TIMEZONE" default:"UTC"`
}

// Location resolves the business-day timezone used for receiving.
func (i InventoryConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(i.Timezone) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", i.Timezone, err)
	}
	return loc, nil
}

func (i *InventoryConfig) validate() error {
	mode := strings.ToLower(strings.TrimSpace(i.TransactionMode))
	if mode == "" {
		mode = TxModeAuto
	}
	switch mode {
	case TxModeAuto, TxModeRequired, TxModeDisabled:
		i.TransactionMode = mode
	default:
		return fmt.Errorf("%s must be one of auto, required, disabled (got %q)", EnvTxMode, i.TransactionMode)
	}
	if i.LowStockRatio <= 0 || i.LowStockRatio >= 1 {
		return fmt.Errorf("%s must be between 0 and 1 (got %v)", EnvLowStockPct, i.LowStockRatio)
	}
	if _, err := i.Location(); err != nil {
		return err
	}
	return nil
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"KITCHENSTOCK_CRON_INTERVAL" default:"15m"`
	LockTTL    time.Duration `envconfig:"KITCHENSTOCK_CRON_LOCK_TTL" default:"10m"`
	JobTimeout time.Duration `envconfig:"KITCHENSTOCK_CRON_JOB_TIMEOUT" default:"5m"`
}

type NotifierConfig struct {
	Enabled bool   `envconfig:"KITCHENSTOCK_NOTIFIER_ENABLED" default:"false"`
	Channel string `envconfig:"KITCHENSTOCK_NOTIFIER_CHANNEL" default:"kitchen-events"`
}

// Span exporters.
const (
	TracingExporterNone   = "none"
	TracingExporterStdout = "stdout"
	TracingExporterOTLP   = "otlp"
)

type TracingConfig struct {
	Exporter     string  `envconfig:"KITCHENSTOCK_TRACING_EXPORTER" default:"none"`
	OTLPEndpoint string  `envconfig:"KITCHENSTOCK_TRACING_OTLP_ENDPOINT" default:"localhost:4318"`
	OTLPInsecure bool    `envconfig:"KITCHENSTOCK_TRACING_OTLP_INSECURE" default:"true"`
	SampleRatio  float64 `envconfig:"KITCHENSTOCK_TRACING_SAMPLE_RATIO" default:"1"`
}

func (t TracingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(t.Exporter)) {
	case "", TracingExporterNone, TracingExporterStdout, TracingExporterOTLP:
	default:
		return fmt.Errorf("KITCHENSTOCK_TRACING_EXPORTER must be one of none, stdout, otlp (got %q)", t.Exporter)
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("KITCHENSTOCK_TRACING_SAMPLE_RATIO must be between 0 and 1 (got %v)", t.SampleRatio)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
	}
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:kitchenstock.db?cache=shared"
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
