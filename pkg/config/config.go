package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stock         StockConfig
	Scan          ScanConfig
	Reconcile     ReconcileConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
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
	Env          string   `envconfig:"SMARTINV_APP_ENV" required:"true"`
	Port         string   `envconfig:"SMARTINV_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SMARTINV_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SMARTINV_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SMARTINV_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SMARTINV_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SMARTINV_DB_DSN"`
	Driver string `envconfig:"SMARTINV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SMARTINV_DB_HOST"`
	LegacyPort     int    `envconfig:"SMARTINV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SMARTINV_DB_USER"`
	LegacyPassword string `envconfig:"SMARTINV_DB_PASSWORD"`
	LegacyName     string `envconfig:"SMARTINV_DB_NAME"`
	LegacySSLMode  string `envconfig:"SMARTINV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMARTINV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTINV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTINV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTINV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMARTINV_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SMARTINV_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTINV_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTINV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTINV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTINV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTINV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTINV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTINV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SMARTINV_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SMARTINV_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SMARTINV_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SMARTINV_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SMARTINV_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SMARTINV_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SMARTINV_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SMARTINV_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SMARTINV_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SMARTINV_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"SMARTINV_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"SMARTINV_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SMARTINV_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SMARTINV_AUTO_MIGRATE" default:"false"`
}

// StockConfig tunes ledger behavior.
type StockConfig struct {
	// AllowNegative permits SALE/TRANSFER_OUT movements to drive on-hand
	// below zero.
	AllowNegative bool `envconfig:"SMARTINV_STOCK_ALLOW_NEGATIVE" default:"false"`
	// ReorderStrategy is either "fixed_lot" (suggest the product's reorder
	// quantity) or "top_up" (suggest reorderPoint - onHand).
	ReorderStrategy string `envconfig:"SMARTINV_STOCK_REORDER_STRATEGY" default:"fixed_lot"`
}

// ScanConfig tunes the barcode scan ingestor.
type ScanConfig struct {
	DebounceWindow time.Duration `envconfig:"SMARTINV_SCAN_DEBOUNCE_WINDOW" default:"100ms"`
	SessionTTL     time.Duration `envconfig:"SMARTINV_SCAN_SESSION_TTL" default:"30m"`
}

// ReconcileConfig tunes the consistency cron jobs.
type ReconcileConfig struct {
	TransferGrace    time.Duration `envconfig:"SMARTINV_RECONCILE_TRANSFER_GRACE" default:"15m"`
	VerifySampleSize int           `envconfig:"SMARTINV_RECONCILE_VERIFY_SAMPLE_SIZE" default:"100"`
	Interval         time.Duration `envconfig:"SMARTINV_RECONCILE_INTERVAL" default:"10m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SMARTINV_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SMARTINV_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SMARTINV_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	MovementsTopic        string `envconfig:"SMARTINV_PUBSUB_MOVEMENTS_TOPIC" required:"true"`
	MovementsSubscription string `envconfig:"SMARTINV_PUBSUB_MOVEMENTS_SUBSCRIPTION" required:"true"`
	OrdersTopic           string `envconfig:"SMARTINV_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription    string `envconfig:"SMARTINV_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	AlertsTopic           string `envconfig:"SMARTINV_PUBSUB_ALERTS_TOPIC" default:"si-alert-events"`
	AlertsSubscription    string `envconfig:"SMARTINV_PUBSUB_ALERTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"SMARTINV_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"SMARTINV_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"SMARTINV_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"SMARTINV_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
}

// BigQueryConfig names the analytics dataset and its destination tables.
type BigQueryConfig struct {
	Dataset             string `envconfig:"SMARTINV_BQ_DATASET" default:"inventory_analytics"`
	MovementEventsTable string `envconfig:"SMARTINV_BQ_MOVEMENT_EVENTS_TABLE" default:"movement_events"`
	OrderEventsTable    string `envconfig:"SMARTINV_BQ_ORDER_EVENTS_TABLE" default:"order_events"`
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
