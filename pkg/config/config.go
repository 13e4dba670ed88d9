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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	VNPay         VNPayConfig
	Booking       BookingConfig
	Identity      IdentityConfig
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
	Env          string `envconfig:"MOTOGO_APP_ENV" required:"true"`
	Port         string `envconfig:"MOTOGO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MOTOGO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOTOGO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MOTOGO_DB_DSN"`
	Driver string `envconfig:"MOTOGO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOTOGO_DB_HOST"`
	LegacyPort     int    `envconfig:"MOTOGO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOTOGO_DB_USER"`
	LegacyPassword string `envconfig:"MOTOGO_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOTOGO_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOTOGO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOTOGO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOTOGO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOTOGO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOTOGO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOTOGO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOTOGO_REDIS_ADDR"`
	Password     string        `envconfig:"MOTOGO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOTOGO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOTOGO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOTOGO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOTOGO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOTOGO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOTOGO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"MOTOGO_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"MOTOGO_JWT_ISSUER" default:"motogo-identity"`
}

type AuthRateLimitConfig struct {
	PublicWindow  time.Duration `envconfig:"MOTOGO_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicIPLimit int           `envconfig:"MOTOGO_RATE_LIMIT_PUBLIC_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MOTOGO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MOTOGO_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MOTOGO_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MOTOGO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MOTOGO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	IntentTopic        string `envconfig:"MOTOGO_PUBSUB_INTENT_TOPIC" default:"payment.intent.request"`
	IntentSubscription string `envconfig:"MOTOGO_PUBSUB_INTENT_SUBSCRIPTION" required:"true"`
	SucceededTopic     string `envconfig:"MOTOGO_PUBSUB_SUCCEEDED_TOPIC" default:"payment.succeeded"`
	EventsTopic        string `envconfig:"MOTOGO_PUBSUB_EVENTS_TOPIC" default:"payment.events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MOTOGO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOTOGO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOTOGO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type VNPayConfig struct {
	TmnCode    string `envconfig:"MOTOGO_VNPAY_TMN_CODE"`
	HashSecret string `envconfig:"MOTOGO_VNPAY_HASH_SECRET"`
	PayURL     string `envconfig:"MOTOGO_VNPAY_PAY_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `envconfig:"MOTOGO_VNPAY_RETURN_URL"`
}

type BookingConfig struct {
	BaseURL string        `envconfig:"MOTOGO_BOOKING_BASE_URL"`
	Timeout time.Duration `envconfig:"MOTOGO_BOOKING_TIMEOUT" default:"5s"`
}

type IdentityConfig struct {
	WhoamiURL      string        `envconfig:"MOTOGO_IDENTITY_WHOAMI_URL"`
	Timeout        time.Duration `envconfig:"MOTOGO_IDENTITY_TIMEOUT" default:"3s"`
	WhoamiCacheTTL time.Duration `envconfig:"MOTOGO_IDENTITY_WHOAMI_CACHE_TTL" default:"1m"`
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
