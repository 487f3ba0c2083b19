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

	EnvDBDSN  = "DISPATCH_DB_DSN"
	EnvDBHost = "DISPATCH_DB_HOST"
	EnvDBUser = "DISPATCH_DB_USER"
	EnvDBName = "DISPATCH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Assignment   AssignmentConfig
	Notify       NotifyConfig
	RateLimit    RateLimitConfig
	TextGen      TextGenConfig
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
	Env          string `envconfig:"DISPATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"DISPATCH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DISPATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISPATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DISPATCH_DB_DSN"`
	Driver string `envconfig:"DISPATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISPATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"DISPATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISPATCH_DB_USER"`
	LegacyPassword string `envconfig:"DISPATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISPATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISPATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISPATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISPATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISPATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISPATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISPATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISPATCH_REDIS_ADDR"`
	Password     string        `envconfig:"DISPATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISPATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISPATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISPATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISPATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISPATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISPATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"DISPATCH_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"DISPATCH_PUBSUB_NOTIFICATION_TOPIC" default:"dispatch-notification-events"`
	NotificationSubscription string `envconfig:"DISPATCH_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"dispatch-notification-events-sub"`
}

// AssignmentConfig carries the engine defaults. They are captured onto each
// work item at creation time, so changing them does not disturb items already
// in flight.
type AssignmentConfig struct {
	OfferTimeout  time.Duration `envconfig:"DISPATCH_OFFER_TIMEOUT" default:"15s"`
	MaxAttempts   int           `envconfig:"DISPATCH_MAX_ATTEMPTS" default:"5"`
	CandidatePool []string      `envconfig:"DISPATCH_CANDIDATE_POOL"`
	StoreRetries  int           `envconfig:"DISPATCH_STORE_RETRIES" default:"3"`
}

type NotifyConfig struct {
	Enabled bool `envconfig:"DISPATCH_NOTIFY_ENABLED" default:"true"`
	// MinReassignments is the reassignment count at which customer-facing
	// messages start. The default skips the first reassignment.
	MinReassignments int           `envconfig:"DISPATCH_NOTIFY_MIN_REASSIGNMENTS" default:"2"`
	PerItemCap       int           `envconfig:"DISPATCH_NOTIFY_PER_ITEM_CAP" default:"3"`
	QueueSize        int           `envconfig:"DISPATCH_NOTIFY_QUEUE_SIZE" default:"64"`
	Workers          int           `envconfig:"DISPATCH_NOTIFY_WORKERS" default:"4"`
	RenderTimeout    time.Duration `envconfig:"DISPATCH_NOTIFY_RENDER_TIMEOUT" default:"5s"`
	CounterTTL       time.Duration `envconfig:"DISPATCH_NOTIFY_COUNTER_TTL" default:"24h"`
}

type RateLimitConfig struct {
	WorkItemsWindow time.Duration `envconfig:"DISPATCH_RATE_LIMIT_WORK_ITEMS_WINDOW" default:"1m"`
	WorkItemsLimit  int           `envconfig:"DISPATCH_RATE_LIMIT_WORK_ITEMS_LIMIT" default:"60"`
	ResponsesWindow time.Duration `envconfig:"DISPATCH_RATE_LIMIT_RESPONSES_WINDOW" default:"1m"`
	ResponsesLimit  int           `envconfig:"DISPATCH_RATE_LIMIT_RESPONSES_LIMIT" default:"240"`
}

type TextGenConfig struct {
	APIKey  string        `envconfig:"DISPATCH_TEXTGEN_API_KEY"`
	BaseURL string        `envconfig:"DISPATCH_TEXTGEN_BASE_URL" default:"https://api.openai.com/v1"`
	Model   string        `envconfig:"DISPATCH_TEXTGEN_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"DISPATCH_TEXTGEN_TIMEOUT" default:"8s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DISPATCH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DISPATCH_AUTO_MIGRATE" default:"false"`
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
