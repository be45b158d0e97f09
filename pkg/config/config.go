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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Realtime     RealtimeConfig
	Audit        AuditConfig
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
	Env          string `envconfig:"ROSTERHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"ROSTERHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ROSTERHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ROSTERHUB_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ROSTERHUB_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ROSTERHUB_DB_DSN"`
	Driver string `envconfig:"ROSTERHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ROSTERHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"ROSTERHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ROSTERHUB_DB_USER"`
	LegacyPassword string `envconfig:"ROSTERHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"ROSTERHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"ROSTERHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ROSTERHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROSTERHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROSTERHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROSTERHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ROSTERHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ROSTERHUB_REDIS_ADDR"`
	Password     string        `envconfig:"ROSTERHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROSTERHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROSTERHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROSTERHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROSTERHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROSTERHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROSTERHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies identity tokens minted by the external identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"ROSTERHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ROSTERHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ROSTERHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ROSTERHUB_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"ROSTERHUB_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ROSTERHUB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainSubscription string `envconfig:"ROSTERHUB_PUBSUB_DOMAIN_SUBSCRIPTION" default:"rh-domain-events-worker"`
}

type RealtimeConfig struct {
	PingInterval time.Duration `envconfig:"ROSTERHUB_REALTIME_PING_INTERVAL" default:"30s"`
	SendBuffer   int           `envconfig:"ROSTERHUB_REALTIME_SEND_BUFFER" default:"32"`
}

// AuditConfig maps tracked entity types to the tables that own their rows.
type AuditConfig struct {
	EntityTables map[string]string `envconfig:"ROSTERHUB_AUDIT_ENTITY_TABLES" default:"player:players,team:teams,profile:profiles"`
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
