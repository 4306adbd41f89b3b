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
	Rewards      RewardsConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"SPIRAL_APP_ENV" required:"true"`
	Port         string `envconfig:"SPIRAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SPIRAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPIRAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SPIRAL_DB_DSN"`
	Driver string `envconfig:"SPIRAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPIRAL_DB_HOST"`
	LegacyPort     int    `envconfig:"SPIRAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPIRAL_DB_USER"`
	LegacyPassword string `envconfig:"SPIRAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPIRAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPIRAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPIRAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPIRAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPIRAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPIRAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPIRAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPIRAL_REDIS_ADDR"`
	Password     string        `envconfig:"SPIRAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPIRAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPIRAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPIRAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPIRAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPIRAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPIRAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SPIRAL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SPIRAL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SPIRAL_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RewardsConfig holds the earning rules. Rates are points per whole dollar
// spent; bonuses are flat point amounts.
type RewardsConfig struct {
	OnlinePointsPerDollar  int64 `envconfig:"SPIRAL_REWARDS_ONLINE_RATE" default:"5"`
	InstorePointsPerDollar int64 `envconfig:"SPIRAL_REWARDS_INSTORE_RATE" default:"10"`
	ReferralBonus          int64 `envconfig:"SPIRAL_REWARDS_REFERRAL_BONUS" default:"50"`
	ShareBonus             int64 `envconfig:"SPIRAL_REWARDS_SHARE_BONUS" default:"5"`
	ShareDailyCap          int   `envconfig:"SPIRAL_REWARDS_SHARE_DAILY_CAP" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SPIRAL_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SPIRAL_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SPIRAL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SPIRAL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrderEventsTopic        string `envconfig:"SPIRAL_PUBSUB_ORDER_EVENTS_TOPIC"`
	OrderEventsSubscription string `envconfig:"SPIRAL_PUBSUB_ORDER_EVENTS_SUBSCRIPTION"`
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
