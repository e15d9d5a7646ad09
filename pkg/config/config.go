package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const minProdJWTSecretLen = 32

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Import       ImportConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.App.IsProd() && len(cfg.JWT.Secret) < minProdJWTSecretLen {
		return nil, fmt.Errorf("%s must be at least %d bytes in %s", EnvJWTSecret, minProdJWTSecretLen, AppEnvProd)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRICELIST_APP_ENV" required:"true"`
	Port         string `envconfig:"PRICELIST_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PRICELIST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRICELIST_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"PRICELIST_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRICELIST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRICELIST_DB_DSN"`
	Driver string `envconfig:"PRICELIST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRICELIST_DB_HOST"`
	LegacyPort     int    `envconfig:"PRICELIST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRICELIST_DB_USER"`
	LegacyPassword string `envconfig:"PRICELIST_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRICELIST_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRICELIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRICELIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRICELIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRICELIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRICELIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PRICELIST_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRICELIST_REDIS_URL"`
	Address      string        `envconfig:"PRICELIST_REDIS_ADDR"`
	Password     string        `envconfig:"PRICELIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRICELIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRICELIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRICELIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRICELIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRICELIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRICELIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PRICELIST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRICELIST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRICELIST_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRICELIST_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRICELIST_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PRICELIST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRICELIST_GOOGLE_APPLICATION_CREDENTIALS"`
}

// PubSubConfig names the topics used to queue import jobs and announce their completion.
// An empty project id disables Pub/Sub and jobs are driven through the advance endpoint.
type PubSubConfig struct {
	ImportTopic        string `envconfig:"PRICELIST_PUBSUB_IMPORT_TOPIC" default:"pricelist-import-jobs"`
	ImportSubscription string `envconfig:"PRICELIST_PUBSUB_IMPORT_SUBSCRIPTION" default:"pricelist-import-jobs-worker"`
	EventsTopic        string `envconfig:"PRICELIST_PUBSUB_EVENTS_TOPIC" default:"pricelist-events"`
}

type ImportConfig struct {
	BatchSize   int           `envconfig:"PRICELIST_IMPORT_BATCH_SIZE" default:"25"`
	UploadDir   string        `envconfig:"PRICELIST_IMPORT_UPLOAD_DIR" default:"var/imports"`
	MaxUploadMB int           `envconfig:"PRICELIST_IMPORT_MAX_UPLOAD_MB" default:"20"`
	JobTTL      time.Duration `envconfig:"PRICELIST_IMPORT_JOB_TTL" default:"168h"`
	LockTTL     time.Duration `envconfig:"PRICELIST_IMPORT_LOCK_TTL" default:"5m"`
}

// MaxUploadBytes converts the configured upload ceiling to bytes.
func (i ImportConfig) MaxUploadBytes() int64 {
	if i.MaxUploadMB <= 0 {
		return 0
	}
	return int64(i.MaxUploadMB) << 20
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"PRICELIST_CRON_INTERVAL" default:"1h"`
	StaleUploadsAge time.Duration `envconfig:"PRICELIST_CRON_STALE_UPLOADS_AGE" default:"168h"`
	JobTimeout      time.Duration `envconfig:"PRICELIST_CRON_JOB_TIMEOUT" default:"10m"`
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
