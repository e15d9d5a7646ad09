package config

// EnvPrefix is the envconfig prefix; every field carries its full key in the tag.
const EnvPrefix = "PRICELIST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "PRICELIST_APP_ENV"
	EnvPort         = "PRICELIST_APP_PORT"
	EnvLogLevel     = "PRICELIST_LOG_LEVEL"
	EnvLogWarnStack = "PRICELIST_LOG_WARN_STACK"
	EnvServiceKind  = "PRICELIST_SERVICE_KIND"

	EnvDBDSN      = "PRICELIST_DB_DSN"
	EnvDBHost     = "PRICELIST_DB_HOST"
	EnvDBPort     = "PRICELIST_DB_PORT"
	EnvDBUser     = "PRICELIST_DB_USER"
	EnvDBPassword = "PRICELIST_DB_PASSWORD"
	EnvDBName     = "PRICELIST_DB_NAME"
	EnvDBSSLMode  = "PRICELIST_DB_SSLMODE"

	EnvRedisURL  = "PRICELIST_REDIS_URL"
	EnvRedisAddr = "PRICELIST_REDIS_ADDR"

	EnvJWTSecret  = "PRICELIST_JWT_SECRET"
	EnvJWTIssuer  = "PRICELIST_JWT_ISSUER"
	EnvJWTExpMins = "PRICELIST_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "PRICELIST_GCP_PROJECT_ID"

	EnvPubSubImportTopic        = "PRICELIST_PUBSUB_IMPORT_TOPIC"
	EnvPubSubImportSubscription = "PRICELIST_PUBSUB_IMPORT_SUBSCRIPTION"
	EnvPubSubEventsTopic        = "PRICELIST_PUBSUB_EVENTS_TOPIC"

	EnvImportBatchSize = "PRICELIST_IMPORT_BATCH_SIZE"
	EnvImportUploadDir = "PRICELIST_IMPORT_UPLOAD_DIR"
	EnvImportJobTTL    = "PRICELIST_IMPORT_JOB_TTL"

	EnvAutoMigrate = "PRICELIST_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
