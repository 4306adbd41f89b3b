package config

// EnvPrefix is passed to envconfig; tags carry the full SPIRAL_ names so the
// prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names shared between Load, the migrate CLI and tests.
const (
	EnvAppEnv    = "SPIRAL_APP_ENV"
	EnvPort      = "SPIRAL_APP_PORT"
	EnvDBDSN     = "SPIRAL_DB_DSN"
	EnvDBHost    = "SPIRAL_DB_HOST"
	EnvDBUser    = "SPIRAL_DB_USER"
	EnvDBName    = "SPIRAL_DB_NAME"
	EnvRedisURL  = "SPIRAL_REDIS_URL"
	EnvJWTSecret = "SPIRAL_JWT_SECRET"
	EnvJWTIssuer = "SPIRAL_JWT_ISSUER"
	EnvJWTExpMin = "SPIRAL_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID      = "SPIRAL_GCP_PROJECT_ID"
	EnvPubSubOrdersSub   = "SPIRAL_PUBSUB_ORDER_EVENTS_SUBSCRIPTION"
	EnvPubSubOrdersTopic = "SPIRAL_PUBSUB_ORDER_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
