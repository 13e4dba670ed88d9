package config

// EnvPrefix is passed to envconfig; individual fields carry full names so the
// prefix stays empty and variables remain grep-able.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "MOTOGO_APP_ENV"
	EnvPort     = "MOTOGO_APP_PORT"
	EnvDBDSN    = "MOTOGO_DB_DSN"
	EnvDBHost   = "MOTOGO_DB_HOST"
	EnvDBUser   = "MOTOGO_DB_USER"
	EnvDBName   = "MOTOGO_DB_NAME"
	EnvRedisURL = "MOTOGO_REDIS_URL"

	EnvJWTSecret = "MOTOGO_JWT_SECRET"

	EnvGCPProjectID = "MOTOGO_GCP_PROJECT_ID"

	EnvPubSubIntentTopic = "MOTOGO_PUBSUB_INTENT_TOPIC"
	EnvPubSubIntentSub   = "MOTOGO_PUBSUB_INTENT_SUBSCRIPTION"
	EnvPubSubSucceeded   = "MOTOGO_PUBSUB_SUCCEEDED_TOPIC"

	EnvVNPayTmnCode    = "MOTOGO_VNPAY_TMN_CODE"
	EnvVNPayHashSecret = "MOTOGO_VNPAY_HASH_SECRET"
	EnvVNPayReturnURL  = "MOTOGO_VNPAY_RETURN_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
