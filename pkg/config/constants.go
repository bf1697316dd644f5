package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so the
// prefix only matters for fields without a tag.
const EnvPrefix = "SHOPMESH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "SHOPMESH_APP_ENV"
	EnvPort     = "SHOPMESH_APP_PORT"
	EnvDBDSN    = "SHOPMESH_DB_DSN"
	EnvDBHost   = "SHOPMESH_DB_HOST"
	EnvDBUser   = "SHOPMESH_DB_USER"
	EnvDBName   = "SHOPMESH_DB_NAME"
	EnvRedisURL = "SHOPMESH_REDIS_URL"

	EnvJWTSecret  = "SHOPMESH_JWT_SECRET"
	EnvJWTIssuer  = "SHOPMESH_JWT_ISSUER"
	EnvJWTExpMins = "SHOPMESH_JWT_EXPIRATION_MINUTES"

	EnvRabbitURL = "SHOPMESH_RABBITMQ_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
