package config

// EnvPrefix is the envconfig prefix shared by every Quorum setting.
const EnvPrefix = "QUORUM"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical environment variable names, kept in one place so tests and
// deploy manifests reference the same strings.
const (
	EnvAppEnv     = "QUORUM_APP_ENV"
	EnvPort       = "QUORUM_APP_PORT"
	EnvDBDSN      = "QUORUM_DB_DSN"
	EnvDBHost     = "QUORUM_DB_HOST"
	EnvDBUser     = "QUORUM_DB_USER"
	EnvDBName     = "QUORUM_DB_NAME"
	EnvRedisURL   = "QUORUM_REDIS_URL"
	EnvJWTSecret  = "QUORUM_JWT_SECRET"
	EnvJWTIssuer  = "QUORUM_JWT_ISSUER"
	EnvJWTExpMins = "QUORUM_JWT_EXPIRATION_MINUTES"

	EnvPointsAcceptAward = "QUORUM_POINTS_ACCEPT_AWARD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
