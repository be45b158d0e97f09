package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "ROSTERHUB_APP_ENV"
	EnvPort         = "ROSTERHUB_APP_PORT"
	EnvDBDSN        = "ROSTERHUB_DB_DSN"
	EnvDBHost       = "ROSTERHUB_DB_HOST"
	EnvDBUser       = "ROSTERHUB_DB_USER"
	EnvDBName       = "ROSTERHUB_DB_NAME"
	EnvRedisURL     = "ROSTERHUB_REDIS_URL"
	EnvJWTSecret    = "ROSTERHUB_JWT_SECRET"
	EnvJWTIssuer    = "ROSTERHUB_JWT_ISSUER"
	EnvGCPProjectID = "ROSTERHUB_GCP_PROJECT_ID"
	EnvDomainSub    = "ROSTERHUB_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvEntityTables = "ROSTERHUB_AUDIT_ENTITY_TABLES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
