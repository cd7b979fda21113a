package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "SMARTINV"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "SMARTINV_APP_ENV"
	EnvDBDSN  = "SMARTINV_DB_DSN"
	EnvDBHost = "SMARTINV_DB_HOST"
	EnvDBUser = "SMARTINV_DB_USER"
	EnvDBName = "SMARTINV_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
