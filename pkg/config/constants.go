package config

const (
	EnvPrefix = "belori"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BELORI_DB_DSN"
	EnvDBHost = "BELORI_DB_HOST"
	EnvDBUser = "BELORI_DB_USER"
	EnvDBName = "BELORI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
