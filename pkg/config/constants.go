package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CartStorageRedis = "redis"
	CartStorageSQL   = "sql"
)

const (
	EnvAppEnv        = "STOREFRONT_APP_ENV"
	EnvPort          = "STOREFRONT_APP_PORT"
	EnvDBDSN         = "STOREFRONT_DB_DSN"
	EnvDBDriver      = "STOREFRONT_DB_DRIVER"
	EnvDBHost        = "STOREFRONT_DB_HOST"
	EnvDBUser        = "STOREFRONT_DB_USER"
	EnvDBName        = "STOREFRONT_DB_NAME"
	EnvRedisURL      = "STOREFRONT_REDIS_URL"
	EnvCartStorage   = "STOREFRONT_CART_STORAGE"
	EnvCartNamespace = "STOREFRONT_CART_NAMESPACE"
	EnvCartCurrency  = "STOREFRONT_CART_CURRENCY"
	EnvCMSBaseURL    = "STOREFRONT_CMS_BASE_URL"
	EnvAutoMigrate   = "STOREFRONT_AUTO_MIGRATE"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
