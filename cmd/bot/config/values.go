package config

const (
	// AppName is the name of the application.
	AppName = "hanbaiki"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvOwnerId is the environment variable for the bot owner's user ID.
	EnvOwnerId = `OWNER_ID`

	// EnvDataDir is the environment variable for the record store directory.
	EnvDataDir = `DATA_DIR`

	// EnvOAuthClientId is the environment variable for the OAuth2 client ID.
	EnvOAuthClientId = `OAUTH_CLIENT_ID`

	// EnvOAuthClientSecret is the environment variable for the OAuth2 client
	// secret.
	EnvOAuthClientSecret = `OAUTH_CLIENT_SECRET`

	// EnvOAuthRedirectUrl is the environment variable for the OAuth2
	// redirect URL.
	EnvOAuthRedirectUrl = `OAUTH_REDIRECT_URL`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`
)

var (
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// OwnerId is the user ID of the bot owner. Only the owner may manage the
	// guild whitelist.
	OwnerId string

	// DataDir is the directory of the record store.
	DataDir string

	// OAuthClientId is the OAuth2 client ID for the verification flow.
	OAuthClientId string

	// OAuthClientSecret is the OAuth2 client secret for the verification
	// flow.
	OAuthClientSecret string

	// OAuthRedirectUrl is the OAuth2 redirect URL for the verification flow.
	OAuthRedirectUrl string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string
)
