package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/taka-vending/hanbaiki/pkg/logging"
)

// Parse loads the environment into the config values. A .env file in the
// working directory is read first; real environment variables win over it.
// Missing required values are fatal.
func Parse(l *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		// Not having a .env file is fine; the environment may be complete.
		l.Debug("No .env file loaded", slog.String(logging.KeyError, err.Error()))
	}

	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		l.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envAppId := os.Getenv(EnvApplicationId); envAppId != "" {
		l.Debug("Found application ID in environment", slog.String("key", EnvApplicationId))
		ApplicationId = envAppId
	}

	if envOwner := os.Getenv(EnvOwnerId); envOwner != "" {
		l.Debug("Found owner ID in environment", slog.String("key", EnvOwnerId))
		OwnerId = envOwner
	}

	if envDataDir := os.Getenv(EnvDataDir); envDataDir != "" {
		l.Debug("Found data directory in environment", slog.String("key", EnvDataDir))
		DataDir = envDataDir
	} else {
		// Default to ./data if not provided.
		DataDir = "data"

		l.Info("No data directory provided in environment, defaulting to ./data", slog.String("key", EnvDataDir))
	}

	OAuthClientId = os.Getenv(EnvOAuthClientId)
	OAuthClientSecret = os.Getenv(EnvOAuthClientSecret)
	OAuthRedirectUrl = os.Getenv(EnvOAuthRedirectUrl)
	if OAuthClientId == "" || OAuthClientSecret == "" || OAuthRedirectUrl == "" {
		l.Warn("OAuth2 configuration incomplete, backup verification will be unavailable")
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		l.Debug("Found monitoring port in environment", slog.String("key", EnvMonitoringPort))
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"

		l.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if BotToken != "" &&
		ApplicationId != "" {

		// All required environment variables have been provided.
		l.Debug("All required environment variables have been provided")
		return
	}

	l.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, "Incomplete configuration"))
	os.Exit(1)
}

// OAuthConfigured reports whether the OAuth2 verification flow can run.
func OAuthConfigured() bool {
	return OAuthClientId != "" && OAuthClientSecret != "" && OAuthRedirectUrl != ""
}
