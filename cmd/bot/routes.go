package main

const (
	// PathMetrics is the path for prometheus metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"

	// PathAuth is the path for the OAuth2 verification callback.
	PathAuth = "/auth"
)
