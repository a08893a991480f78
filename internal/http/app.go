// Package http holds what the router needs from the composition root.
package http

import (
	"context"

	"salesbot_backend/platform/config"
	"salesbot_backend/platform/logger"
)

// RouterConfig is the part of the configuration the router reads: CORS for
// the console and the JWT secret for the operator group.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker answers the readiness check.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled in cmd/api and handed to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
