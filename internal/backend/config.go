package backend

import (
	"fmt"
	"time"

	"tesoreria/internal/config"
	"tesoreria/internal/core"
)

// Config holds what Open needs from the application config.
type Config struct {
	Type BackendType
	DSN  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	StartPolicy       core.StartPolicy
	ReconcileSchedule string
	ProjectCacheTTL   time.Duration
	StatisticsTimeout time.Duration

	// Now replaces time.Now in every service when set.
	Now func() time.Time
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:              backendType,
		DSN:               appConfig.DSN(),
		AMQPURL:           appConfig.AMQPURL,
		AMQPExchange:      appConfig.AMQPExchange,
		AMQPQueue:         appConfig.AMQPQueue,
		StartPolicy:       core.StartPolicy(appConfig.BudgetFutureStartStatus),
		ReconcileSchedule: appConfig.ReconcileSchedule,
		ProjectCacheTTL:   appConfig.ProjectCacheTTL,
		StatisticsTimeout: appConfig.StatisticsTimeout,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.DSN == "" {
		return fmt.Errorf("%s backend requires a database location", c.Type)
	}
	if !c.StartPolicy.Valid() {
		return fmt.Errorf("invalid budget start policy: %q", c.StartPolicy)
	}
	return nil
}
