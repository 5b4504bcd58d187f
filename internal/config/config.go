// Package config provides application configuration from environment variables.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds all application configuration.
type Settings struct {
	// Application metadata
	Version  string `envconfig:"VERSION" default:"0.1.0"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// API server settings
	APIHost string `envconfig:"API_HOST" default:"0.0.0.0"`
	APIPort int    `envconfig:"API_PORT" default:"9010"`

	// Database settings
	DatabasePath string `envconfig:"DATABASE_PATH" default:"/var/lib/netcube/netcube.db"`

	// Auth settings
	JWTSecret         string        `envconfig:"JWT_SECRET" default:""`             // Must be set in production!
	AccessTokenExpiry time.Duration `envconfig:"ACCESS_TOKEN_EXPIRY" default:"15m"` // Industry standard: 15 min
	AdminPassword     string        `envconfig:"ADMIN_PASSWORD" default:""`         // Initial admin password

	// OS backend: "linux" talks to the kernel, "fake" serves a simulated
	// host for development and tests.
	OSBackend string `envconfig:"OS_BACKEND" default:"linux"`

	// Timeouts
	OperationTimeout time.Duration `envconfig:"OPERATION_TIMEOUT" default:"90s"` // Hard ceiling per mutation
	ScanTimeout      time.Duration `envconfig:"SCAN_TIMEOUT" default:"30s"`
	JoinPollInterval time.Duration `envconfig:"JOIN_POLL_INTERVAL" default:"500ms"`
	JoinPollTimeout  time.Duration `envconfig:"JOIN_POLL_TIMEOUT" default:"30s"` // Address acquisition deadline
}

// ListenAddr returns the address string for the HTTP server to bind to.
func (s *Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.APIHost, s.APIPort)
}

var (
	cfg  *Settings
	once sync.Once
)

// Get returns the singleton Settings instance.
func Get() *Settings {
	once.Do(func() {
		cfg = &Settings{}
		if err := envconfig.Process("NETCUBE", cfg); err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return cfg
}

// Load creates a new Settings instance from environment variables.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := envconfig.Process("NETCUBE", s); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return s, nil
}
