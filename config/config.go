// Package config loads the harness configuration describing the Pulp
// deployment under test. Values come from an optional config file
// (pulp-contract-tests.yaml in the working directory or $HOME/.config) and
// from PULP_* environment variables; command-line flags may override the
// result.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultServices is the set of service units toggled by the service
// start/stop tests when the configuration does not name its own.
var DefaultServices = []string{
	"pulpcore-content",
	"pulpcore-api",
	"pulpcore-worker@1",
	"pulpcore-worker@2",
}

// Config describes the deployment under test and the local fixture
// environment.
type Config struct {
	// APIURL is the base URL of the Pulp REST API, e.g. "https://pulp.example.com".
	APIURL string `mapstructure:"api_url"`
	// Username and Password are the API credentials.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// FixturesOrigin is the hostname that local fixture servers bind to and
	// that issued certificates are valid for. It must be resolvable and
	// reachable from the Pulp host.
	FixturesOrigin string `mapstructure:"fixtures_origin"`
	// FixturesDir is a local directory of content fixtures served by fixture
	// servers (e.g. an RPM fixture repository).
	FixturesDir string `mapstructure:"fixtures_dir"`
	// ServiceHost is the host to run service-manager commands on. Empty means
	// the local machine; anything else is used as an ssh destination.
	ServiceHost string `mapstructure:"service_host"`
	// Services are the service units managed by start/stop operations.
	Services []string `mapstructure:"services"`
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required (flag -url or PULP_API_URL)")
	}
	if strings.HasSuffix(c.APIURL, "/") {
		c.APIURL = strings.TrimRight(c.APIURL, "/")
	}
	if c.FixturesOrigin == "" {
		return errors.New("fixtures_origin must not be empty")
	}
	return nil
}

// Load reads the configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("pulp-contract-tests")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config")

	v.SetEnvPrefix("pulp")
	v.AutomaticEnv()

	v.SetDefault("api_url", "")
	v.SetDefault("username", "admin")
	v.SetDefault("password", "password")
	v.SetDefault("fixtures_origin", "127.0.0.1")
	v.SetDefault("fixtures_dir", "")
	v.SetDefault("service_host", "")
	v.SetDefault("services", DefaultServices)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; env and flags carry the settings.
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &c, nil
}
