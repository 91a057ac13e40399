// Package config loads the reporting configuration from an optional
// datadog.yaml file and the environment. Environment variables use
// the DD_UTIL_ prefix (DD_UTIL_REPORT_INTERVAL, DD_UTIL_LOG_LEVEL,
// ...); the API key is additionally read from the conventional
// DD_API_KEY.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the reporting pipeline needs at startup.
type Config struct {
	// Endpoint overrides the intake URL. Empty means the library
	// default.
	Endpoint string `mapstructure:"endpoint"`

	// APIKey authenticates against the intake. Required for real
	// submissions.
	APIKey string `mapstructure:"api_key"`

	// ReportInterval is the period between submissions.
	ReportInterval time.Duration `mapstructure:"report_interval"`

	// Tags is attached to every emitted series, e.g. "service:api".
	Tags []string `mapstructure:"tags"`

	LogLevel    string `mapstructure:"log_level"`
	ServiceName string `mapstructure:"service_name"`

	// RuntimeStats enables periodic sampling of Go runtime gauges.
	RuntimeStats         bool          `mapstructure:"runtime_stats"`
	RuntimeStatsInterval time.Duration `mapstructure:"runtime_stats_interval"`
}

// Load reads datadog.yaml from path (missing file is fine) and layers
// environment variables on top.
func Load(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("endpoint", "")
	v.SetDefault("api_key", "")
	v.SetDefault("report_interval", 2*time.Minute)
	v.SetDefault("tags", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "datadog-util")
	v.SetDefault("runtime_stats", false)
	v.SetDefault("runtime_stats_interval", 10*time.Second)

	if path == "" {
		path = "."
	}
	v.AddConfigPath(path)
	v.SetConfigName("datadog")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DD_UTIL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.MustBindEnv("api_key", "DD_UTIL_API_KEY", "DD_API_KEY")

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

// Validate reports whether the configuration is complete enough to
// submit to a real intake.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api key is required (set DD_API_KEY)")
	}
	return nil
}
