// Package config defines configuration structures
package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DefaultHTTPPort is the default port number for the HTTP REST API
const DefaultHTTPPort int = 8480

// DefaultHTTPAddress is the default listening address for the HTTP REST API
const DefaultHTTPAddress string = "0.0.0.0"

// DefaultServerGracefulShutdownTimeout is the default timeout for a graceful shutdown of the hpcforge server before exiting
const DefaultServerGracefulShutdownTimeout = 5 * time.Minute

// DefaultJobMonitoringTimeInterval is the default polling interval when watching a job
const DefaultJobMonitoringTimeInterval = 5 * time.Second

// DefaultSSHPort is the default port used to reach the cluster login node
const DefaultSSHPort int = 22

// DefaultSIFDirectory is the default shared path where Apptainer images are expected on the cluster
const DefaultSIFDirectory = "/global/apps/containers"

// Configuration holds config information filled by Cobra and Viper (see commands package for more information)
type Configuration struct {
	ServerGracefulShutdownTimeout time.Duration
	HTTPPort                      int
	HTTPAddress                   string
	KeyFile                       string
	CertFile                      string
	CAFile                        string
	CAPath                        string
	SSLEnabled                    bool
	SSLVerify                     bool
	Telemetry                     Telemetry
	Cluster                       DynamicMap
	Generation                    DynamicMap
}

// Telemetry holds the configuration for the telemetry service
type Telemetry struct {
	StatsdAddress           string
	ServiceName             string
	DisableHostName         bool
	DisableGoRuntimeMetrics bool
}

// Client holds the configuration of the CLI HTTP client used to reach a running hpcforge server
type Client struct {
	ServerAPI     string `mapstructure:"server_api"`
	SSLEnabled    bool   `mapstructure:"ssl_enabled"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
	KeyFile       string `mapstructure:"key_file"`
	CertFile      string `mapstructure:"cert_file"`
	CAFile        string `mapstructure:"ca_file"`
	CAPath        string `mapstructure:"ca_path"`
}

// DynamicMap holds free parameters for a given configuration section.
//
// It has methods to automatically cast data to the desired type.
type DynamicMap map[string]interface{}

// Get returns the raw value of a given configuration key
func (m DynamicMap) Get(name string) interface{} {
	return m[name]
}

// Set sets a value for a given configuration key
func (m DynamicMap) Set(name string, value interface{}) {
	m[name] = value
}

// IsSet checks if a given configuration key is defined
func (m DynamicMap) IsSet(name string) bool {
	_, ok := m[name]
	return ok
}

// GetString returns the value of the given key casted into a string.
// An empty string is returned if not found.
func (m DynamicMap) GetString(name string) string {
	return cast.ToString(m[name])
}

// GetStringOrDefault returns the value of the given key casted into a string.
// The given default value is returned if not found or if the corresponding value is empty.
func (m DynamicMap) GetStringOrDefault(name, defaultValue string) string {
	if res := m.GetString(name); res != "" {
		return res
	}
	return defaultValue
}

// GetBool returns the value of the given key casted into a boolean.
// False is returned if not found.
func (m DynamicMap) GetBool(name string) bool {
	return cast.ToBool(m[name])
}

// GetInt returns the value of the given key casted into an int.
// 0 is returned if not found.
func (m DynamicMap) GetInt(name string) int {
	return cast.ToInt(m[name])
}

// GetIntOrDefault returns the value of the given key casted into an int.
// The given default value is returned if not found or if the corresponding value is 0.
func (m DynamicMap) GetIntOrDefault(name string, defaultValue int) int {
	if res := m.GetInt(name); res != 0 {
		return res
	}
	return defaultValue
}

// GetDuration returns the value of the given key casted into a time.Duration.
// A 0 duration is returned if not found.
func (m DynamicMap) GetDuration(name string) time.Duration {
	return cast.ToDuration(m[name])
}

// GetStringSlice returns the value of the given key casted into a slice of string.
// If the corresponding raw value is a string, it is split on comas.
// A nil or empty slice is returned if not found.
func (m DynamicMap) GetStringSlice(name string) []string {
	val := m[name]
	switch v := val.(type) {
	case string:
		return strings.Split(v, ",")
	default:
		return cast.ToStringSlice(val)
	}
}
