package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. CODERUNNER_SANDBOX_TIMEOUT_SEC.
const EnvPrefix = "CODERUNNER"

// EnvConfigFile names an explicit config file path.
const EnvConfigFile = "CODERUNNER_CONFIG"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig        `mapstructure:"server" yaml:"server"`
	Sandbox   SandboxConfig       `mapstructure:"sandbox" yaml:"sandbox"`
	Logging   LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Languages map[string]Language `mapstructure:"languages" yaml:"languages,omitempty"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport   string `mapstructure:"transport" yaml:"transport"`
	HTTPPort    int    `mapstructure:"http_port" yaml:"http_port"`
	MetricsPort int    `mapstructure:"metrics_port" yaml:"metrics_port"`
}

// SandboxConfig holds the resource policy and backend selection
type SandboxConfig struct {
	Backend             string `mapstructure:"backend" yaml:"backend"`
	EnableLocalBackend  bool   `mapstructure:"enable_local_backend" yaml:"enable_local_backend"`
	CPUShare            string `mapstructure:"cpu_share" yaml:"cpu_share"`
	MemoryLimit         string `mapstructure:"memory_limit" yaml:"memory_limit"`
	PidsLimit           int    `mapstructure:"pids_limit" yaml:"pids_limit"`
	FileDescriptorLimit string `mapstructure:"file_descriptor_limit" yaml:"file_descriptor_limit"`
	DisableNetwork      bool   `mapstructure:"disable_network" yaml:"disable_network"`
	TimeoutSec          int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	KillTimeoutSec      int    `mapstructure:"kill_timeout_sec" yaml:"kill_timeout_sec"`
	MaxOutputLength     int    `mapstructure:"max_output_length" yaml:"max_output_length"`
	TruncationMarker    string `mapstructure:"truncation_marker" yaml:"truncation_marker"`
	MaxConcurrent       int    `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode" yaml:"mode"`
	Level string `mapstructure:"level" yaml:"level"`
}

// Language overrides or extends a built-in language recipe.
// Empty fields keep the built-in value.
type Language struct {
	Image         string `mapstructure:"image" yaml:"image,omitempty"`
	Invocation    string `mapstructure:"invocation" yaml:"invocation,omitempty"`
	Compiled      bool   `mapstructure:"compiled" yaml:"compiled,omitempty"`
	FileExtension string `mapstructure:"file_extension" yaml:"file_extension,omitempty"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9090)

	v.SetDefault("sandbox.backend", "docker")
	v.SetDefault("sandbox.enable_local_backend", false)
	v.SetDefault("sandbox.cpu_share", "0.25")
	v.SetDefault("sandbox.memory_limit", "128m")
	v.SetDefault("sandbox.pids_limit", 100)
	v.SetDefault("sandbox.file_descriptor_limit", "64:64")
	v.SetDefault("sandbox.disable_network", true)
	v.SetDefault("sandbox.timeout_sec", 60)
	v.SetDefault("sandbox.kill_timeout_sec", 5)
	v.SetDefault("sandbox.max_output_length", 1000)
	v.SetDefault("sandbox.truncation_marker", "...\n(truncated)")
	v.SetDefault("sandbox.max_concurrent", 0)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.MetricsPort < 0 {
		return fmt.Errorf("server.metrics_port must not be negative, got: %d", c.Server.MetricsPort)
	}

	if c.Sandbox.TimeoutSec <= 0 {
		return fmt.Errorf("sandbox.timeout_sec must be positive, got: %d", c.Sandbox.TimeoutSec)
	}

	if c.Sandbox.KillTimeoutSec <= 0 {
		return fmt.Errorf("sandbox.kill_timeout_sec must be positive, got: %d", c.Sandbox.KillTimeoutSec)
	}

	if c.Sandbox.MaxOutputLength <= 0 {
		return fmt.Errorf("sandbox.max_output_length must be positive, got: %d", c.Sandbox.MaxOutputLength)
	}

	if c.Sandbox.PidsLimit <= 0 {
		return fmt.Errorf("sandbox.pids_limit must be positive, got: %d", c.Sandbox.PidsLimit)
	}

	if c.Sandbox.MaxConcurrent < 0 {
		return fmt.Errorf("sandbox.max_concurrent must not be negative, got: %d", c.Sandbox.MaxConcurrent)
	}

	supportedBackends := map[string]bool{
		"docker": true,
		"podman": true,
		"local":  c.Sandbox.EnableLocalBackend, // local only enabled if specifically allowed
	}

	if !supportedBackends[c.Sandbox.Backend] {
		return fmt.Errorf("unsupported sandbox.backend: %s", c.Sandbox.Backend)
	}

	if c.Logging.Mode != "development" && c.Logging.Mode != "production" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'development' or 'production'", c.Logging.Mode)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// GetTimeout returns the execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutSec) * time.Second
}

// GetKillTimeout returns the bound applied to a single forced termination
func (c *Config) GetKillTimeout() time.Duration {
	return time.Duration(c.Sandbox.KillTimeoutSec) * time.Second
}

// Dump renders the effective configuration as YAML.
func Dump(c *Config) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return out, nil
}
