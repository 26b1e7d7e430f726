// Package config loads the calcfield server configuration from a YAML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/session"
)

// Defaults.
const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8787
	DefaultGRPCPort   = 8788
	DefaultErrorFlash = 500 * time.Millisecond
)

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Calculator CalculatorConfig `yaml:"calculator"`
	// ScriptsDir is a directory of keystroke scripts loaded at startup.
	ScriptsDir string `yaml:"scriptsDir"`
}

// ServerConfig holds the listen addresses.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpcPort"`
}

// CalculatorConfig holds the settings every new session is created with.
type CalculatorConfig struct {
	ErrorIndicator string        `yaml:"errorIndicator"`
	ErrorFlash     time.Duration `yaml:"errorFlash"`
	Policy         string        `yaml:"policy"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			GRPCPort: DefaultGRPCPort,
		},
		Calculator: CalculatorConfig{
			ErrorIndicator: session.DefaultErrorIndicator,
			ErrorFlash:     DefaultErrorFlash,
			Policy:         expr.PolicyStrict.String(),
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data into cfg. Keys missing from data keep their
// current values.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with the HOST, PORT, GRPC_PORT, SCRIPTS_DIR and
// CALC_POLICY variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("GRPC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GRPC_PORT %q: %w", v, err)
		}
		c.Server.GRPCPort = port
	}
	if v := getenv("SCRIPTS_DIR"); v != "" {
		c.ScriptsDir = v
	}
	if v := getenv("CALC_POLICY"); v != "" {
		c.Calculator.Policy = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if err := checkPort("server.port", c.Server.Port); err != nil {
		errs = append(errs, err)
	}
	if err := checkPort("server.grpcPort", c.Server.GRPCPort); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Port == c.Server.GRPCPort && c.Server.Port != 0 {
		errs = append(errs, fmt.Errorf("server.port and server.grpcPort must differ (both %d)", c.Server.Port))
	}
	if c.Calculator.ErrorFlash <= 0 {
		errs = append(errs, fmt.Errorf("calculator.errorFlash must be positive, got %s", c.Calculator.ErrorFlash))
	}
	if _, err := expr.ParsePolicy(c.Calculator.Policy); err != nil {
		errs = append(errs, fmt.Errorf("calculator.policy: %w", err))
	}
	return errors.Join(errs...)
}

func checkPort(field string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s out of range: %d", field, port)
	}
	return nil
}

// SessionOptions returns the options sessions are created with.
func (c *Config) SessionOptions() (session.Options, error) {
	policy, err := expr.ParsePolicy(c.Calculator.Policy)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		ErrorIndicator: c.Calculator.ErrorIndicator,
		Policy:         policy,
	}, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns the gRPC listen address.
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
