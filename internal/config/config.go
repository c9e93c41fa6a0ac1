// Package config loads the application configuration from environment
// variables (INSIGHT_ prefix) and an optional YAML file. Environment
// variables win over file values, file values win over defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"insightpipe/internal/workflow"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Engine    EngineConfig    `yaml:"engine" envconfig:"ENGINE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
	Output string `yaml:"output" envconfig:"OUTPUT"`
}

// SecurityConfig contains request-level protections.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// WebSocketConfig contains WebSocket hub configuration.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// EngineConfig tunes the workflow engine.
type EngineConfig struct {
	PartialThreshold   float64       `yaml:"partial_threshold" envconfig:"PARTIAL_THRESHOLD"`
	DefaultTaskTimeout time.Duration `yaml:"default_task_timeout" envconfig:"DEFAULT_TASK_TIMEOUT"`
	LoadTimeout        time.Duration `yaml:"load_timeout" envconfig:"LOAD_TIMEOUT"`
	PredictTimeout     time.Duration `yaml:"predict_timeout" envconfig:"PREDICT_TIMEOUT"`
	ReportTimeout      time.Duration `yaml:"report_timeout" envconfig:"REPORT_TIMEOUT"`
	RetryMaxAttempts   int           `yaml:"retry_max_attempts" envconfig:"RETRY_MAX_ATTEMPTS"`
	RetryInitialDelay  time.Duration `yaml:"retry_initial_delay" envconfig:"RETRY_INITIAL_DELAY"`
	RetryMaxDelay      time.Duration `yaml:"retry_max_delay" envconfig:"RETRY_MAX_DELAY"`
	RetryMultiplier    float64       `yaml:"retry_multiplier" envconfig:"RETRY_MULTIPLIER"`
	AttachHealthReport bool          `yaml:"attach_health_report" envconfig:"ATTACH_HEALTH_REPORT"`
}

// Load loads configuration from environment variables and an optional
// config file named by INSIGHT_CONFIG_FILE (or found in the usual
// locations).
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = fileCfg
	}

	// Environment variables override file values.
	if err := envconfig.Process("INSIGHT", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile reads a YAML config file over the defaults.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EngineConfig builds the workflow engine configuration.
func (c *Config) EngineConfig() *workflow.Config {
	return workflow.NewConfigBuilder().
		WithPartialThreshold(c.Engine.PartialThreshold).
		WithDefaultTimeout(c.Engine.DefaultTaskTimeout).
		WithTaskTimeout(workflow.TaskTypeLoadData, c.Engine.LoadTimeout).
		WithTaskTimeout(workflow.TaskTypePredict, c.Engine.PredictTimeout).
		WithTaskTimeout(workflow.TaskTypeReport, c.Engine.ReportTimeout).
		WithRetryPolicy(workflow.RetryPolicy{
			MaxAttempts:  c.Engine.RetryMaxAttempts,
			InitialDelay: c.Engine.RetryInitialDelay,
			MaxDelay:     c.Engine.RetryMaxDelay,
			Multiplier:   c.Engine.RetryMultiplier,
		}).
		WithHealthReport(c.Engine.AttachHealthReport).
		Build()
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Engine.PartialThreshold < 0 || c.Engine.PartialThreshold > 1 {
		return fmt.Errorf("partial threshold must be in [0, 1], got %v", c.Engine.PartialThreshold)
	}
	if c.Engine.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format: %q", c.Logging.Format)
	}
	return nil
}

// configFilePath returns the first config file that exists.
func configFilePath() string {
	if path := os.Getenv("INSIGHT_CONFIG_FILE"); path != "" {
		return path
	}
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Engine: EngineConfig{
			PartialThreshold:   workflow.DefaultPartialThreshold,
			DefaultTaskTimeout: workflow.DefaultTaskTimeout,
			LoadTimeout:        workflow.DefaultLoadTimeout,
			PredictTimeout:     workflow.DefaultPredictTimeout,
			ReportTimeout:      workflow.DefaultReportTimeout,
			RetryMaxAttempts:   3,
			RetryInitialDelay:  time.Second,
			RetryMaxDelay:      30 * time.Second,
			RetryMultiplier:    2.0,
			AttachHealthReport: true,
		},
	}
}
