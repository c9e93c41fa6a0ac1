package workflow

import "time"

// Default timeouts per pipeline stage. Loading dominates; the narrow
// reporting stages are short.
const (
	DefaultTaskTimeout    = 10 * time.Minute
	DefaultLoadTimeout    = 30 * time.Minute
	DefaultPredictTimeout = 15 * time.Minute
	DefaultReportTimeout  = 5 * time.Minute
)

// DefaultPartialThreshold: an envelope reporting success with a quality
// score under this counts as a partial outcome, not a full success.
const DefaultPartialThreshold = 0.8

// Config is the engine execution configuration.
type Config struct {
	// Quality score cutoff separating success from partial success.
	PartialThreshold float64 `json:"partial_threshold"`

	// Per-task-type timeouts.
	TaskTimeouts map[TaskType]time.Duration `json:"task_timeouts"`

	// Default timeout for task types without an override.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// Retry policy handed to built-in agents; the executor itself
	// never retries.
	RetryPolicy RetryPolicy `json:"retry_policy"`

	// Whether workflow results carry a worker health report.
	AttachHealthReport bool `json:"attach_health_report"`
}

// NewConfig returns the default engine configuration.
func NewConfig() *Config {
	return &Config{
		PartialThreshold: DefaultPartialThreshold,
		TaskTimeouts: map[TaskType]time.Duration{
			TaskTypeLoadData: DefaultLoadTimeout,
			TaskTypePredict:  DefaultPredictTimeout,
			TaskTypeReport:   DefaultReportTimeout,
		},
		DefaultTimeout:     DefaultTaskTimeout,
		RetryPolicy:        DefaultRetryPolicy(),
		AttachHealthReport: true,
	}
}

// TaskTimeout returns the timeout for a task type.
func (c *Config) TaskTimeout(taskType TaskType) time.Duration {
	if timeout, ok := c.TaskTimeouts[taskType]; ok {
		return timeout
	}
	return c.DefaultTimeout
}

// SetTaskTimeout overrides the timeout for a task type.
func (c *Config) SetTaskTimeout(taskType TaskType, timeout time.Duration) {
	if c.TaskTimeouts == nil {
		c.TaskTimeouts = make(map[TaskType]time.Duration)
	}
	c.TaskTimeouts[taskType] = timeout
}

// ConfigBuilder provides a fluent interface for building engine configs.
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a builder seeded with defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: NewConfig()}
}

// WithPartialThreshold sets the partial-success quality cutoff.
func (b *ConfigBuilder) WithPartialThreshold(threshold float64) *ConfigBuilder {
	b.config.PartialThreshold = threshold
	return b
}

// WithTaskTimeout sets the timeout for a task type.
func (b *ConfigBuilder) WithTaskTimeout(taskType TaskType, timeout time.Duration) *ConfigBuilder {
	b.config.SetTaskTimeout(taskType, timeout)
	return b
}

// WithDefaultTimeout sets the fallback task timeout.
func (b *ConfigBuilder) WithDefaultTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.DefaultTimeout = timeout
	return b
}

// WithRetryPolicy sets the agent retry policy.
func (b *ConfigBuilder) WithRetryPolicy(policy RetryPolicy) *ConfigBuilder {
	b.config.RetryPolicy = policy
	return b
}

// WithHealthReport toggles health reports on workflow results.
func (b *ConfigBuilder) WithHealthReport(enabled bool) *ConfigBuilder {
	b.config.AttachHealthReport = enabled
	return b
}

// Build returns the built configuration.
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
