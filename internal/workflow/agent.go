package workflow

import "context"

// Agent is a registered analysis capability. The engine never inspects
// an agent's output data; it caches it and hands it to later tasks.
//
// An Execute call is blocking: the executor will not start the next
// task until it returns. Agents that talk to flaky backends should wrap
// that work with WithRetry rather than fail on the first transient
// error; retries are internal to the agent and invisible here except
// as elapsed time.
type Agent interface {
	// Name returns the human-readable agent name.
	Name() string

	// Execute runs one task. A nil error with Result.Success=false is
	// an agent-reported failure; a non-nil error is treated the same
	// way by the executor.
	Execute(ctx context.Context, taskType TaskType, params Parameters) (*Result, error)
}

// AgentFunc adapts a function to the Agent interface.
type AgentFunc struct {
	AgentName string
	Fn        func(ctx context.Context, taskType TaskType, params Parameters) (*Result, error)
}

// Name returns the agent name
func (a AgentFunc) Name() string { return a.AgentName }

// Execute invokes the wrapped function
func (a AgentFunc) Execute(ctx context.Context, taskType TaskType, params Parameters) (*Result, error) {
	return a.Fn(ctx, taskType, params)
}
