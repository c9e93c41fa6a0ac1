package testutil

import (
	"context"
	"sync"
	"time"

	"insightpipe/internal/workflow"
)

// MockAgent is a configurable mock implementation of the Agent
// interface with call tracking.
type MockAgent struct {
	NameValue string

	// ExecuteFunc overrides the default always-succeed behavior.
	ExecuteFunc func(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error)

	mu           sync.Mutex
	ExecuteCalls int
	ExecuteArgs  []ExecuteCall
}

// ExecuteCall tracks arguments passed to Execute.
type ExecuteCall struct {
	Ctx      context.Context
	TaskType workflow.TaskType
	Params   workflow.Parameters
	Time     time.Time
}

// Name returns the agent name.
func (m *MockAgent) Name() string {
	return m.NameValue
}

// Execute records the call and runs the configured function.
func (m *MockAgent) Execute(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
	m.mu.Lock()
	m.ExecuteCalls++
	m.ExecuteArgs = append(m.ExecuteArgs, ExecuteCall{
		Ctx:      ctx,
		TaskType: taskType,
		Params:   params,
		Time:     time.Now(),
	})
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, taskType, params)
	}
	return &workflow.Result{Success: true, QualityScore: 1.0}, nil
}

// Calls returns the number of Execute invocations.
func (m *MockAgent) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCalls
}

// NewSuccessfulAgent returns a mock that always succeeds with full
// quality and echoes a small dataset as output.
func NewSuccessfulAgent(name string) *MockAgent {
	return &MockAgent{
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
			return &workflow.Result{
				Success:      true,
				Data:         SampleDataset(),
				QualityScore: 1.0,
			}, nil
		},
	}
}

// NewFailingAgent returns a mock whose envelope reports failure.
func NewFailingAgent(name, message string) *MockAgent {
	return &MockAgent{
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
			return &workflow.Result{
				Success: false,
				Errors:  []workflow.ErrorDetail{{Type: "execution", Message: message}},
			}, nil
		},
	}
}

// NewErroringAgent returns a mock whose Execute returns an error.
func NewErroringAgent(name string, err error) *MockAgent {
	return &MockAgent{
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
			return nil, err
		},
	}
}

// NewQualityAgent returns a mock that succeeds with the given quality.
func NewQualityAgent(name string, quality float64) *MockAgent {
	return &MockAgent{
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, taskType workflow.TaskType, params workflow.Parameters) (*workflow.Result, error) {
			return &workflow.Result{Success: true, QualityScore: quality}, nil
		},
	}
}

// SampleDataset returns a small tabular fixture.
func SampleDataset() *workflow.Dataset {
	ds := workflow.NewDataset("region", "revenue")
	ds.Append([]any{"north", 120.0})
	ds.Append([]any{"south", 80.0})
	ds.Append([]any{"east", 95.5})
	return ds
}

// RegisterPipelineAgents registers a successful mock for every
// canonical agent name and returns them keyed by name.
func RegisterPipelineAgents(registry *workflow.Registry) map[string]*MockAgent {
	agents := make(map[string]*MockAgent)
	for _, taskType := range workflow.TaskTypes() {
		name, _ := workflow.AgentFor(taskType)
		if _, ok := agents[name]; ok {
			continue
		}
		agent := NewSuccessfulAgent(name)
		agents[name] = agent
		_ = registry.Register(name, agent)
	}
	return agents
}
