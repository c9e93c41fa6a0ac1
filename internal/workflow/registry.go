package workflow

import "sync"

// Registry holds named references to registered agents. Registration
// order is preserved for introspection. The registry holds references,
// never copies; agents live for the orchestrator's lifetime.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		order:  make([]string, 0),
	}
}

// Register adds an agent under a name. A taken name fails with a
// duplicate-registration error and leaves the original untouched.
func (r *Registry) Register(name string, agent Agent) error {
	if agent == nil {
		return NewInvalidAgentError("cannot register nil agent")
	}
	if name == "" {
		return NewInvalidAgentError("agent name cannot be empty")
	}
	if agent.Name() == "" {
		return NewInvalidAgentError("agent must report a non-empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; exists {
		return NewDuplicateAgentError(name)
	}

	r.agents[name] = agent
	r.order = append(r.order, name)
	return nil
}

// Unregister removes an agent from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; !exists {
		return NewAgentNotFoundError(name)
	}

	delete(r.agents, name)
	newOrder := make([]string, 0, len(r.order)-1)
	for _, n := range r.order {
		if n != name {
			newOrder = append(newOrder, n)
		}
	}
	r.order = newOrder
	return nil
}

// Get returns the agent registered under name, or nil when absent.
func (r *Registry) Get(name string) Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[name]
}

// MustGet returns the agent registered under name or an
// agent-not-found error.
func (r *Registry) MustGet(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[name]
	if !exists {
		return nil, NewAgentNotFoundError(name)
	}
	return agent, nil
}

// Has checks if an agent is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.agents[name]
	return exists
}

// List returns all registered agents in registration order.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]Agent, 0, len(r.order))
	for _, name := range r.order {
		if agent, exists := r.agents[name]; exists {
			agents = append(agents, agent)
		}
	}
	return agents
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]Agent)
	r.order = make([]string, 0)
}
