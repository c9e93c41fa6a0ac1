package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"insightpipe/internal/apierrors"
	"insightpipe/internal/workflow"
)

// AgentsHandler serves the agent registry endpoints.
type AgentsHandler struct {
	registry *workflow.Registry
	logger   *slog.Logger
}

// NewAgentsHandler creates the agents handler.
func NewAgentsHandler(registry *workflow.Registry, logger *slog.Logger) *AgentsHandler {
	if registry == nil {
		panic("registry cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentsHandler{
		registry: registry,
		logger:   logger.With(slog.String("handler", "agents")),
	}
}

// Routes returns the chi router for agent endpoints.
func (h *AgentsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/types", h.TaskTypes)
	r.Get("/{name}", h.Get)
	return r
}

type agentInfo struct {
	Name       string   `json:"name"`
	Registered bool     `json:"registered"`
	TaskTypes  []string `json:"task_types,omitempty"`
}

// List handles GET /api/agents: every canonical role with its
// registration state, in registration order for registered agents.
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	byAgent := make(map[string][]string)
	for _, taskType := range workflow.TaskTypes() {
		if name, ok := workflow.AgentFor(taskType); ok {
			byAgent[name] = append(byAgent[name], string(taskType))
		}
	}

	agents := make([]agentInfo, 0, h.registry.Count())
	for _, name := range h.registry.Names() {
		agents = append(agents, agentInfo{
			Name:       name,
			Registered: true,
			TaskTypes:  byAgent[name],
		})
	}
	render.JSON(w, r, map[string]any{
		"agents": agents,
		"count":  len(agents),
	})
}

// Get handles GET /api/agents/{name}.
func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.registry.Has(name) {
		render.Render(w, r, apierrors.ErrAgentNotFound)
		return
	}
	taskTypes := make([]string, 0, 1)
	for _, taskType := range workflow.TaskTypes() {
		if agent, ok := workflow.AgentFor(taskType); ok && agent == name {
			taskTypes = append(taskTypes, string(taskType))
		}
	}
	render.JSON(w, r, agentInfo{Name: name, Registered: true, TaskTypes: taskTypes})
}

// TaskTypes handles GET /api/agents/types: the canonical routing table.
func (h *AgentsHandler) TaskTypes(w http.ResponseWriter, r *http.Request) {
	routing := make(map[string]string, len(workflow.TaskTypes()))
	for _, taskType := range workflow.TaskTypes() {
		if name, ok := workflow.AgentFor(taskType); ok {
			routing[string(taskType)] = name
		}
	}
	render.JSON(w, r, map[string]any{"routing": routing})
}
