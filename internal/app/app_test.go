package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightpipe/internal/config"
	"insightpipe/internal/workflow"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	application, err := NewWithConfig(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		application.Hub.Stop()
		application.Executor.Shutdown()
	})
	return application
}

const salesCSV = "region,revenue\nnorth,100\nsouth,200\nnorth,50"

func salesWorkflow(id string) string {
	return `{
		"id": "` + id + `",
		"name": "sales analysis",
		"tasks": [
			{"type": "load_data", "parameters": {"source": "sales.csv", "csv": "` +
		strings.ReplaceAll(salesCSV, "\n", `\n`) + `"}},
			{"type": "explore"},
			{"type": "aggregate", "parameters": {"group_by": "region"}}
		]
	}`
}

func TestNewWithConfigWiresComponents(t *testing.T) {
	application := newTestApp(t)

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.Executor)
	assert.NotNil(t, application.Tracker)
	assert.NotNil(t, application.Integrator)
	assert.NotNil(t, application.Metrics)
	assert.Equal(t, 9, application.Registry.Count())
}

func TestWorkflowEndToEnd(t *testing.T) {
	application := newTestApp(t)
	srv := httptest.NewServer(application.Router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/workflows", "application/json",
		bytes.NewBufferString(salesWorkflow("wf-e2e-1")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result workflow.WorkflowResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "wf-e2e-1", result.WorkflowID)
	assert.Equal(t, workflow.StatusCompleted, result.Status)
	assert.Equal(t, 3, result.CompletedTasks)
	assert.NotNil(t, result.Health)

	// The run is retrievable afterwards, along with its story.
	get, err := http.Get(srv.URL + "/api/workflows/wf-e2e-1")
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	story, err := http.Get(srv.URL + "/api/workflows/wf-e2e-1/story")
	require.NoError(t, err)
	defer story.Body.Close()
	assert.Equal(t, http.StatusOK, story.StatusCode)
}

func TestOperationalEndpoints(t *testing.T) {
	application := newTestApp(t)
	srv := httptest.NewServer(application.Router)
	defer srv.Close()

	for _, path := range []string{"/api/agents", "/api/agents/types", "/api/health", "/api/health/workers", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestWebSocketReceivesWorkflowEvents(t *testing.T) {
	application := newTestApp(t)
	srv := httptest.NewServer(application.Router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	type envelope struct {
		Type string `json:"type"`
	}

	readEnvelope := func() envelope {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg envelope
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	require.Equal(t, "connection", readEnvelope().Type)

	resp, err := http.Post(srv.URL+"/api/workflows", "application/json",
		bytes.NewBufferString(salesWorkflow("wf-ws-1")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var seen []string
	for {
		msg := readEnvelope()
		seen = append(seen, msg.Type)
		if msg.Type == "workflow:finished" {
			break
		}
	}
	assert.Contains(t, seen, "workflow:started")
	assert.Contains(t, seen, "task:started")
	assert.Contains(t, seen, "task:completed")
}

func TestStopShutsDownCleanly(t *testing.T) {
	application := newTestApp(t)

	require.NoError(t, application.Stop(context.Background()))
}
