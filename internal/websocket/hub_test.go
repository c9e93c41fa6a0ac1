package websocket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightpipe/internal/workflow"
)

// testClient registers a bare client on the hub without a network
// connection and returns its receive channel.
func testClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := &Client{
		hub:         hub,
		send:        make(chan []byte, 16),
		id:          "test-client",
		connectedAt: time.Now(),
	}
	hub.register <- client
	// Drain the greeting.
	select {
	case <-client.send:
	case <-time.After(time.Second):
		t.Fatal("no connection greeting received")
	}
	return client
}

func receive(t *testing.T, client *Client) map[string]any {
	t.Helper()
	select {
	case data := <-client.send:
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := testClient(t, hub)

	hub.Broadcast(TypeTaskStarted, map[string]any{"task_id": "load[0]"})

	msg := receive(t, client)
	assert.Equal(t, TypeTaskStarted, msg["type"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, "load[0]", data["task_id"])
	assert.NotEmpty(t, msg["timestamp"])
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := testClient(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.unregister <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	// The send channel is closed on unregister.
	_, open := <-client.send
	assert.False(t, open)
}

func TestBroadcasterEmitsWorkflowEvents(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := testClient(t, hub)
	sink := NewBroadcaster(hub)

	sink.WorkflowStarted("wf-1", []string{"load_data[0]", "explore[1]"})
	msg := receive(t, client)
	assert.Equal(t, TypeWorkflowStarted, msg["type"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, "wf-1", data["workflow_id"])
	assert.Len(t, data["task_ids"], 2)

	sink.TaskFailed("wf-1", "explore[1]", errors.New("exploded"))
	msg = receive(t, client)
	assert.Equal(t, TypeTaskFailed, msg["type"])
	data = msg["data"].(map[string]any)
	assert.Equal(t, "exploded", data["error"])

	sink.WorkflowFinished("wf-1", workflow.StatusFailed, "critical task failed")
	msg = receive(t, client)
	assert.Equal(t, TypeWorkflowFinished, msg["type"])
	data = msg["data"].(map[string]any)
	assert.Equal(t, "failed", data["status"])
}

func TestHubStats(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	testClient(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	stats := hub.Stats()
	assert.Equal(t, int64(1), stats["active_clients"])
	assert.Equal(t, int64(1), stats["total_connections"])
}
