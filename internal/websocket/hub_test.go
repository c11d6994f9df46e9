package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts/events"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func registerTestClient(t *testing.T, hub *Hub) (*Client, *MockConnection) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	conn := NewMockConnection()
	client := NewClientWithConnection(hub, conn, logger)
	hub.Register(client)

	// The connect greeting confirms registration completed
	select {
	case msg := <-client.send:
		var envelope events.WebSocketMessage
		require.NoError(t, json.Unmarshal(msg, &envelope))
		require.Equal(t, events.MessageTypeConnect, envelope.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect message")
	}

	return client, conn
}

func TestNewHub(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)

	require.NotNil(t, hub)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_RegisterSendsConnectMessage(t *testing.T) {
	hub := newTestHub(t)

	logger, _ := testutil.NewTestLogger(t)
	conn := NewMockConnection()
	client := NewClientWithConnection(hub, conn, logger)
	hub.Register(client)

	select {
	case msg := <-client.send:
		var envelope events.WebSocketMessage
		require.NoError(t, json.Unmarshal(msg, &envelope))
		assert.Equal(t, events.MessageTypeConnect, envelope.Type)
		assert.False(t, envelope.Timestamp.IsZero())

		data, ok := envelope.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "connected", data["status"])
		assert.Equal(t, "Connected to SupplyPulse", data["message"])
		assert.Equal(t, client.id, data["client_id"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect message")
	}

	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_BroadcastRunSnapshot(t *testing.T) {
	hub := newTestHub(t)
	client, _ := registerTestClient(t, hub)

	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	hub.BroadcastRunSnapshot(events.RunSnapshot{
		RunID:        "run-42",
		Status:       "running",
		Progress:     33,
		CurrentStage: "score",
		StartedAt:    &started,
		UpdatedAt:    time.Now().UTC(),
		Stages: []events.StageSnapshot{
			{ID: "load", Status: "completed"},
			{ID: "clean", Status: "completed"},
			{ID: "score", Status: "active"},
		},
	})

	select {
	case msg := <-client.send:
		var envelope events.WebSocketMessage
		require.NoError(t, json.Unmarshal(msg, &envelope))
		assert.Equal(t, events.MessageTypeRunSnapshot, envelope.Type)
		assert.NotEmpty(t, envelope.ID)

		data, ok := envelope.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "run-42", data["run_id"])
		assert.Equal(t, "running", data["status"])
		assert.Equal(t, float64(33), data["progress"])
		assert.Equal(t, "score", data["current_stage"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot broadcast")
	}
}

func TestHub_BroadcastRunSnapshotWithTrace(t *testing.T) {
	hub := newTestHub(t)
	client, _ := registerTestClient(t, hub)

	hub.BroadcastRunSnapshotWithTrace(events.RunSnapshot{RunID: "run-7", Status: "completed", Progress: 100}, "trace-xyz")

	select {
	case msg := <-client.send:
		var envelope events.WebSocketMessage
		require.NoError(t, json.Unmarshal(msg, &envelope))
		assert.Equal(t, "trace-xyz", envelope.TraceID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := newTestHub(t)
	first, _ := registerTestClient(t, hub)
	second, _ := registerTestClient(t, hub)

	hub.Broadcast(events.MessageTypeRunSnapshot, events.RunSnapshot{RunID: "run-1"})

	for _, client := range []*Client{first, second} {
		select {
		case msg := <-client.send:
			assert.Contains(t, string(msg), "run-1")
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	hub := newTestHub(t)
	client, _ := registerTestClient(t, hub)

	// Fill the client's buffer so the next broadcast cannot be queued
	for i := 0; i < cap(client.send); i++ {
		client.send <- []byte("backlog")
	}

	hub.BroadcastRunSnapshot(events.RunSnapshot{RunID: "run-9"})

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_StopSendsDisconnect(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()

	client, _ := registerTestClient(t, hub)
	hub.Stop()

	select {
	case msg, ok := <-client.send:
		require.True(t, ok)
		var envelope events.WebSocketMessage
		require.NoError(t, json.Unmarshal(msg, &envelope))
		assert.Equal(t, events.MessageTypeDisconnect, envelope.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnect message")
	}

	// Channel closes after the farewell
	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_StopTwice(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()

	hub.Stop()
	hub.Stop()
}

func TestHub_BroadcastAfterStopDoesNotBlock(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.BroadcastRunSnapshot(events.RunSnapshot{RunID: "run-after-stop"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked after hub stop")
	}
}

func TestHub_StartIdempotent(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	hub.Start()
	t.Cleanup(hub.Stop)

	registerTestClient(t, hub)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_GetHubMetrics(t *testing.T) {
	hub := newTestHub(t)
	client, _ := registerTestClient(t, hub)

	hub.BroadcastRunSnapshot(events.RunSnapshot{RunID: "run-3"})

	select {
	case <-client.send:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	require.Eventually(t, func() bool {
		metrics := hub.GetHubMetrics()
		return metrics["messages_sent"].(int64) >= 1
	}, time.Second, 10*time.Millisecond)

	metrics := hub.GetHubMetrics()
	assert.Equal(t, 1, metrics["active_clients"])
	assert.Equal(t, int64(1), metrics["total_connections"])
}
