package websocket

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/shared/testutil"
)

func TestNewClientWithConnection(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	conn := NewMockConnection()

	client := NewClientWithConnection(hub, conn, logger)

	require.NotNil(t, client)
	assert.NotEmpty(t, client.id)
	assert.Equal(t, "127.0.0.1:8080", client.remoteAddr)
	assert.Equal(t, 256, cap(client.send))
	assert.False(t, client.connectedAt.IsZero())
}

func TestClient_ReadPump(t *testing.T) {
	hub := newTestHub(t)
	client, conn := registerTestClient(t, hub)

	conn.AddReadMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`), nil)
	conn.AddReadMessage(websocket.TextMessage, []byte(`ignored client chatter`), nil)
	// ReadMessage errors once the queue is exhausted, ending the pump

	go client.ReadPump()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, conn.IsClosed, time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(maxMessageSize), conn.ReadLimit)
	assert.NotNil(t, conn.PongHandler)
	assert.Equal(t, int64(2), client.messagesReceived)
}

func TestClient_ReadPump_CountsTowardHub(t *testing.T) {
	hub := newTestHub(t)
	client, conn := registerTestClient(t, hub)

	conn.AddReadMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`), nil)

	go client.ReadPump()

	require.Eventually(t, func() bool {
		return hub.GetHubMetrics()["messages_received"].(int64) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClient_WritePump(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	conn := NewMockConnection()
	client := NewClientWithConnection(hub, conn, logger)

	client.send <- []byte(`{"type":"run:snapshot"}`)
	client.send <- []byte(`{"type":"run:snapshot","queued":true}`)
	close(client.send)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop after channel close")
	}

	written := conn.GetWrittenMessages()
	require.Len(t, written, 3)
	assert.Equal(t, websocket.TextMessage, written[0].Type)
	assert.Equal(t, []byte(`{"type":"run:snapshot"}`), written[0].Data)
	assert.Equal(t, websocket.TextMessage, written[1].Type)
	assert.Equal(t, websocket.CloseMessage, written[2].Type)
	assert.Equal(t, int64(2), client.messagesSent)
}

func TestClient_WritePump_StopsOnWriteError(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	conn := NewMockConnection()
	conn.WriteMessageFunc = func(messageType int, data []byte) error {
		return errors.New("peer gone")
	}
	client := NewClientWithConnection(hub, conn, logger)

	client.send <- []byte(`{"type":"run:snapshot"}`)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop after write error")
	}

	assert.Equal(t, int64(0), client.messagesSent)
}
