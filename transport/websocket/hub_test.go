package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/service"
)

func newTestClient(hub *Hub, roverID string) *Client {
	return &Client{
		hub:     hub,
		roverID: roverID,
		send:    make(chan []byte, 256),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var message Message
		require.NoError(t, json.Unmarshal(data, &message))
		return message
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No message received within timeout")
	}
	return Message{}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	require.NotNil(t, hub)
	assert.NotNil(t, hub.rovers)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.Equal(t, broadcastBuffer, cap(hub.broadcast))
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(hub, "r1")

	hub.registerClient(client)

	require.Contains(t, hub.rovers, "r1")
	assert.True(t, hub.rovers["r1"][client])
	assert.Len(t, hub.rovers["r1"], 1)
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client1 := newTestClient(hub, "r1")
	client2 := newTestClient(hub, "r1")

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.unregisterClient(client1)

	assert.Len(t, hub.rovers["r1"], 1)
	assert.True(t, hub.rovers["r1"][client2])

	_, open := <-client1.send
	assert.False(t, open, "unregister closes the send channel")

	hub.unregisterClient(client2)
	assert.NotContains(t, hub.rovers, "r1", "empty subscriber sets are cleaned up")

	// unregistering twice is a no-op
	hub.unregisterClient(client2)
}

func TestHubBroadcastToRoverAndFleet(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	watcher := newTestClient(hub, "r1")
	other := newTestClient(hub, "r2")
	fleet := newTestClient(hub, AllRovers)

	hub.registerClient(watcher)
	hub.registerClient(other)
	hub.registerClient(fleet)

	pos := rover.Position{Coordinates: rover.NewCoordinates(5, 3), Heading: rover.East}
	hub.broadcastMessage(&Message{RoverID: "r1", Event: service.EventMoved, Position: &pos})

	for _, c := range []*Client{watcher, fleet} {
		message := receive(t, c)
		assert.Equal(t, "r1", message.RoverID)
		assert.Equal(t, service.EventMoved, message.Event)
		require.NotNil(t, message.Position)
		assert.Equal(t, pos, *message.Position)
	}
	assert.Empty(t, other.send)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{hub: hub, roverID: "r1", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{RoverID: "r1", Event: service.EventRotated})

	assert.NotContains(t, hub.rovers, "r1")
}

func TestNotify(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	hub.Notify(service.Event{RoverID: "r1", Event: service.EventDeployed, Position: rover.Position{Heading: rover.North}})
	hub.Notify(service.Event{RoverID: "r1", Event: service.EventDeleted})

	deployed := <-hub.broadcast
	assert.Equal(t, service.EventDeployed, deployed.Event)
	assert.NotNil(t, deployed.Position)

	deleted := <-hub.broadcast
	assert.Nil(t, deleted.Position)
}

func TestNotifyNeverBlocks(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Notify(service.Event{RoverID: "r1", Event: service.EventMoved})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no hub running")
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("rover"))
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketLifecycle(t *testing.T) {
	hub, wsURL := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?rover=ws-test", nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub, wsURL := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?rover=msg-test", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(service.Event{
		RoverID:  "msg-test",
		Event:    service.EventMoved,
		Position: rover.Position{Coordinates: rover.NewCoordinates(10, 15), Heading: rover.South},
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message Message
	require.NoError(t, json.Unmarshal(data, &message))
	assert.Equal(t, "msg-test", message.RoverID)
	require.NotNil(t, message.Position)
	assert.Equal(t, rover.NewCoordinates(10, 15), message.Position.Coordinates)
	assert.Equal(t, rover.South, message.Position.Heading)
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, hub.Clients())
}
