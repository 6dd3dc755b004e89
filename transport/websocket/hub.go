package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending broadcasts before Notify starts dropping
	broadcastBuffer = 256
)

// AllRovers is the subscription key for clients that watch the whole fleet
const AllRovers = ""

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	RoverID  string          `json:"rover_id"`
	Event    string          `json:"event"`
	Position *rover.Position `json:"position,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	roverID string
}

// Hub maintains the set of active clients and broadcasts rover events.
// Only the Run loop touches the subscriber map.
type Hub struct {
	// Registered clients by rover ID; AllRovers holds fleet watchers
	rovers map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	stats      chan chan int
	done       chan struct{}

	logger zerolog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rovers:     make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stats:      make(chan chan int),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "websocket").Logger(),
	}
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.rovers {
				for client := range clients {
					close(client.send)
				}
			}
			h.rovers = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case reply := <-h.stats:
			n := 0
			for _, clients := range h.rovers {
				n += len(clients)
			}
			reply <- n
		}
	}
}

// Clients returns the number of connected clients, or 0 once Run has stopped
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.stats <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Notify queues a rover event for subscribers. It never blocks: when the
// queue is full the event is dropped.
func (h *Hub) Notify(event service.Event) {
	message := &Message{RoverID: event.RoverID, Event: event.Event}
	if event.Event != service.EventDeleted {
		pos := event.Position
		message.Position = &pos
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn().
			Str("rover_id", event.RoverID).
			Str("event", event.Event).
			Msg("broadcast queue full, dropping event")
	}
}

// ServeWS upgrades the request and subscribes the connection to roverID,
// or to every rover when roverID is AllRovers.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roverID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		roverID: roverID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// registerClient adds a client to a rover's subscribers
func (h *Hub) registerClient(client *Client) {
	if h.rovers[client.roverID] == nil {
		h.rovers[client.roverID] = make(map[*Client]bool)
	}
	h.rovers[client.roverID][client] = true

	h.logger.Debug().
		Str("rover_id", client.roverID).
		Int("clients", len(h.rovers[client.roverID])).
		Msg("client registered")
}

// unregisterClient removes a client from a rover's subscribers
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.rovers[client.roverID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.rovers, client.roverID)
			}

			h.logger.Debug().
				Str("rover_id", client.roverID).
				Int("clients", len(clients)).
				Msg("client unregistered")
		}
	}
}

// broadcastMessage sends a message to the rover's subscribers and fleet watchers
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	h.deliver(h.rovers[message.RoverID], data)
	if message.RoverID != AllRovers {
		h.deliver(h.rovers[AllRovers], data)
	}
}

func (h *Hub) deliver(clients map[*Client]bool, data []byte) {
	for client := range clients {
		select {
		case client.send <- data:
		default:
			// slow consumer
			h.unregisterClient(client)
		}
	}
}

// readPump keeps the connection alive and unregisters on close
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Incoming messages are ignored
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Str("rover_id", c.roverID).Msg("websocket closed")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
