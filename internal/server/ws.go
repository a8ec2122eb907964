package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	clientBuffer = 64
	writeWait    = time.Second
)

// Message types on the event feed.
const (
	MessageEvent = "event"
	MessagePose  = "pose"
	MessageState = "state"
)

// Message is one frame of the event feed.
type Message struct {
	Type       string           `json:"type"`
	Event      *gesture.Event   `json:"event,omitempty"`
	Hand       hand.Side        `json:"hand,omitempty"`
	Pose       string           `json:"pose,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	State      *engine.Snapshot `json:"state,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans recognition output out to websocket clients. It is an engine
// sink and pose observer; slow clients drop messages rather than stall
// the tick.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a Hub with no clients.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.Named("events"),
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleTick implements engine.Sink.
func (h *Hub) HandleTick(_ time.Time, events []gesture.Event) {
	for i := range events {
		h.broadcast(Message{Type: MessageEvent, Event: &events[i]})
	}
}

// OnPoseChange is an engine.PoseObserver.
func (h *Hub) OnPoseChange(side hand.Side, pose string, confidence float64) {
	h.broadcast(Message{Type: MessagePose, Hand: side, Pose: pose, Confidence: confidence})
}

// SnapshotSource publishes engine snapshots.
type SnapshotSource interface {
	Snapshot() *engine.Snapshot
}

// Run publishes changed engine snapshots every interval while clients are
// connected, until ctx is cancelled.
func (h *Hub) Run(ctx context.Context, e SnapshotSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *engine.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if h.Clients() == 0 {
			continue
		}
		snap := e.Snapshot()
		if snap == nil || snap == last {
			continue
		}
		last = snap
		h.broadcast(Message{Type: MessageState, State: snap})
	}
}

func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.Error(err))
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("dropping message for slow client", zap.String("type", msg.Type))
		}
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go h.writePump(c, done)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(done)
	conn.Close()
	h.logger.Debug("client disconnected", zap.String("remote", r.RemoteAddr))
}

func (h *Hub) writePump(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
