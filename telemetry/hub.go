// Package telemetry bridges the simulation to remote UIs over websockets:
// snapshots go out, input flags and hand poses come in.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/akmonengine/rover/input"
	"github.com/akmonengine/rover/internal/logging"
	"github.com/akmonengine/rover/scene"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer      = 16
	writeWait       = time.Second
	shutdownTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// local debug bridge, any origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan Snapshot
}

type Hub struct {
	source *input.Source
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	hands   [len(scene.Hands)]scene.Pose
	posed   [len(scene.Hands)]bool
	closed  bool
}

func NewHub(source *input.Source, logger *zap.Logger) *Hub {
	return &Hub{
		source:  source,
		logger:  logging.OrNop(logger),
		clients: make(map[*client]struct{}),
	}
}

// Handler serves the websocket endpoint at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the server fails.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			h.logger.Warn("telemetry shutdown", zap.Error(err))
		}
		h.Close()
	}()

	h.logger.Info("telemetry listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan Snapshot, sendBuffer)}
	if !h.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "closing"))
		_ = conn.Close()
		return
	}
	h.logger.Debug("telemetry client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// unregister must be called with the lock held
func (h *Hub) unregister(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		h.unregister(c)
		h.mu.Unlock()
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("telemetry client read", zap.Error(err))
			}
			return
		}
		h.handle(msg)
	}
}

func (h *Hub) handle(msg Message) {
	if msg.Flags != nil && h.source != nil {
		h.source.Publish(input.MergeThumbsticks(*msg.Flags, msg.LeftStick, msg.RightStick))
	}
	if len(msg.Hands) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for name, pose := range msg.Hands {
		hand, ok := handByName(name)
		if !ok {
			h.logger.Debug("unknown hand", zap.String("hand", name))
			continue
		}
		h.hands[hand] = pose.Scene()
		h.posed[hand] = true
	}
}

func handByName(name string) (scene.Hand, bool) {
	for _, hand := range scene.Hands {
		if hand.String() == name {
			return hand, true
		}
	}
	return 0, false
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()

	for snapshot := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(snapshot); err != nil {
			h.logger.Debug("telemetry client write", zap.Error(err))
			// the reader fails on the closed conn and unregisters the client
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Publish sends the snapshot to every client without blocking. Clients too
// slow to keep up are dropped.
func (h *Hub) Publish(snapshot Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- snapshot:
		default:
			h.logger.Warn("telemetry client too slow, dropped", zap.String("remote", c.conn.RemoteAddr().String()))
			h.unregister(c)
		}
	}
}

// HandPose returns the last hand pose received from a client.
func (h *Hub) HandPose(hand scene.Hand) (scene.Pose, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if hand < 0 || int(hand) >= len(h.hands) {
		return scene.Pose{}, false
	}
	return h.hands[hand], h.posed[hand]
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.unregister(c)
	}
}
