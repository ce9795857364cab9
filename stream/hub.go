// Package stream serves a headless simulation over websockets. Every
// connected client receives JSON frames and may send text commands back.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/physics"
)

const (
	writeWait    = 2 * time.Second
	sendBuffer   = 4
	commandQueue = 64
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Frame is the message broadcast to clients
type Frame struct {
	RunID string `json:"run_id"`
	physics.Snapshot
}

type errorReply struct {
	Error string `json:"error"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks websocket clients, fans frames out to them and collects their
// commands for the simulation goroutine.
type Hub struct {
	runID    string
	log      *zap.Logger
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	commands chan Command

	origins []string

	mu      sync.Mutex
	clients map[*client]struct{}
}

// HubOption customizes a Hub
type HubOption func(*Hub)

// WithOrigins admits browser clients from the listed origins, e.g.
// "http://localhost:3000", in addition to the hub's own host. "*" admits
// any origin.
func WithOrigins(origins ...string) HubOption {
	return func(h *Hub) {
		h.origins = append(h.origins, origins...)
	}
}

// NewHub creates a hub broadcasting at most fps frames per second. An empty
// runID is replaced with a fresh UUID.
func NewHub(runID string, fps float64, burst int, log *zap.Logger, opts ...HubOption) *Hub {
	if runID == "" {
		runID = uuid.NewString()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if burst < 1 {
		burst = 1
	}
	h := &Hub{
		runID:    runID,
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(fps), burst),
		commands: make(chan Command, commandQueue),
		clients:  make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits clients that send no Origin (non-browsers), browsers on
// the hub's own host and the configured origins
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	h.log.Warn("origin refused", zap.String("origin", origin), zap.String("host", r.Host))
	return false
}

// RunID identifies this process in every frame
func (h *Hub) RunID() string { return h.runID }

// Commands delivers parsed client commands
func (h *Hub) Commands() <-chan Command { return h.commands }

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and serves the client until it leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		var hs websocket.HandshakeError
		if !errors.As(err, &hs) {
			h.log.Warn("upgrade failed", zap.Error(err))
		}
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	h.log.Info("client connected", zap.String("remote", r.RemoteAddr))

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writePump(c)
	}()
	h.readPump(c)

	h.unregister(c)
	<-writeDone
	h.log.Info("client disconnected", zap.String("remote", r.RemoteAddr))
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) readPump(c *client) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("read", zap.Error(err))
			}
			return
		}
		cmd, err := ParseCommand(string(msg))
		if err != nil {
			h.reply(c, errorReply{Error: err.Error()})
			continue
		}
		select {
		case h.commands <- cmd:
		default:
			h.log.Warn("command queue full, dropping", zap.String("command", string(msg)))
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("write", zap.Error(err))
			// Unblock readPump; the handler then closes send
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) reply(c *client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Broadcast sends snap to every client unless the frame budget is spent.
// Slow clients miss frames rather than stall the simulation.
func (h *Hub) Broadcast(snap *physics.Snapshot) (bool, error) {
	if !h.limiter.Allow() {
		return false, nil
	}
	data, err := json.Marshal(Frame{RunID: h.runID, Snapshot: *snap})
	if err != nil {
		return false, fmt.Errorf("encode frame: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
	return true, nil
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// Loop advances a simulation at a fixed rate, applies hub commands between
// ticks and broadcasts the result.
type Loop struct {
	Hub       *Hub
	Control   *control.Controller
	TPS       int
	TimeScale float64
	Log       *zap.Logger
}

// Run blocks until ctx is cancelled or a client applies Quit
func (l *Loop) Run(ctx context.Context) error {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	tps := l.TPS
	if tps <= 0 {
		tps = 60
	}
	dt := l.TimeScale / float64(tps)
	sim := l.Control.Simulation()

	ticker := time.NewTicker(time.Second / time.Duration(tps))
	defer ticker.Stop()

	var snap physics.Snapshot
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-l.Hub.Commands():
			if err := cmd.Apply(l.Control); err != nil {
				log.Warn("command failed", zap.Stringer("action", cmd.Action), zap.Error(err))
			}
			if l.Control.QuitRequested() {
				return nil
			}
		case <-ticker.C:
			if err := l.Control.Update(); err != nil {
				log.Warn("held action failed", zap.Error(err))
			}
			stats := sim.Advance(dt)
			if stats.RepulsionErr != nil {
				log.Debug("tick", zap.Uint64("frame", stats.Frame), zap.Error(stats.RepulsionErr))
			}
			l.Control.Observe()

			sim.Snapshot(&snap)
			if _, err := l.Hub.Broadcast(&snap); err != nil {
				return err
			}
		}
	}
}
