// Package web streams matches to browsers over websockets.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/sim"
)

const writeWait = 2 * time.Second

// Resizer receives viewport changes reported by browsers.
type Resizer interface {
	RequestResize(width, height float64)
}

type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type configMsg struct {
	Type string  `json:"type"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	Size float64 `json:"size"`
}

// stateMsg carries agents as [x, y, type] triples to keep frames small.
type stateMsg struct {
	Type    string       `json:"type"`
	Tick    int          `json:"tick"`
	Agents  [][3]float64 `json:"agents"`
	Counts  sim.Counts   `json:"counts"`
	Sum     int          `json:"sum"`
	Winner  string       `json:"winner,omitempty"`
	Elapsed int          `json:"elapsed"`
	Paused  bool         `json:"paused,omitempty"`
	Arena   sim.Arena    `json:"arena"`
}

type clientMsg struct {
	Type string  `json:"type"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// Hub is a pump renderer that fans snapshots out to every connected
// browser. Slow or broken clients are dropped.
type Hub struct {
	log      *slog.Logger
	resizer  Resizer
	upgrader websocket.Upgrader
	states   chan []byte

	mu      sync.Mutex
	clients map[*Client]struct{}
	arena   sim.Arena
}

func NewHub(arena sim.Arena, resizer Resizer, logger *slog.Logger) *Hub {
	return &Hub{
		log:      logging.OrDiscard(logger),
		resizer:  resizer,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		states:   make(chan []byte, 10),
		clients:  make(map[*Client]struct{}),
		arena:    arena,
	}
}

// SetResizer attaches the pump once it exists.
func (h *Hub) SetResizer(r Resizer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resizer = r
}

// Render encodes the frame and queues it for broadcast. It never blocks the
// pump; when the queue is full the frame is dropped.
func (h *Hub) Render(_ context.Context, f pump.Frame) error {
	msg := stateMsg{
		Type:    "state",
		Tick:    f.Tick,
		Agents:  make([][3]float64, len(f.Agents)),
		Counts:  f.Counts,
		Sum:     f.Counts.Total(),
		Elapsed: int(f.Elapsed / time.Second),
		Paused:  f.Paused,
		Arena:   f.Arena,
	}
	for i, a := range f.Agents {
		msg.Agents[i] = [3]float64{a.X, a.Y, float64(a.Type)}
	}
	if f.Match.Concluded() {
		msg.Winner = f.Match.Winner.String()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.arena = f.Arena
	h.mu.Unlock()

	select {
	case h.states <- data:
	default:
	}
	return nil
}

// Run broadcasts queued frames until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case data := <-h.states:
			h.broadcast(data)
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	list := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.Unlock()

	for _, c := range list {
		if err := c.Send(data); err != nil {
			h.log.Debug("client send error", "error", err)
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	list := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
	for c := range list {
		c.conn.Close()
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps reading viewport updates until
// the browser goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}
	client := &Client{conn: conn}

	h.mu.Lock()
	arena := h.arena
	h.mu.Unlock()

	// The config message goes out before the client is registered so it is
	// always the first frame a viewer sees.
	hello, _ := json.Marshal(configMsg{Type: "config", W: arena.Width, H: arena.Height, Size: arena.Size})
	if err := client.Send(hello); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.log.Info("viewer connected", "remote", r.RemoteAddr)

	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "resize":
			h.mu.Lock()
			rs := h.resizer
			h.mu.Unlock()
			if rs != nil && msg.W > 0 && msg.H > 0 {
				rs.RequestResize(msg.W, msg.H)
			}
		default:
			h.log.Debug("unknown viewer message", "type", msg.Type)
		}
	}

	h.drop(client)
	h.log.Info("viewer disconnected", "remote", r.RemoteAddr)
}
