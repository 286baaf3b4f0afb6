package fakeserver

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"vinnyverse-client/internal/protocol"
)

// frame is one outgoing WebSocket message.
type frame struct {
	typ  websocket.MessageType
	data []byte
}

// Received is a command the hub accepted from a logged-in client.
type Received struct {
	Username string
	Type     string
	Payload  map[string]any
}

type command struct {
	client *Client
	env    protocol.Envelope
}

// Hub maintains the set of logged-in clients, applies their commands to the
// world, and broadcasts snapshots.
type Hub struct {
	// Registered clients. Owned by the Run goroutine.
	clients map[*Client]bool

	broadcast  chan frame
	register   chan *Client
	unregister chan *Client
	commands   chan command
	stop       chan struct{}
	stopOnce   sync.Once

	World  *World
	logger *zap.Logger

	online   atomic.Int64
	mu       sync.Mutex
	received []Received
}

// NewHub creates a Hub around world.
func NewHub(world *World, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan frame),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan command),
		stop:       make(chan struct{}),
		World:      world,
		logger:     logger,
	}
}

// Stop shuts down the hub: closes all client send channels and exits Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Online returns the number of logged-in clients.
func (h *Hub) Online() int {
	return int(h.online.Load())
}

// Received returns every command accepted so far, in arrival order.
func (h *Hub) Received() []Received {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Received(nil), h.received...)
}

// Run starts the hub's event loop. It should be called in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.online.Store(int64(len(h.clients)))
			h.sendTo(client, h.snapshotFrame())
			h.logger.Info("player joined",
				zap.String("username", client.Username),
				zap.Int("online", len(h.clients)),
			)

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Info("player left",
					zap.String("username", client.Username),
					zap.Int("online", len(h.clients)),
				)
			}

		case msg := <-h.broadcast:
			h.broadcastFrame(msg)

		case cmd := <-h.commands:
			h.apply(cmd)
		}
	}
}

// Broadcast sends a raw message to all logged-in clients via the event loop.
func (h *Hub) Broadcast(typ websocket.MessageType, data []byte) {
	select {
	case h.broadcast <- frame{typ: typ, data: data}:
	case <-h.stop:
	}
}

// BroadcastSnapshot pushes the current world to every client.
func (h *Hub) BroadcastSnapshot() {
	h.Broadcast(websocket.MessageBinary, h.snapshotFrame().data)
}

// Tick advances the world by one sun step and broadcasts it.
func (h *Hub) Tick() {
	h.World.Sun()
	h.BroadcastSnapshot()
}

// apply records a command and acts on the ones the fake world understands.
// MUST be called only from the Run goroutine.
func (h *Hub) apply(cmd command) {
	payload, err := protocol.DecodePayload(cmd.env.Payload)
	if err != nil {
		h.sendTo(cmd.client, textFrame(fmt.Sprintf("Failed to parse JSON: %v", err)))
		return
	}
	if payload[protocol.SoulIDKey] != cmd.client.token {
		h.sendTo(cmd.client, textFrame("unauthorized: bad soul_id"))
		return
	}

	h.mu.Lock()
	h.received = append(h.received, Received{Username: cmd.client.Username, Type: cmd.env.Type, Payload: payload})
	h.mu.Unlock()

	switch cmd.env.Type {
	case protocol.KindBuild:
		x, okX := intField(payload, "X")
		y, okY := intField(payload, "Y")
		if !okX || !okY {
			h.sendTo(cmd.client, textFrame("Build requires integer X and Y"))
			return
		}
		power, _ := intField(payload, "power")
		occ := protocol.Occupant{
			Kind:        stringField(payload, "block_type"),
			ID:          cmd.client.SoulID,
			Energy:      power,
			Orientation: stringField(payload, "dir"),
		}
		if err := h.World.Place(x, y, occ); err != nil {
			h.sendTo(cmd.client, textFrame(err.Error()))
			return
		}
		h.broadcastFrame(h.snapshotFrame())
	default:
		h.logger.Debug("command recorded", zap.String("type", cmd.env.Type))
	}
}

func (h *Hub) snapshotFrame() frame {
	data, err := protocol.EncodeSnapshot(h.World.Cells())
	if err != nil {
		h.logger.Error("encoding snapshot", zap.Error(err))
		data = []byte("[]")
	}
	return frame{typ: websocket.MessageBinary, data: data}
}

// broadcastFrame sends msg directly to every client's send channel.
// MUST be called only from the Run goroutine (which owns the clients map).
func (h *Hub) broadcastFrame(msg frame) {
	for client := range h.clients {
		h.sendTo(client, msg)
	}
}

// sendTo queues msg for client, dropping clients that cannot keep up.
// MUST be called only from the Run goroutine.
func (h *Hub) sendTo(client *Client, msg frame) {
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- msg:
	default:
		h.logger.Warn("client too slow, dropping", zap.String("username", client.Username))
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.online.Store(int64(len(h.clients)))
}

func textFrame(s string) frame {
	return frame{typ: websocket.MessageText, data: []byte(s)}
}

func intField(payload map[string]any, key string) (int, bool) {
	n, ok := payload[key].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return strings.TrimSpace(s)
}
