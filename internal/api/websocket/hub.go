package websocket

import (
	"encoding/json"
	"sync"

	"github.com/KevinKickass/OpenPowerCore/internal/auth"
	"github.com/KevinKickass/OpenPowerCore/internal/board"
	"github.com/KevinKickass/OpenPowerCore/internal/power"
	"go.uber.org/zap"
)

// SnapshotProvider returns the dumpstate of every interface.
type SnapshotProvider interface {
	DumpState(target string) ([]board.InterfaceSnapshot, error)
}

// Hub maintains active WebSocket clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Clients asking for a fresh snapshot
	snapshotReq chan *Client

	stop    chan struct{}
	stopped chan struct{}

	mu sync.RWMutex

	logger *zap.Logger

	authService *auth.AuthService

	// Optional; sent to every client once it is registered
	snapshots SnapshotProvider
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger, authService *auth.AuthService) *Hub {
	return &Hub{
		broadcast:   make(chan Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		snapshotReq: make(chan *Client),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
		clients:     make(map[*Client]bool),
		logger:      logger,
		authService: authService,
	}
}

func (h *Hub) SetSnapshotProvider(provider SnapshotProvider) {
	h.snapshots = provider
}

// Run starts the hub's main event loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.stopped)

	h.logger.Info("WebSocket Hub started")
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client registered",
				zap.String("remote_addr", client.remoteAddr()),
				zap.Int("total_clients", total))
			h.sendSnapshot(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("WebSocket client unregistered",
					zap.String("remote_addr", client.remoteAddr()),
					zap.Int("total_clients", len(h.clients)))
			}
			h.mu.Unlock()

		case client := <-h.snapshotReq:
			h.mu.RLock()
			ok := h.clients[client]
			h.mu.RUnlock()
			if ok {
				h.sendSnapshot(client)
			}

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("Failed to marshal broadcast message",
					zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client send channel full - unregister slow/dead client
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client send buffer full, unregistering",
						zap.String("remote_addr", client.remoteAddr()))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	select {
	case <-h.stop:
		return
	default:
		close(h.stop)
	}
	<-h.stopped
}

// sendSnapshot queues the current dumpstate for one registered client.
// Called from Run only, so client.send is still open.
func (h *Hub) sendSnapshot(client *Client) {
	if h.snapshots == nil {
		return
	}
	snaps, err := h.snapshots.DumpState(board.AllInterfaces)
	if err != nil {
		h.logger.Error("Failed to build snapshot", zap.Error(err))
		return
	}
	data, err := json.Marshal(NewSnapshotMessage(snaps))
	if err != nil {
		h.logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
		// Message queued for broadcast
	default:
		h.logger.Warn("Hub broadcast channel full, message dropped",
			zap.String("message_type", string(msg.Type)))
	}
}

// HotplugListener forwards sampler events without blocking the sampler.
func (h *Hub) HotplugListener() board.HotplugListener {
	return func(ev board.HotplugEvent) { h.Broadcast(NewHotplugMessage(ev)) }
}

func (h *Hub) PowerListener() power.PowerListener {
	return func(ev power.PowerEvent) { h.Broadcast(NewPowerMessage(ev)) }
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
