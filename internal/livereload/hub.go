package livereload

import (
	"context"
	"log/slog"
	"sync"
)

// Event is sent to browsers when a file under the site root changes.
type Event struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Hub tracks connected clients and fans out reload events.
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	onClientCount func(n int)
	logger        *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// OnClientCount registers a hook fed with the client count after every change.
// Call before Run.
func (h *Hub) OnClientCount(fn func(n int)) {
	h.onClientCount = fn
}

// Run processes hub events until ctx is done; remaining clients are closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.reportCount()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.reportCount()
			h.logger.Debug("live reload client registered", "total_clients", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.reportCount()
			h.logger.Debug("live reload client unregistered", "total_clients", h.ClientCount())

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("live reload client too slow, disconnected")
				}
			}
			h.mu.Unlock()
			h.reportCount()
		}
	}
}

// Register adds client. Once the hub has stopped the client is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Reload queues a reload event for every client; dropped when the queue is full.
func (h *Hub) Reload(path string) {
	select {
	case h.broadcast <- Event{Type: "reload", Path: path}:
	default:
		h.logger.Warn("live reload queue full, dropping event", "path", path)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) reportCount() {
	if h.onClientCount != nil {
		h.onClientCount(h.ClientCount())
	}
}
