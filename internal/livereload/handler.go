package livereload

import (
	_ "embed"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Routes served when live reload is enabled.
const (
	SocketPath = "/__livereload"
	ScriptPath = "/__livereload.js"
)

//go:embed client.js
var clientScript []byte

// Handler upgrades browser connections and serves the client script.
type Handler struct {
	hub            *Hub
	logger         *slog.Logger
	allowedOrigins map[string]struct{}
	upgrader       websocket.Upgrader
}

func NewHandler(hub *Hub, allowedOrigins []string, logger *slog.Logger) *Handler {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			originMap[trimmed] = struct{}{}
		}
	}

	h := &Handler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: originMap,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Register mounts the live reload routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+SocketPath, h.HandleConnection)
	mux.HandleFunc("GET "+ScriptPath, h.ServeScript)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	if _, ok := h.allowedOrigins[parsed.Scheme+"://"+parsed.Host]; ok {
		return true
	}
	_, ok := h.allowedOrigins["*"]
	return ok
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("live reload upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	client := NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) ServeScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(clientScript)
}
