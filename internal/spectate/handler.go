package spectate

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomz197/ciphertower/internal/loop/server"
)

// writeWait bounds a single websocket write.
const writeWait = 10 * time.Second

// Message is one frame sent to a viewer: the event that triggered it and
// the full state after that event.
type Message struct {
	Type  string           `json:"type"`
	Event string           `json:"event,omitempty"`
	Game  uuid.UUID        `json:"game"`
	State *server.Snapshot `json:"state"`
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Logger *log.Logger
}

// Handler serves the game list and the websocket snapshot stream.
type Handler struct {
	registry *Registry
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a spectator handler over registry.
func NewHandler(registry *Registry, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Routes returns a mux with /games (JSON list) and /watch?id=<game>.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/games", h.List)
	mux.HandleFunc("/watch", h.Watch)
	return mux
}

// List writes the registered games as JSON.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.registry.List()); err != nil {
		h.logger.Debug("write game list", "err", err)
	}
}

// Watch upgrades the request and streams snapshots of one game: the
// current state first, then the state after every engine event.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "missing or invalid id", http.StatusBadRequest)
		return
	}
	src, ok := h.registry.Lookup(id)
	if !ok {
		http.Error(w, "unknown game", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "game", id, "err", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := src.Subscribe()
	defer unsubscribe()

	// Viewers never send anything meaningful; reading detects disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info("spectator attached", "game", id, "remote", r.RemoteAddr)
	defer h.logger.Info("spectator detached", "game", id, "remote", r.RemoteAddr)

	if err := h.send(conn, Message{Type: "snapshot", Game: id, State: redact(src.Snapshot())}); err != nil {
		return
	}
	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game closed")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			msg := Message{Type: "snapshot", Event: ev.Type.String(), Game: id, State: redact(src.Snapshot())}
			if err := h.send(conn, msg); err != nil {
				return
			}
		}
	}
}

// redact drops what the player revealed by signing. Spectators are not
// authorized to see decrypted intel.
func redact(s *server.Snapshot) *server.Snapshot {
	c := *s
	c.Intel = nil
	c.Selected = 0
	return &c
}

func (h *Handler) send(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal snapshot", "game", msg.Game, "err", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("write snapshot", "game", msg.Game, "err", err)
		return err
	}
	return nil
}
