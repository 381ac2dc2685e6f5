package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Single-user app; the bearer token gates access.
		return true
	},
}

// event is one server-to-client push.
type event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// wsConn is the slice of *websocket.Conn the hub uses.
type wsConn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// wsClient serializes writes to one connection. Events arrive from several
// goroutines (HTTP handlers, the read loop, scheduler and intimacy
// callbacks) and gorilla/websocket allows only one writer at a time.
type wsClient struct {
	conn wsConn

	mu sync.Mutex
}

func (c *wsClient) write(ev event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

// hub tracks live connections per character.
type hub struct {
	mu    sync.RWMutex
	conns map[string]map[*wsClient]bool
}

func newHub() *hub {
	return &hub{conns: make(map[string]map[*wsClient]bool)}
}

func (h *hub) add(characterID string, conn wsConn) *wsClient {
	client := &wsClient{conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[characterID] == nil {
		h.conns[characterID] = make(map[*wsClient]bool)
	}
	h.conns[characterID][client] = true
	return client
}

func (h *hub) remove(characterID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[characterID], client)
	if len(h.conns[characterID]) == 0 {
		delete(h.conns, characterID)
	}
}

func (h *hub) broadcast(characterID string, ev event) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.conns[characterID]))
	for client := range h.conns[characterID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(ev); err != nil {
			slog.Debug("websocket write failed", "character", characterID, "error", err)
		}
	}
}

// wsInbound is a client message over the socket.
type wsInbound struct {
	Text string `json:"text"`
}

// serveWS upgrades the connection and runs a read loop. Each inbound text
// runs a full turn; deltas and turn results flow back through the hub so
// every connection for the character sees them.
func (s *Server) serveWS(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := s.hub.add(character.ID, conn)
	defer func() {
		s.hub.remove(character.ID, client)
		conn.Close()
	}()

	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed unexpectedly", "character", character.ID, "error", err)
			}
			return
		}
		if inbound.Text == "" {
			continue
		}

		result, err := s.chats.Send(c.Request.Context(), character, inbound.Text, func(delta string) {
			s.hub.broadcast(character.ID, event{Type: "delta", Data: delta})
		})
		if err != nil {
			s.hub.broadcast(character.ID, event{Type: "error", Data: err.Error()})
			continue
		}
		s.hub.broadcast(character.ID, event{Type: "turn", Data: turnPayload(result)})
	}
}
