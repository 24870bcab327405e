package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers run to several KiB.
	maxMessageSize = 64 * 1024
)

// EventError is sent to the originating connection when handling one of its
// frames fails.
const EventError = "error"

// ErrorPayload is the body of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SendError reports err to c alone. Internal errors are sanitized.
func SendError(c *Conn, err error) {
	p := ErrorPayload{Message: apperr.PublicMessage(err)}
	if e, ok := apperr.As(err); ok {
		p.Code = e.Code
	}
	if apperr.KindOf(err) == apperr.Internal {
		log.Printf("realtime: conn %s (user %s): %v", c.ID, c.UserID, err)
	}
	if sendErr := c.Send(EventError, p); sendErr != nil {
		log.Printf("realtime: %v", sendErr)
	}
}

// Authenticator resolves the user behind an upgrade request.
type Authenticator func(r *http.Request) (*models.User, error)

// Dispatcher handles one inbound frame. It runs on the connection's read
// goroutine, so frames from one connection are handled in arrival order.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Conn, f Frame)
}

// Handler upgrades authenticated requests and runs the connection pumps.
type Handler struct {
	hub        *Hub
	authn      Authenticator
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
}

// NewHandler returns the websocket endpoint. An empty origins list, or one
// containing "*", accepts every origin.
func NewHandler(hub *Hub, authn Authenticator, d Dispatcher, origins []string) *Handler {
	h := &Handler{hub: hub, authn: authn, dispatcher: d}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowed) == 0 || allowed[origin]
	}
}

// ServeHTTP rejects unauthenticated requests before the upgrade, so a failed
// handshake leaves no state behind.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.authn(r)
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.Internal {
			log.Printf("realtime: authenticate: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(kind.HTTPStatus())
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": apperr.PublicMessage(err)})
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade for %s: %v", user.ID, err)
		return
	}

	c := NewConn(user.ID, user.Role, DefaultQueueSize)
	h.hub.Attach(c)
	log.Printf("realtime: user %s connected (conn %s)", user.ID, c.ID)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go h.writePump(ws, c)
	h.readPump(ctx, ws, c)
}

func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, c *Conn) {
	defer func() {
		h.hub.Detach(c)
		ws.Close()
		log.Printf("realtime: user %s disconnected (conn %s)", c.UserID, c.ID)
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime: read from %s: %v", c.ID, err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
			SendError(c, apperr.Validationf("Invalid message format"))
			continue
		}
		h.dispatcher.Dispatch(ctx, c, f)
	}
}

func (h *Handler) writePump(ws *websocket.Conn, c *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case msg := <-c.Outbound():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("realtime: write to %s: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
