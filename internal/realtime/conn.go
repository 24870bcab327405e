package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sujalkunwar22/backend/internal/models"
)

// DefaultQueueSize is the per-connection outbound buffer.
const DefaultQueueSize = 64

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals one outbound frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("realtime: encode %s: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// Conn is one authenticated live connection.
type Conn struct {
	ID     string
	UserID string
	Role   models.Role

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewConn returns a connection for an authenticated user. queue <= 0 uses
// DefaultQueueSize.
func NewConn(userID string, role models.Role, queue int) *Conn {
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
	}
}

// enqueue queues b without blocking. A closed connection or a full queue
// drops the frame.
func (c *Conn) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Send queues one event for this connection only.
func (c *Conn) Send(event string, data any) error {
	b, err := Encode(event, data)
	if err != nil {
		return err
	}
	if !c.enqueue(b) {
		return fmt.Errorf("realtime: conn %s: %s dropped", c.ID, event)
	}
	return nil
}

// Outbound is the stream drained by the write pump.
func (c *Conn) Outbound() <-chan []byte { return c.send }

// Done is closed once the connection is detached.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}
