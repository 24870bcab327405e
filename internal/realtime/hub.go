package realtime

import (
	"context"
	"log"
	"sync"

	"github.com/sujalkunwar22/backend/internal/apperr"
)

// MembershipChecker decides whether a user may join a conversation room.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, convID, userID string) (bool, error)
}

// Hub owns room membership for every live connection of the process.
type Hub struct {
	members MembershipChecker

	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[Room]map[string]*Conn
	// joined indexes rooms by connection id for Detach.
	joined map[string]map[Room]struct{}
}

// NewHub returns an empty hub.
func NewHub(members MembershipChecker) *Hub {
	return &Hub{
		members: members,
		conns:   make(map[string]*Conn),
		rooms:   make(map[Room]map[string]*Conn),
		joined:  make(map[string]map[Room]struct{}),
	}
}

// Attach registers c and places it in its user room.
func (h *Hub) Attach(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
	h.joinLocked(c, UserRoom(c.UserID))
}

// Detach removes c from every room and closes it. Calling it twice is safe.
func (h *Hub) Detach(c *Conn) {
	h.mu.Lock()
	for room := range h.joined[c.ID] {
		h.leaveLocked(c, room)
	}
	delete(h.joined, c.ID)
	delete(h.conns, c.ID)
	h.mu.Unlock()
	c.close()
}

// JoinConversation adds c to the room of convID after checking that c's user
// participates. The check runs on every join.
func (h *Hub) JoinConversation(ctx context.Context, c *Conn, convID string) error {
	if convID == "" {
		return apperr.Validationf("conversationId is required")
	}
	ok, err := h.members.IsParticipant(ctx, convID, c.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbiddenf("Access denied: You are not a participant")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.conns[c.ID]; !live {
		return apperr.Validationf("Connection closed")
	}
	h.joinLocked(c, ConversationRoom(convID))
	return nil
}

// LeaveConversation removes c from the room of convID. Leaving a room c is
// not in is a no-op.
func (h *Hub) LeaveConversation(c *Conn, convID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, ConversationRoom(convID))
}

func (h *Hub) joinLocked(c *Conn, room Room) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Conn)
		h.rooms[room] = members
	}
	members[c.ID] = c
	set, ok := h.joined[c.ID]
	if !ok {
		set = make(map[Room]struct{})
		h.joined[c.ID] = set
	}
	set[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Conn, room Room) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if set, ok := h.joined[c.ID]; ok {
		delete(set, room)
	}
}

// InRoom reports whether c is a member of room.
func (h *Hub) InRoom(c *Conn, room Room) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c.ID]
	return ok
}

// Emit sends event to every member of room and returns the number of
// connections that accepted the frame.
func (h *Hub) Emit(room Room, event string, data any) int {
	return h.EmitExcept(room, "", event, data)
}

// EmitExcept is Emit skipping the connection with id exceptConn.
func (h *Hub) EmitExcept(room Room, exceptConn, event string, data any) int {
	b, err := Encode(event, data)
	if err != nil {
		log.Printf("realtime: %s to %s: %v", event, room, err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for id, c := range h.rooms[room] {
		if id == exceptConn {
			continue
		}
		if c.enqueue(b) {
			n++
		}
	}
	return n
}

// ToUser sends event to every connection of userID.
func (h *Hub) ToUser(userID, event string, data any) int {
	return h.Emit(UserRoom(userID), event, data)
}

// ToConversation sends event to every connection joined to convID.
func (h *Hub) ToConversation(convID, event string, data any) int {
	return h.Emit(ConversationRoom(convID), event, data)
}

// Broadcast sends event to every live connection except those of
// exceptUser.
func (h *Hub) Broadcast(exceptUser, event string, data any) int {
	b, err := Encode(event, data)
	if err != nil {
		log.Printf("realtime: broadcast %s: %v", event, err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.conns {
		if exceptUser != "" && c.UserID == exceptUser {
			continue
		}
		if c.enqueue(b) {
			n++
		}
	}
	return n
}

// Count returns the number of attached connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
