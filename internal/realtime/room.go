// Package realtime tracks live connections and the rooms they belong to,
// and carries JSON event frames over gorilla websockets.
package realtime

// RoomKind separates the personal and conversation namespaces.
type RoomKind int

const (
	KindUser RoomKind = iota + 1
	KindConversation
)

func (k RoomKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindConversation:
		return "conversation"
	}
	return "unknown"
}

// Room is a broadcast group. Two rooms with the same ID but different kinds
// never share members.
type Room struct {
	Kind RoomKind
	ID   string
}

// UserRoom is the personal room of userID. Every connection of that user is
// a member for its whole life.
func UserRoom(userID string) Room { return Room{Kind: KindUser, ID: userID} }

// ConversationRoom is joined on request after a membership check.
func ConversationRoom(convID string) Room { return Room{Kind: KindConversation, ID: convID} }

func (r Room) String() string { return r.Kind.String() + ":" + r.ID }
