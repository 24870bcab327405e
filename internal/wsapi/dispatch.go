// Package wsapi maps inbound websocket events onto the chat relay, the room
// hub and the call signaling router.
package wsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/chat"
	"github.com/sujalkunwar22/backend/internal/realtime"
	"github.com/sujalkunwar22/backend/internal/signaling"
)

// Client-to-server event names.
const (
	EventJoinConversation  = "joinConversation"
	EventLeaveConversation = "leaveConversation"
	EventSendMessage       = "sendMessage"
	EventTyping            = "typing"
	EventStartCall         = "startCall"
	EventAcceptCall        = "acceptCall"
	EventRejectCall        = "rejectCall"
	EventEndCall           = "endCall"
	EventStartRecording    = "startRecording"
	EventStopRecording     = "stopRecording"
)

// Server-to-client events not owned by another package.
const (
	EventJoinedConversation = "joinedConversation"
	EventUserTyping         = "userTyping"
)

// JoinedPayload acknowledges a room join.
type JoinedPayload struct {
	ConversationID string `json:"conversationId"`
}

// TypingInput is the body of a typing event.
type TypingInput struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// TypingPayload is relayed to the other members of the room.
type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type handlerFunc func(ctx context.Context, c *realtime.Conn, data json.RawMessage) error

// Dispatcher routes frames by event name. Handler errors go to the
// originating connection only.
type Dispatcher struct {
	hub      *realtime.Hub
	relay    *chat.Relay
	calls    *signaling.Router
	handlers map[string]handlerFunc
}

// NewDispatcher returns a Dispatcher with every event registered.
func NewDispatcher(hub *realtime.Hub, relay *chat.Relay, calls *signaling.Router) *Dispatcher {
	d := &Dispatcher{hub: hub, relay: relay, calls: calls}
	d.handlers = map[string]handlerFunc{
		EventJoinConversation:         d.join,
		EventLeaveConversation:        d.leave,
		EventSendMessage:              d.sendMessage,
		EventTyping:                   d.typing,
		EventStartCall:                d.startCall,
		EventAcceptCall:               d.signal(d.calls.Accept),
		EventRejectCall:               d.signal(d.calls.Reject),
		EventEndCall:                  d.signal(d.calls.End),
		signaling.EventICECandidate:   d.signal(d.calls.ICECandidate),
		signaling.EventOffer:          d.signal(d.calls.Offer),
		signaling.EventAnswer:         d.signal(d.calls.Answer),
		signaling.EventUpgradeToVideo: d.signal(d.calls.UpgradeToVideo),
		EventStartRecording:           d.signal(d.calls.RecordingStarted),
		EventStopRecording:            d.signal(d.calls.RecordingStopped),
	}
	return d
}

// Dispatch handles one frame from c.
func (d *Dispatcher) Dispatch(ctx context.Context, c *realtime.Conn, f realtime.Frame) {
	h, ok := d.handlers[f.Event]
	if !ok {
		realtime.SendError(c, apperr.Validationf("Unknown event %q", f.Event))
		return
	}
	if err := h(ctx, c, f.Data); err != nil {
		realtime.SendError(c, err)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return apperr.Validationf("Event payload is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Validationf("Invalid event payload")
	}
	return nil
}

// conversationArg accepts either a bare id string or {"conversationId": id}.
func conversationArg(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return "", apperr.Validationf("Invalid conversation id")
		}
		return id, nil
	}
	var in JoinedPayload
	if err := decode(data, &in); err != nil {
		return "", err
	}
	return in.ConversationID, nil
}

func (d *Dispatcher) join(ctx context.Context, c *realtime.Conn, data json.RawMessage) error {
	convID, err := conversationArg(data)
	if err != nil {
		return err
	}
	if err := d.hub.JoinConversation(ctx, c, convID); err != nil {
		return err
	}
	return c.Send(EventJoinedConversation, JoinedPayload{ConversationID: convID})
}

func (d *Dispatcher) leave(_ context.Context, c *realtime.Conn, data json.RawMessage) error {
	convID, err := conversationArg(data)
	if err != nil {
		return err
	}
	d.hub.LeaveConversation(c, convID)
	return nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, c *realtime.Conn, data json.RawMessage) error {
	var in chat.SendInput
	if err := decode(data, &in); err != nil {
		return err
	}
	_, err := d.relay.Send(ctx, c.UserID, in)
	return err
}

// typing relays the indicator to the rest of the room. The sender must have
// joined the room, which is where membership was checked.
func (d *Dispatcher) typing(_ context.Context, c *realtime.Conn, data json.RawMessage) error {
	var in TypingInput
	if err := decode(data, &in); err != nil {
		return err
	}
	room := realtime.ConversationRoom(in.ConversationID)
	if !d.hub.InRoom(c, room) {
		return apperr.Forbiddenf("Join the conversation first")
	}
	d.hub.EmitExcept(room, c.ID, EventUserTyping, TypingPayload{UserID: c.UserID, IsTyping: in.IsTyping})
	return nil
}

func (d *Dispatcher) startCall(ctx context.Context, c *realtime.Conn, data json.RawMessage) error {
	var in signaling.StartInput
	if err := decode(data, &in); err != nil {
		return err
	}
	res, err := d.calls.Start(ctx, c.UserID, in)
	if err != nil {
		return err
	}
	if res.Receivers == 0 {
		log.Printf("wsapi: call %s: callee %s has no live connection", in.CallID, res.To)
	}
	return nil
}

type signalFunc func(ctx context.Context, sender string, s signaling.Signal) (signaling.Result, error)

// signal adapts a per-call router operation to a handler.
func (d *Dispatcher) signal(op signalFunc) handlerFunc {
	return func(ctx context.Context, c *realtime.Conn, data json.RawMessage) error {
		var s signaling.Signal
		if err := decode(data, &s); err != nil {
			return err
		}
		res, err := op(ctx, c.UserID, s)
		if err != nil {
			return err
		}
		if res.Mode == signaling.BroadcastFallback {
			log.Printf("wsapi: call %s unknown, broadcast to %d connections", s.CallID, res.Receivers)
		}
		return nil
	}
}
