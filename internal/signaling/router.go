package signaling

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/pion/webrtc/v4"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/models"
)

// Server-to-client event names.
const (
	EventIncomingCall     = "incomingCall"
	EventCallAccepted     = "callAccepted"
	EventCallRejected     = "callRejected"
	EventCallEnded        = "callEnded"
	EventICECandidate     = "iceCandidate"
	EventOffer            = "offer"
	EventAnswer           = "answer"
	EventUpgradeToVideo   = "upgradeToVideo"
	EventRecordingStarted = "recordingStarted"
	EventRecordingStopped = "recordingStopped"
)

// Mode tells how a signal left the router.
type Mode int

const (
	// Delivered means the signal went to the counterpart's user room.
	Delivered Mode = iota + 1
	// BroadcastFallback means the call id was unknown and the signal went to
	// every connection except the sender's. Clients filter by call id.
	BroadcastFallback
)

func (m Mode) String() string {
	switch m {
	case Delivered:
		return "delivered"
	case BroadcastFallback:
		return "broadcast_fallback"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Result describes one routed signal.
type Result struct {
	Mode Mode
	// To is the recipient user when Mode is Delivered.
	To string
	// Receivers counts connections that accepted the frame.
	Receivers int
}

// Deliverer pushes events to connections.
type Deliverer interface {
	ToUser(userID, event string, data any) int
	Broadcast(exceptUser, event string, data any) int
}

// Conversations resolves the conversation a call is placed in.
type Conversations interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
}

// Router forwards call signaling between the caller and callee of each call.
type Router struct {
	calls Registry
	out   Deliverer
	convs Conversations
}

// NewRouter returns a Router.
func NewRouter(calls Registry, out Deliverer, convs Conversations) *Router {
	return &Router{calls: calls, out: out, convs: convs}
}

// Start registers a call placed by caller and rings the callee. Earlier calls
// of the caller in the same conversation are evicted first.
func (r *Router) Start(ctx context.Context, caller string, in StartInput) (Result, error) {
	if in.CallType == "" {
		in.CallType = CallAudio
	}
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	conv, err := r.convs.Get(ctx, in.ConversationID)
	if apperr.Is(err, apperr.NotFound) {
		return Result{}, apperr.Forbiddenf("Invalid conversation or access denied")
	}
	if err != nil {
		return Result{}, err
	}
	if !conv.Has(caller) {
		return Result{}, apperr.Forbiddenf("Invalid conversation or access denied")
	}
	callee := conv.Other(caller)
	if in.OtherUserID != "" && in.OtherUserID != callee {
		return Result{}, apperr.Forbiddenf("Callee is not part of this conversation")
	}

	call := Call{
		ID:             in.CallID,
		CallerID:       caller,
		CalleeID:       callee,
		ConversationID: conv.ID,
		Type:           in.CallType,
	}
	evicted, err := r.calls.Replace(ctx, call)
	if errors.Is(err, ErrCallIDTaken) {
		return Result{}, apperr.Conflictf("Call id is already in use")
	}
	if err != nil {
		return Result{}, fmt.Errorf("signaling: register %s: %w", call.ID, err)
	}
	for _, id := range evicted {
		if id != call.ID {
			log.Printf("signaling: call %s superseded by %s in conversation %s", id, call.ID, conv.ID)
		}
	}

	n := r.out.ToUser(callee, EventIncomingCall, IncomingCall{
		CallID:         call.ID,
		ConversationID: conv.ID,
		CallerID:       caller,
		CallType:       call.Type,
		Offer:          in.Offer,
	})
	return Result{Mode: Delivered, To: callee, Receivers: n}, nil
}

// Accept forwards the callee's answer to the caller.
func (r *Router) Accept(ctx context.Context, sender string, s Signal) (Result, error) {
	if err := checkCallID(s.CallID); err != nil {
		return Result{}, err
	}
	if err := checkDescription("answer", s.Answer, webrtc.SDPTypeAnswer); err != nil {
		return Result{}, err
	}
	out := Signal{CallID: s.CallID, Answer: s.Answer}
	return r.route(ctx, sender, s.CallID, EventCallAccepted, out, func(c Call) string { return c.CallerID })
}

// Reject tells the other party the call was declined and drops the entry.
func (r *Router) Reject(ctx context.Context, sender string, s Signal) (Result, error) {
	return r.finish(ctx, sender, s, EventCallRejected)
}

// End tells the other party the call is over and drops the entry.
func (r *Router) End(ctx context.Context, sender string, s Signal) (Result, error) {
	return r.finish(ctx, sender, s, EventCallEnded)
}

func (r *Router) finish(ctx context.Context, sender string, s Signal, event string) (Result, error) {
	if err := checkCallID(s.CallID); err != nil {
		return Result{}, err
	}
	res, err := r.route(ctx, sender, s.CallID, event, Signal{CallID: s.CallID}, nil)
	if err != nil || res.Mode != Delivered {
		return res, err
	}
	if err := r.calls.Delete(ctx, s.CallID); err != nil {
		return res, fmt.Errorf("signaling: remove %s: %w", s.CallID, err)
	}
	return res, nil
}

// ICECandidate forwards a trickled candidate.
func (r *Router) ICECandidate(ctx context.Context, sender string, s Signal) (Result, error) {
	if err := checkCallID(s.CallID); err != nil {
		return Result{}, err
	}
	if err := checkCandidate(s.Candidate); err != nil {
		return Result{}, err
	}
	return r.route(ctx, sender, s.CallID, EventICECandidate, Signal{CallID: s.CallID, Candidate: s.Candidate}, nil)
}

// Offer forwards a renegotiation offer.
func (r *Router) Offer(ctx context.Context, sender string, s Signal) (Result, error) {
	return r.relayOffer(ctx, sender, s, EventOffer)
}

// UpgradeToVideo forwards the offer that adds video to an audio call.
func (r *Router) UpgradeToVideo(ctx context.Context, sender string, s Signal) (Result, error) {
	return r.relayOffer(ctx, sender, s, EventUpgradeToVideo)
}

func (r *Router) relayOffer(ctx context.Context, sender string, s Signal, event string) (Result, error) {
	if err := checkCallID(s.CallID); err != nil {
		return Result{}, err
	}
	if err := checkDescription("offer", s.Offer, webrtc.SDPTypeOffer); err != nil {
		return Result{}, err
	}
	return r.route(ctx, sender, s.CallID, event, Signal{CallID: s.CallID, Offer: s.Offer}, nil)
}

// Answer forwards a renegotiation answer.
func (r *Router) Answer(ctx context.Context, sender string, s Signal) (Result, error) {
	if err := checkCallID(s.CallID); err != nil {
		return Result{}, err
	}
	if err := checkDescription("answer", s.Answer, webrtc.SDPTypeAnswer); err != nil {
		return Result{}, err
	}
	return r.route(ctx, sender, s.CallID, EventAnswer, Signal{CallID: s.CallID, Answer: s.Answer}, nil)
}

// RecordingStarted tells the peer that sender started recording. The server
// records nothing.
func (r *Router) RecordingStarted(ctx context.Context, sender string, s Signal) (Result, error) {
	return r.recording(ctx, sender, s, EventRecordingStarted)
}

// RecordingStopped tells the peer that sender stopped recording.
func (r *Router) RecordingStopped(ctx context.Context, sender string, s Signal) (Result, error) {
	return r.recording(ctx, sender, s, EventRecordingStopped)
}

func (r *Router) recording(ctx context.Context, sender string, s Signal, event string) (Result, error) {
	if err := checkCallID(s.CallID); err != nil {
		return Result{}, err
	}
	out := Signal{CallID: s.CallID, ConversationID: s.ConversationID}
	return r.route(ctx, sender, s.CallID, event, out, nil)
}

// route delivers payload for callID to the party chosen by target, or to the
// counterpart of sender when target is nil. An unknown call id falls back to
// a broadcast.
func (r *Router) route(ctx context.Context, sender, callID, event string, payload any, target func(Call) string) (Result, error) {
	call, ok, err := r.calls.Get(ctx, callID)
	if err != nil {
		return Result{}, fmt.Errorf("signaling: lookup %s: %w", callID, err)
	}
	if !ok {
		n := r.out.Broadcast(sender, event, payload)
		return Result{Mode: BroadcastFallback, Receivers: n}, nil
	}
	if !call.Involves(sender) {
		return Result{}, apperr.Forbiddenf("Not a participant of this call")
	}
	to := call.Counterpart(sender)
	if target != nil {
		to = target(call)
	}
	n := r.out.ToUser(to, event, payload)
	return Result{Mode: Delivered, To: to, Receivers: n}, nil
}
