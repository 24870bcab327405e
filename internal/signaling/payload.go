package signaling

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/sujalkunwar22/backend/internal/apperr"
)

// maxCallIDLength bounds client-generated call ids.
const maxCallIDLength = 128

// StartInput is the body of a startCall event.
type StartInput struct {
	CallID         string          `json:"callId"`
	ConversationID string          `json:"conversationId"`
	OtherUserID    string          `json:"otherUserId"`
	CallType       CallType        `json:"callType"`
	Offer          json.RawMessage `json:"offer"`
}

// Signal is the body of every per-call event after startCall, inbound and
// outbound. Only the fields of the event in question are set.
type Signal struct {
	CallID         string          `json:"callId"`
	ConversationID string          `json:"conversationId,omitempty"`
	Offer          json.RawMessage `json:"offer,omitempty"`
	Answer         json.RawMessage `json:"answer,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
}

// IncomingCall is pushed to the callee.
type IncomingCall struct {
	CallID         string          `json:"callId"`
	ConversationID string          `json:"conversationId"`
	CallerID       string          `json:"callerId"`
	CallType       CallType        `json:"callType"`
	Offer          json.RawMessage `json:"offer"`
}

func checkCallID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validationf("callId is required")
	}
	if len(id) > maxCallIDLength {
		return apperr.Validationf("callId must be at most %d characters", maxCallIDLength)
	}
	return nil
}

func checkUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return apperr.Validationf("%s must be a valid id", field)
	}
	return nil
}

// checkDescription verifies raw is a session description envelope of the
// wanted type with a non-empty body. The SDP itself is relayed unparsed;
// the peers negotiate it.
func checkDescription(field string, raw json.RawMessage, want webrtc.SDPType) error {
	if len(raw) == 0 {
		return apperr.Validationf("%s is required", field)
	}
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(raw, &sd); err != nil {
		return apperr.Validationf("%s is not a session description", field)
	}
	if sd.Type != want {
		return apperr.Validationf("%s must have type %s", field, want)
	}
	if strings.TrimSpace(sd.SDP) == "" {
		return apperr.Validationf("%s sdp is required", field)
	}
	return nil
}

// checkCandidate verifies raw is an ICE candidate init. An empty candidate
// string marks end of candidates and is accepted.
func checkCandidate(raw json.RawMessage) error {
	if len(raw) == 0 {
		return apperr.Validationf("candidate is required")
	}
	var c webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &c); err != nil {
		return apperr.Validationf("candidate is not an ICE candidate")
	}
	return nil
}

func (in StartInput) validate() error {
	if err := checkCallID(in.CallID); err != nil {
		return err
	}
	if err := checkUUID("conversationId", in.ConversationID); err != nil {
		return err
	}
	if in.OtherUserID != "" {
		if err := checkUUID("otherUserId", in.OtherUserID); err != nil {
			return err
		}
	}
	switch in.CallType {
	case CallAudio, CallVideo:
	default:
		return apperr.Validationf("callType must be audio or video")
	}
	return checkDescription("offer", in.Offer, webrtc.SDPTypeOffer)
}
