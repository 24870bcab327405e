package wsapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sujalkunwar22/backend/internal/appointment"
	"github.com/sujalkunwar22/backend/internal/chat"
	"github.com/sujalkunwar22/backend/internal/conversation"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/realtime"
	"github.com/sujalkunwar22/backend/internal/signaling"
	"gorm.io/gorm"
)

const testSDP = "v=0\r\no=- 4215775240449105457 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\nc=IN IP4 0.0.0.0\r\na=rtpmap:111 opus/48000/2\r\n"

type fixture struct {
	db     *gorm.DB
	hub    *realtime.Hub
	disp   *Dispatcher
	dir    *conversation.Directory
	calls  *signaling.MemoryRegistry
	client *models.User
	lawyer *models.User
	other  *models.User
	conv   *models.Conversation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gormDB, err := db.OpenTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	f := &fixture{db: gormDB}
	f.client = seedUser(t, gormDB, "client@example.com", models.RoleClient, "Ada")
	f.lawyer = seedUser(t, gormDB, "lawyer@example.com", models.RoleLawyer, "Alan")
	f.other = seedUser(t, gormDB, "other@example.com", models.RoleClient, "Grace")

	f.dir = conversation.NewDirectory(gormDB)
	f.hub = realtime.NewHub(f.dir)
	f.calls = signaling.NewMemoryRegistry()
	sink := notify.NewSink(gormDB, f.hub)
	relay := chat.NewRelay(gormDB, chat.Options{
		Directory: f.dir,
		Gate:      appointment.NewService(gormDB, appointment.Options{Directory: f.dir}),
		Sink:      sink,
		Rooms:     f.hub,
	})
	f.disp = NewDispatcher(f.hub, relay, signaling.NewRouter(f.calls, f.hub, f.dir))

	f.conv, err = f.dir.GetOrCreate(context.Background(), f.client.ID, f.lawyer.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	return f
}

func seedUser(t *testing.T, gormDB *gorm.DB, email string, role models.Role, first string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", Role: role, FirstName: first, LastName: "Tester"}
	if err := gormDB.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) connect(u *models.User) *realtime.Conn {
	c := realtime.NewConn(u.ID, u.Role, 0)
	f.hub.Attach(c)
	return c
}

func (f *fixture) send(t *testing.T, c *realtime.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f.disp.Dispatch(context.Background(), c, realtime.Frame{Event: event, Data: raw})
}

func frames(t *testing.T, c *realtime.Conn) []realtime.Frame {
	t.Helper()
	var out []realtime.Frame
	for {
		select {
		case b := <-c.Outbound():
			var fr realtime.Frame
			if err := json.Unmarshal(b, &fr); err != nil {
				t.Fatalf("decode: %v", err)
			}
			out = append(out, fr)
		case <-time.After(20 * time.Millisecond):
			return out
		}
	}
}

func events(fs []realtime.Frame) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Event
	}
	return out
}

func only(t *testing.T, c *realtime.Conn, event string) realtime.Frame {
	t.Helper()
	fs := frames(t, c)
	if len(fs) != 1 || fs[0].Event != event {
		t.Fatalf("frames = %v, want [%s]", events(fs), event)
	}
	return fs[0]
}

func errorMessage(t *testing.T, fr realtime.Frame) realtime.ErrorPayload {
	t.Helper()
	var p realtime.ErrorPayload
	if err := json.Unmarshal(fr.Data, &p); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return p
}

func TestJoinAcceptsBothArgumentShapes(t *testing.T) {
	f := newFixture(t)
	c := f.connect(f.client)

	f.send(t, c, EventJoinConversation, f.conv.ID)
	fr := only(t, c, EventJoinedConversation)
	var p JoinedPayload
	json.Unmarshal(fr.Data, &p)
	if p.ConversationID != f.conv.ID {
		t.Errorf("joined %q, want %q", p.ConversationID, f.conv.ID)
	}

	f.send(t, c, EventLeaveConversation, map[string]string{"conversationId": f.conv.ID})
	if f.hub.InRoom(c, realtime.ConversationRoom(f.conv.ID)) {
		t.Error("still in room after leave")
	}

	f.send(t, c, EventJoinConversation, map[string]string{"conversationId": f.conv.ID})
	only(t, c, EventJoinedConversation)
}

func TestJoinRejectsOutsider(t *testing.T) {
	f := newFixture(t)
	eve := f.connect(f.other)
	f.send(t, eve, EventJoinConversation, f.conv.ID)
	p := errorMessage(t, only(t, eve, realtime.EventError))
	if p.Message != "Access denied: You are not a participant" {
		t.Errorf("message = %q", p.Message)
	}

	f.send(t, eve, EventJoinConversation, "00000000-0000-0000-0000-000000000000")
	p = errorMessage(t, only(t, eve, realtime.EventError))
	if p.Message != "Conversation not found" {
		t.Errorf("message = %q", p.Message)
	}
}

func TestUnknownEventAndBadPayload(t *testing.T) {
	f := newFixture(t)
	c := f.connect(f.client)
	f.disp.Dispatch(context.Background(), c, realtime.Frame{Event: "dance"})
	only(t, c, realtime.EventError)

	f.disp.Dispatch(context.Background(), c, realtime.Frame{Event: EventSendMessage, Data: json.RawMessage(`[1,2]`)})
	p := errorMessage(t, only(t, c, realtime.EventError))
	if p.Message != "Invalid event payload" {
		t.Errorf("message = %q", p.Message)
	}
}

func TestSendMessageReachesRoomAndNotifiesOther(t *testing.T) {
	f := newFixture(t)
	ada := f.connect(f.client)
	alan := f.connect(f.lawyer)
	alanPhone := f.connect(f.lawyer)
	for _, c := range []*realtime.Conn{ada, alan} {
		f.send(t, c, EventJoinConversation, f.conv.ID)
		only(t, c, EventJoinedConversation)
	}

	f.send(t, ada, EventSendMessage, chat.SendInput{ConversationID: f.conv.ID, Content: "Hello"})

	fr := only(t, ada, chat.EventNewMessage)
	var p chat.NewMessagePayload
	if err := json.Unmarshal(fr.Data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Message.Content != "Hello" || p.Message.Sender.FirstName != "Ada" {
		t.Errorf("message = %+v", p.Message)
	}
	if got := events(frames(t, alan)); len(got) != 2 || got[0] != chat.EventNewMessage || got[1] != notify.Event {
		t.Errorf("alan frames = %v", got)
	}
	// Not joined to the room, so only the personal notification arrives.
	only(t, alanPhone, notify.Event)
}

func TestSendMessageGateErrorCarriesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := &models.Appointment{
		ClientID:       f.client.ID,
		LawyerID:       f.lawyer.ID,
		Status:         models.StatusPending,
		ProposedDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ProposedTime:   "10:00",
		Reason:         "Contract review for a lease",
		ConversationID: &f.conv.ID,
	}
	if err := f.db.Create(appt).Error; err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if err := f.dir.Attach(ctx, nil, f.conv.ID, appt.ID); err != nil {
		t.Fatalf("attach: %v", err)
	}

	ada := f.connect(f.client)
	alan := f.connect(f.lawyer)
	f.send(t, ada, EventSendMessage, chat.SendInput{ConversationID: f.conv.ID, Content: "Hello"})
	p := errorMessage(t, only(t, ada, realtime.EventError))
	if p.Code != "APPOINTMENT_NOT_CONFIRMED" {
		t.Errorf("code = %q", p.Code)
	}
	if got := frames(t, alan); len(got) != 0 {
		t.Errorf("other party received %v", events(got))
	}
}

func TestTypingRequiresJoin(t *testing.T) {
	f := newFixture(t)
	ada := f.connect(f.client)
	alan := f.connect(f.lawyer)

	f.send(t, ada, EventTyping, TypingInput{ConversationID: f.conv.ID, IsTyping: true})
	only(t, ada, realtime.EventError)

	for _, c := range []*realtime.Conn{ada, alan} {
		f.send(t, c, EventJoinConversation, f.conv.ID)
		only(t, c, EventJoinedConversation)
	}
	f.send(t, ada, EventTyping, TypingInput{ConversationID: f.conv.ID, IsTyping: true})
	fr := only(t, alan, EventUserTyping)
	var p TypingPayload
	json.Unmarshal(fr.Data, &p)
	if p.UserID != f.client.ID || !p.IsTyping {
		t.Errorf("typing payload = %+v", p)
	}
	if got := frames(t, ada); len(got) != 0 {
		t.Errorf("typist received %v", events(got))
	}
}

func offer(kind string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"type": kind, "sdp": testSDP})
	return b
}

func TestCallLifecycle(t *testing.T) {
	f := newFixture(t)
	ada := f.connect(f.client)
	alan := f.connect(f.lawyer)
	eve := f.connect(f.other)

	f.send(t, ada, EventStartCall, signaling.StartInput{
		CallID:         "call-1",
		ConversationID: f.conv.ID,
		OtherUserID:    f.lawyer.ID,
		CallType:       signaling.CallVideo,
		Offer:          offer("offer"),
	})
	fr := only(t, alan, signaling.EventIncomingCall)
	var ring signaling.IncomingCall
	json.Unmarshal(fr.Data, &ring)
	if ring.CallerID != f.client.ID || ring.CallType != signaling.CallVideo {
		t.Errorf("incoming = %+v", ring)
	}

	f.send(t, alan, EventAcceptCall, signaling.Signal{CallID: "call-1", Answer: offer("answer")})
	only(t, ada, signaling.EventCallAccepted)

	f.send(t, ada, signaling.EventICECandidate, signaling.Signal{CallID: "call-1", Candidate: json.RawMessage(`{"candidate":""}`)})
	only(t, alan, signaling.EventICECandidate)

	f.send(t, alan, EventEndCall, signaling.Signal{CallID: "call-1"})
	only(t, ada, signaling.EventCallEnded)
	if f.calls.Len() != 0 {
		t.Errorf("registry holds %d calls after end", f.calls.Len())
	}
	if got := frames(t, eve); len(got) != 0 {
		t.Errorf("bystander received %v", events(got))
	}

	// The entry is gone, so a late signal falls back to a broadcast that
	// skips the sender.
	f.send(t, alan, EventEndCall, signaling.Signal{CallID: "call-1"})
	only(t, ada, signaling.EventCallEnded)
	only(t, eve, signaling.EventCallEnded)
	if got := frames(t, alan); len(got) != 0 {
		t.Errorf("sender received its own fallback: %v", events(got))
	}
}

func TestStartCallOutsiderGetsError(t *testing.T) {
	f := newFixture(t)
	eve := f.connect(f.other)
	alan := f.connect(f.lawyer)
	f.send(t, eve, EventStartCall, signaling.StartInput{
		CallID:         "call-x",
		ConversationID: f.conv.ID,
		CallType:       signaling.CallAudio,
		Offer:          offer("offer"),
	})
	p := errorMessage(t, only(t, eve, realtime.EventError))
	if p.Message != "Invalid conversation or access denied" {
		t.Errorf("message = %q", p.Message)
	}
	if got := frames(t, alan); len(got) != 0 {
		t.Errorf("callee received %v", events(got))
	}
}
