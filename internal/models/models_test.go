package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestUser_Fields(t *testing.T) {
	typ := reflect.TypeOf(User{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Email", "uniqueIndex")
	assertGormTag(t, typ, "Role", "index")
	assertGormTag(t, typ, "IsActive", "default:true")

	f, _ := typ.FieldByName("PasswordHash")
	if got := f.Tag.Get("json"); got != "-" {
		t.Errorf("PasswordHash json tag = %q, want \"-\"", got)
	}
}

func TestAppointment_Fields(t *testing.T) {
	typ := reflect.TypeOf(Appointment{})

	assertGormTag(t, typ, "Status", "default:PENDING")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "ClientID", "idx_appt_client_created")
	assertGormTag(t, typ, "LawyerID", "idx_appt_lawyer_created")
	assertGormTag(t, typ, "Client", "foreignKey:ClientID")
	assertGormTag(t, typ, "Lawyer", "foreignKey:LawyerID")

	assertFieldType(t, typ, "Status", "models.AppointmentStatus")
	assertFieldType(t, typ, "ConfirmedDate", "*time.Time")
	assertFieldType(t, typ, "ConfirmedTime", "*string")
	assertFieldType(t, typ, "ConversationID", "*string")
}

func TestConversation_Fields(t *testing.T) {
	typ := reflect.TypeOf(Conversation{})

	assertGormTag(t, typ, "PairKey", "uniqueIndex")
	assertGormTag(t, typ, "PairKey", "not null")
	assertGormTag(t, typ, "LastMessageAt", "index")
	assertFieldType(t, typ, "AppointmentID", "*string")
	assertFieldType(t, typ, "LastMessageID", "*uint")
}

func TestMessage_Fields(t *testing.T) {
	typ := reflect.TypeOf(Message{})

	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "ConversationID", "idx_msg_conv_created")
	assertGormTag(t, typ, "CreatedAt", "idx_msg_conv_created")
	assertGormTag(t, typ, "Content", "size:2000")
	assertGormTag(t, typ, "MessageType", "default:text")
}

func TestNotification_Fields(t *testing.T) {
	typ := reflect.TypeOf(Notification{})

	assertGormTag(t, typ, "UserID", "idx_notif_user_read_created")
	assertGormTag(t, typ, "IsRead", "idx_notif_user_read_created")
	assertGormTag(t, typ, "CreatedAt", "idx_notif_user_read_created")
}

func TestPairKey_OrderInsensitive(t *testing.T) {
	if PairKey("a", "b") != PairKey("b", "a") {
		t.Errorf("PairKey not symmetric: %q vs %q", PairKey("a", "b"), PairKey("b", "a"))
	}
	if got := PairKey("u2", "u1"); got != "u1:u2" {
		t.Errorf("PairKey(u2, u1) = %q, want %q", got, "u1:u2")
	}
}

func TestConversation_Membership(t *testing.T) {
	a, b := SortedPair("zed", "amy")
	c := Conversation{ParticipantA: a, ParticipantB: b}

	if !c.Has("zed") || !c.Has("amy") {
		t.Error("expected both participants to be members")
	}
	if c.Has("") || c.Has("bob") {
		t.Error("unexpected member")
	}
	if got := c.Other("amy"); got != "zed" {
		t.Errorf("Other(amy) = %q, want zed", got)
	}
	if got := c.Other("zed"); got != "amy" {
		t.Errorf("Other(zed) = %q, want amy", got)
	}
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	tests := []struct {
		status AppointmentStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProposed, false},
		{StatusConfirmed, false},
		{StatusCancelled, true},
		{StatusCompleted, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestUser_PublicOmitsPrivateFields(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.c", PasswordHash: "secret", FirstName: "Ana", LastName: "Rai"}
	p := u.Public()
	typ := reflect.TypeOf(p)
	for _, name := range []string{"Email", "PasswordHash", "Phone"} {
		if _, ok := typ.FieldByName(name); ok {
			t.Errorf("PublicProfile exposes %s", name)
		}
	}
	if p.ID != "u1" || p.FirstName != "Ana" {
		t.Errorf("Public() = %+v", p)
	}
}

func TestDocument_Fields(t *testing.T) {
	typ := reflect.TypeOf(Document{})

	assertGormTag(t, typ, "OwnerID", "idx_doc_owner_size")
	assertGormTag(t, typ, "FileSize", "idx_doc_owner_size")
	assertGormTag(t, typ, "Category", "default:other")
	assertFieldType(t, typ, "AppointmentID", "*string")
	assertFieldType(t, typ, "SharedWithID", "*string")
	for _, name := range []string{"FilePath", "ContentHash"} {
		f, _ := typ.FieldByName(name)
		if got := f.Tag.Get("json"); got != "-" {
			t.Errorf("%s json tag = %q, want \"-\"", name, got)
		}
	}
}

func TestDocument_VisibleTo(t *testing.T) {
	peer := "u2"
	tests := []struct {
		name string
		doc  Document
		user string
		want bool
	}{
		{"owner", Document{OwnerID: "u1"}, "u1", true},
		{"stranger", Document{OwnerID: "u1"}, "u3", false},
		{"shared peer", Document{OwnerID: "u1", IsShared: true, SharedWithID: &peer}, "u2", true},
		{"unshared peer", Document{OwnerID: "u1", SharedWithID: &peer}, "u2", false},
		{"shared elsewhere", Document{OwnerID: "u1", IsShared: true, SharedWithID: &peer}, "u3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.VisibleTo(tt.user); got != tt.want {
				t.Errorf("VisibleTo(%s) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}
}

func TestDocumentCategory_Valid(t *testing.T) {
	for _, c := range []DocumentCategory{CategoryContract, CategoryLegalDocument, CategoryEvidence, CategoryOther} {
		if !c.Valid() {
			t.Errorf("%s.Valid() = false", c)
		}
	}
	if DocumentCategory("receipt").Valid() {
		t.Error("receipt should not be a category")
	}
}

func TestReview_Fields(t *testing.T) {
	typ := reflect.TypeOf(Review{})

	for _, name := range []string{"LawyerID", "ClientID", "AppointmentKey"} {
		assertGormTag(t, typ, name, "uniqueIndex:idx_review_pair_appt")
	}
	assertGormTag(t, typ, "IsVisible", "default:true")
	assertFieldType(t, typ, "AppointmentID", "*string")
}

func TestReview_BeforeCreateKeysAppointment(t *testing.T) {
	appt := "a1"
	r := Review{AppointmentID: &appt}
	if err := r.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if r.ID == "" || r.AppointmentKey != "a1" {
		t.Errorf("review = %+v, want id and appointment key a1", r)
	}
}

func TestVerificationRequest_Fields(t *testing.T) {
	typ := reflect.TypeOf(VerificationRequest{})

	assertGormTag(t, typ, "PendingKey", "uniqueIndex")
	assertGormTag(t, typ, "Status", "default:PENDING")
	assertFieldType(t, typ, "PendingKey", "*string")
	assertFieldType(t, typ, "RejectionReason", "*string")
}

func TestNewLawyerView(t *testing.T) {
	u := &User{ID: "l1", Email: "l@x.io", FirstName: "Ana", LastName: "Rai"}

	bare := NewLawyerView(u, nil)
	if bare.HasProfile || bare.Specialization == nil || bare.Rating != 0 {
		t.Errorf("bare view = %+v", bare)
	}

	p := &LawyerProfile{Specialization: []string{"Tax Law"}, HourlyRate: 80, Rating: 4.5, TotalReviews: 2, IsVerified: true}
	v := NewLawyerView(u, p)
	if !v.HasProfile || v.ID != "l1" || v.Email != "l@x.io" {
		t.Errorf("identity fields = %+v", v)
	}
	if v.HourlyRate != 80 || v.Rating != 4.5 || v.TotalReviews != 2 || !v.IsVerified || v.Specialization[0] != "Tax Law" {
		t.Errorf("profile fields = %+v", v)
	}
}
