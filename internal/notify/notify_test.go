package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

type pushed struct {
	userID string
	event  string
	data   any
}

type fakePusher struct {
	mu    sync.Mutex
	calls []pushed
}

func (f *fakePusher) ToUser(userID, event string, data any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushed{userID, event, data})
	return 1
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.OpenTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return gormDB
}

func record(t *testing.T, s *Sink, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s.Record(context.Background(), Notice{
			UserID:  userID,
			Type:    models.NotifySystem,
			Title:   "Hello",
			Message: "World",
		})
	}
}

func TestRecord_PersistsWithRelated(t *testing.T) {
	gormDB := testDB(t)
	s := NewSink(gormDB, nil)
	s.Record(context.Background(), Notice{
		UserID:      "u1",
		Type:        models.NotifyAppointmentRequest,
		Title:       "New Appointment Request",
		Message:     "Ada Lovelace requested an appointment",
		RelatedID:   "appt-1",
		RelatedType: RelatedAppointment,
	})

	var rows []models.Notification
	gormDB.Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	n := rows[0]
	if n.IsRead {
		t.Error("new notification should be unread")
	}
	if n.RelatedID == nil || *n.RelatedID != "appt-1" || n.RelatedType == nil || *n.RelatedType != RelatedAppointment {
		t.Errorf("related = %v/%v", n.RelatedID, n.RelatedType)
	}
}

func TestRecord_FailureDoesNotPanic(t *testing.T) {
	gormDB := testDB(t)
	if err := gormDB.Migrator().DropTable(&models.Notification{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	s := NewSink(gormDB, nil)
	s.Record(context.Background(), Notice{UserID: "u1", Type: models.NotifySystem, Title: "t", Message: "m"})

	var nilSink *Sink
	nilSink.Record(context.Background(), Notice{UserID: "u1"})
	nilSink.Push("u1", models.NotifySystem, "m")
}

func TestPush(t *testing.T) {
	p := &fakePusher{}
	s := NewSink(testDB(t), p)
	s.Push("u1", models.NotifyMessage, "New message from Ada")
	if len(p.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(p.calls))
	}
	c := p.calls[0]
	if c.userID != "u1" || c.event != Event {
		t.Errorf("call = %+v", c)
	}
	payload, ok := c.data.(LivePayload)
	if !ok || payload.Type != models.NotifyMessage || payload.Message != "New message from Ada" {
		t.Errorf("payload = %#v", c.data)
	}
}

func TestList_FilterAndUnreadCount(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	s := NewSink(gormDB, nil)
	record(t, s, "u1", 5)
	record(t, s, "u2", 2)
	gormDB.Model(&models.Notification{}).Where("user_id = ? AND id IN ?", "u1", []uint{1, 2}).Update("is_read", true)

	all, err := s.List(ctx, "u1", Filter{}, 1, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all.Notifications) != 3 {
		t.Errorf("page size = %d, want 3", len(all.Notifications))
	}
	if all.Pagination.Total != 5 || all.Pagination.Pages != 2 {
		t.Errorf("pagination = %+v", all.Pagination)
	}
	if all.UnreadCount != 3 {
		t.Errorf("UnreadCount = %d, want 3", all.UnreadCount)
	}
	if all.Notifications[0].ID < all.Notifications[1].ID {
		t.Error("expected newest first")
	}

	read := true
	onlyRead, err := s.List(ctx, "u1", Filter{IsRead: &read}, 1, 20)
	if err != nil {
		t.Fatalf("List read: %v", err)
	}
	if onlyRead.Pagination.Total != 2 {
		t.Errorf("read total = %d, want 2", onlyRead.Pagination.Total)
	}
	for _, n := range onlyRead.Notifications {
		if !n.IsRead || n.UserID != "u1" {
			t.Errorf("unexpected row %+v", n)
		}
	}
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	s := NewSink(testDB(t), nil)
	record(t, s, "u1", 1)

	if _, err := s.MarkRead(ctx, 1, "u2"); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("other user err = %v, want forbidden", err)
	}
	if _, err := s.MarkRead(ctx, 99, "u1"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("missing err = %v, want not found", err)
	}
	n, err := s.MarkRead(ctx, 1, "u1")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !n.IsRead || n.ReadAt == nil {
		t.Errorf("notification = %+v", n)
	}
	if _, err := s.MarkRead(ctx, 1, "u1"); err != nil {
		t.Errorf("second MarkRead: %v", err)
	}
}

func TestMarkAllReadAndClearAll(t *testing.T) {
	ctx := context.Background()
	s := NewSink(testDB(t), nil)
	record(t, s, "u1", 3)
	record(t, s, "u2", 1)

	n, err := s.MarkAllRead(ctx, "u1")
	if err != nil || n != 3 {
		t.Fatalf("MarkAllRead = %d, %v; want 3", n, err)
	}
	page, _ := s.List(ctx, "u1", Filter{}, 1, 20)
	if page.UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, want 0", page.UnreadCount)
	}

	deleted, err := s.ClearAll(ctx, "u1")
	if err != nil || deleted != 3 {
		t.Fatalf("ClearAll = %d, %v; want 3", deleted, err)
	}
	other, _ := s.List(ctx, "u2", Filter{}, 1, 20)
	if other.Pagination.Total != 1 {
		t.Errorf("u2 total = %d, want 1", other.Pagination.Total)
	}
}

func TestPurgeRead(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	s := NewSink(gormDB, nil)
	old := time.Now().Add(-60 * 24 * time.Hour)
	rows := []models.Notification{
		{UserID: "u1", Type: models.NotifySystem, Title: "t", Message: "old read", IsRead: true, CreatedAt: old},
		{UserID: "u1", Type: models.NotifySystem, Title: "t", Message: "old unread", CreatedAt: old},
		{UserID: "u1", Type: models.NotifySystem, Title: "t", Message: "fresh read", IsRead: true},
	}
	if err := gormDB.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err := s.PurgeRead(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeRead: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	var left int64
	gormDB.Model(&models.Notification{}).Count(&left)
	if left != 2 {
		t.Errorf("remaining = %d, want 2", left)
	}
}
