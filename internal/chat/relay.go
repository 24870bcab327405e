// Package chat persists conversation messages and relays them to the live
// members of each conversation.
package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sujalkunwar22/backend/internal/account"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/conversation"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/paging"
	"gorm.io/gorm"
)

// EventNewMessage is broadcast to the conversation room for every message.
const EventNewMessage = "newMessage"

// MaxContentLength bounds a message body in characters.
const MaxContentLength = 2000

// Default history page sizes.
const (
	DefaultPageSize = 50
	DefaultMaxPage  = 200
)

// Gate decides whether a conversation may carry messages.
type Gate interface {
	CheckChat(ctx context.Context, conv *models.Conversation) error
}

// Rooms delivers events to the live members of a conversation.
type Rooms interface {
	ToConversation(convID, event string, data any) int
}

// Options wires a Relay. Nil Gate means every conversation is open.
type Options struct {
	Directory *conversation.Directory
	Gate      Gate
	Sink      *notify.Sink
	Rooms     Rooms
	PageSize  int
	MaxPage   int
}

// Relay sends and lists chat messages.
type Relay struct {
	db       *gorm.DB
	dir      *conversation.Directory
	gate     Gate
	sink     *notify.Sink
	rooms    Rooms
	pageSize int
	maxPage  int
	locks    *keyedMutex
}

// NewRelay returns a Relay over db.
func NewRelay(db *gorm.DB, opts Options) *Relay {
	r := &Relay{
		db:       db,
		dir:      opts.Directory,
		gate:     opts.Gate,
		sink:     opts.Sink,
		rooms:    opts.Rooms,
		pageSize: opts.PageSize,
		maxPage:  opts.MaxPage,
		locks:    newKeyedMutex(),
	}
	if r.dir == nil {
		r.dir = conversation.NewDirectory(db)
	}
	if r.pageSize <= 0 {
		r.pageSize = DefaultPageSize
	}
	if r.maxPage <= 0 {
		r.maxPage = DefaultMaxPage
	}
	return r
}

// SendInput is the body of a sendMessage event.
type SendInput struct {
	ConversationID string             `json:"conversationId"`
	Content        string             `json:"content"`
	MessageType    models.MessageType `json:"messageType"`
	FileURL        *string            `json:"fileUrl"`
}

func (in *SendInput) normalize() error {
	if in.ConversationID == "" {
		return apperr.Validationf("conversationId is required")
	}
	if in.MessageType == "" {
		in.MessageType = models.MessageText
	}
	if !in.MessageType.Valid() {
		return apperr.Validationf("messageType must be text, file or system")
	}
	n := utf8.RuneCountInString(strings.TrimSpace(in.Content))
	if n == 0 {
		return apperr.Validationf("Message content is required")
	}
	if utf8.RuneCountInString(in.Content) > MaxContentLength {
		return apperr.Validationf("Message content must be at most %d characters", MaxContentLength)
	}
	if in.FileURL != nil && strings.TrimSpace(*in.FileURL) == "" {
		in.FileURL = nil
	}
	if in.MessageType == models.MessageFile && in.FileURL == nil {
		return apperr.Validationf("fileUrl is required for file messages")
	}
	return nil
}

// open resolves convID and checks that userID may read and write it.
func (r *Relay) open(ctx context.Context, convID, userID string) (*models.Conversation, error) {
	conv, err := r.dir.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.Has(userID) {
		return nil, apperr.Forbiddenf("Access denied")
	}
	if r.gate != nil {
		if err := r.gate.CheckChat(ctx, conv); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// Send persists a message from senderID and relays it to the conversation
// room, then notifies the other participant. The sender's profile is read
// from the store on every send. Messages of one conversation are committed
// and broadcast in the same order. Delivery after the commit is best-effort.
func (r *Relay) Send(ctx context.Context, senderID string, in SendInput) (*MessageView, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	conv, err := r.open(ctx, in.ConversationID, senderID)
	if err != nil {
		return nil, err
	}
	sender, err := account.Get(ctx, r.db, senderID)
	if apperr.Is(err, apperr.NotFound) || (err == nil && !sender.IsActive) {
		return nil, apperr.Unauthenticatedf("User not found or inactive.")
	}
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Content:        in.Content,
		MessageType:    in.MessageType,
		FileURL:        in.FileURL,
	}

	unlock := r.locks.Lock(conv.ID)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("store message: %w", err)
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).
			Updates(map[string]any{
				"last_message_id": msg.ID,
				"last_message_at": msg.CreatedAt,
			}).Error
	})
	if err != nil {
		unlock()
		return nil, fmt.Errorf("chat: send to %s: %w", conv.ID, err)
	}
	view := viewOf(msg, sender)
	if r.rooms != nil {
		r.rooms.ToConversation(conv.ID, EventNewMessage, NewMessagePayload{Message: view})
	}
	unlock()

	other := conv.Other(sender.ID)
	r.sink.Record(ctx, notify.Notice{
		UserID:      other,
		Type:        models.NotifyMessage,
		Title:       "New Message",
		Message:     fmt.Sprintf("You have a new message from %s", sender.FirstName),
		RelatedID:   conv.ID,
		RelatedType: notify.RelatedConversation,
	})
	r.sink.Push(other, models.NotifyMessage, fmt.Sprintf("New message from %s", sender.FirstName))
	return &view, nil
}

// HistoryPage is one page of a conversation's messages, oldest first.
type HistoryPage struct {
	Messages   []MessageView     `json:"messages"`
	Pagination paging.Pagination `json:"pagination"`
}

// History returns page of convID as seen by userID. Pages count back from
// the newest message; each page is returned oldest first.
func (r *Relay) History(ctx context.Context, userID, convID string, page, limit int) (*HistoryPage, error) {
	conv, err := r.open(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	page, limit = paging.Normalize(page, limit, r.pageSize, r.maxPage)

	q := r.db.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conv.ID)
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("chat: count %s: %w", conv.ID, err)
	}
	var rows []models.Message
	err = q.Session(&gorm.Session{}).Preload("Sender").
		Order("id DESC").Offset(paging.Offset(page, limit)).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("chat: history %s: %w", conv.ID, err)
	}

	out := &HistoryPage{Messages: make([]MessageView, 0, len(rows)), Pagination: paging.New(page, limit, total)}
	for i := len(rows) - 1; i >= 0; i-- {
		out.Messages = append(out.Messages, viewOf(&rows[i], rows[i].Sender))
	}
	return out, nil
}

// Conversations lists userID's conversations, most recently active first.
func (r *Relay) Conversations(ctx context.Context, userID string) ([]Summary, error) {
	convs, err := r.dir.ListFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.summarize(ctx, userID, convs)
}

// FindOrCreate returns the conversation between userID and otherID, creating
// it on first contact.
func (r *Relay) FindOrCreate(ctx context.Context, userID, otherID string) (*Summary, error) {
	if otherID == userID {
		return nil, apperr.Validationf("Cannot create conversation with yourself")
	}
	if _, err := account.Get(ctx, r.db, otherID); err != nil {
		return nil, err
	}
	conv, err := r.dir.GetOrCreate(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	out, err := r.summarize(ctx, userID, []models.Conversation{*conv})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// summarize batch-loads the counterpart, appointment and last message of
// every conversation in convs.
func (r *Relay) summarize(ctx context.Context, userID string, convs []models.Conversation) ([]Summary, error) {
	out := make([]Summary, 0, len(convs))
	if len(convs) == 0 {
		return out, nil
	}

	var userIDs, apptIDs []string
	var msgIDs []uint
	for i := range convs {
		userIDs = append(userIDs, convs[i].Other(userID))
		if convs[i].AppointmentID != nil {
			apptIDs = append(apptIDs, *convs[i].AppointmentID)
		}
		if convs[i].LastMessageID != nil {
			msgIDs = append(msgIDs, *convs[i].LastMessageID)
		}
	}

	db := r.db.WithContext(ctx)
	var users []models.User
	if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("chat: load participants: %w", err)
	}
	profiles := make(map[string]models.PublicProfile, len(users))
	for i := range users {
		profiles[users[i].ID] = users[i].Public()
	}

	statuses := make(map[string]models.AppointmentStatus)
	if len(apptIDs) > 0 {
		var appts []models.Appointment
		if err := db.Select("id", "status").Where("id IN ?", apptIDs).Find(&appts).Error; err != nil {
			return nil, fmt.Errorf("chat: load appointments: %w", err)
		}
		for _, a := range appts {
			statuses[a.ID] = a.Status
		}
	}

	lasts := make(map[uint]*LastMessage)
	if len(msgIDs) > 0 {
		var msgs []models.Message
		if err := db.Where("id IN ?", msgIDs).Find(&msgs).Error; err != nil {
			return nil, fmt.Errorf("chat: load last messages: %w", err)
		}
		for _, m := range msgs {
			lasts[m.ID] = &LastMessage{
				ID:          m.ID,
				SenderID:    m.SenderID,
				Content:     m.Content,
				MessageType: m.MessageType,
				CreatedAt:   m.CreatedAt,
			}
		}
	}

	for _, c := range convs {
		s := Summary{
			ID:            c.ID,
			AppointmentID: c.AppointmentID,
			LastMessageAt: c.LastMessageAt,
			CreatedAt:     c.CreatedAt,
		}
		if p, ok := profiles[c.Other(userID)]; ok {
			s.Participant = &p
		}
		if c.AppointmentID != nil {
			if st, ok := statuses[*c.AppointmentID]; ok {
				s.AppointmentStatus = &st
			}
		}
		if c.LastMessageID != nil {
			s.LastMessage = lasts[*c.LastMessageID]
		}
		out = append(out, s)
	}
	return out, nil
}
