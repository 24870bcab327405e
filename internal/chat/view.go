package chat

import (
	"time"

	"github.com/sujalkunwar22/backend/internal/models"
)

// MessageView is a message with its sender's public profile inlined.
type MessageView struct {
	ID             uint                 `json:"id"`
	ConversationID string               `json:"conversationId"`
	SenderID       string               `json:"senderId"`
	Sender         models.PublicProfile `json:"sender"`
	Content        string               `json:"content"`
	MessageType    models.MessageType   `json:"messageType"`
	FileURL        *string              `json:"fileUrl"`
	IsRead         bool                 `json:"isRead"`
	ReadAt         *time.Time           `json:"readAt"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func viewOf(m *models.Message, sender *models.User) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Sender:         models.PublicProfile{ID: m.SenderID},
		Content:        m.Content,
		MessageType:    m.MessageType,
		FileURL:        m.FileURL,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
	if sender != nil {
		v.Sender = sender.Public()
	}
	return v
}

// NewMessagePayload is the body of a newMessage event.
type NewMessagePayload struct {
	Message MessageView `json:"message"`
}

// LastMessage previews the latest message of a conversation.
type LastMessage struct {
	ID          uint               `json:"id"`
	SenderID    string             `json:"senderId"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"messageType"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Summary is one entry of a user's conversation list.
type Summary struct {
	ID                string                    `json:"id"`
	Participant       *models.PublicProfile     `json:"participant"`
	AppointmentID     *string                   `json:"appointmentId"`
	AppointmentStatus *models.AppointmentStatus `json:"appointmentStatus"`
	LastMessage       *LastMessage              `json:"lastMessage"`
	LastMessageAt     time.Time                 `json:"lastMessageAt"`
	CreatedAt         time.Time                 `json:"createdAt"`
}
