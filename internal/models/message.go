package models

import "time"

// MessageType classifies chat content.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageFile || t == MessageSystem
}

// Message is one chat event. IDs increase with commit order, which the
// history query relies on.
type Message struct {
	ID             uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string      `gorm:"size:36;not null;index:idx_msg_conv_created" json:"conversationId"`
	SenderID       string      `gorm:"size:36;not null;index" json:"senderId"`
	Content        string      `gorm:"size:2000;not null" json:"content"`
	MessageType    MessageType `gorm:"size:8;not null;default:text" json:"messageType"`
	FileURL        *string     `gorm:"size:1024" json:"fileUrl"`
	IsRead         bool        `gorm:"default:false;index" json:"isRead"`
	ReadAt         *time.Time  `json:"readAt"`
	CreatedAt      time.Time   `gorm:"index:idx_msg_conv_created" json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`

	Sender *User `gorm:"foreignKey:SenderID" json:"-"`
}
