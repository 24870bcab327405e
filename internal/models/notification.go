package models

import "time"

// NotificationType categorizes a notification.
type NotificationType string

const (
	NotifyAppointmentRequest   NotificationType = "APPOINTMENT_REQUEST"
	NotifyAppointmentProposed  NotificationType = "APPOINTMENT_PROPOSED"
	NotifyAppointmentConfirmed NotificationType = "APPOINTMENT_CONFIRMED"
	NotifyAppointmentUpdate    NotificationType = "APPOINTMENT_UPDATE"
	NotifyAppointmentCancelled NotificationType = "APPOINTMENT_CANCELLED"
	NotifyAppointmentCompleted NotificationType = "APPOINTMENT_COMPLETED"
	NotifyMessage              NotificationType = "MESSAGE"
	NotifyDocumentUploaded     NotificationType = "DOCUMENT_UPLOADED"
	NotifyVerificationRequest  NotificationType = "VERIFICATION_REQUEST"
	NotifyVerificationApproved NotificationType = "VERIFICATION_APPROVED"
	NotifyVerificationRejected NotificationType = "VERIFICATION_REJECTED"
	NotifySystem               NotificationType = "SYSTEM"
)

// Notification is a fire-and-forget alert for one user.
type Notification struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string           `gorm:"size:36;not null;index:idx_notif_user_read_created" json:"userId"`
	Type        NotificationType `gorm:"size:32;not null;index" json:"type"`
	Title       string           `gorm:"size:128;not null" json:"title"`
	Message     string           `gorm:"size:512;not null" json:"message"`
	RelatedID   *string          `gorm:"size:36" json:"relatedId"`
	RelatedType *string          `gorm:"size:16" json:"relatedType"`
	IsRead      bool             `gorm:"default:false;index:idx_notif_user_read_created" json:"isRead"`
	ReadAt      *time.Time       `json:"readAt"`
	CreatedAt   time.Time        `gorm:"index:idx_notif_user_read_created" json:"createdAt"`
}
