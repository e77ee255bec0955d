package models

import "time"

// NotificationType categorises user notifications.
type NotificationType string

const (
	NotificationTypeEnrollment NotificationType = "enrollment"
	NotificationTypeGrade      NotificationType = "grade"
	NotificationTypeSystem     NotificationType = "system"
)

// Notification is a message delivered to a user's inbox.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"type" json:"type"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
