package domain

import "time"

// NotificationLevel mirrors toast severities.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient user-visible message.
type Notification struct {
	ID        string
	Level     NotificationLevel
	Message   string
	CreatedAt time.Time
}
