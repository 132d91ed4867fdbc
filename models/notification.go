package models

import "time"

// Notification records one detected new visit to a share link. Immutable after
// creation; dedup against it is done by the visit notifier.
type Notification struct {
	ID              string    `json:"id"`
	LightboxID      string    `json:"lightbox_id"`
	ShareLinkID     string    `json:"share_link_id"`
	SessionID       string    `json:"session_id"`
	PasswordCorrect bool      `json:"password_correct"`
	EnteredAt       time.Time `json:"entered_at"`
}

// NotificationReceipt is the per-admin delivery/read record for a notification.
type NotificationReceipt struct {
	NotificationID string     `json:"notification_id"`
	AdminUserID    int        `json:"admin_user_id"`
	Seen           bool       `json:"seen"`
	SeenAt         *time.Time `json:"seen_at,omitempty"`
}

// AdminNotification is the joined row served by the notification list endpoint.
type AdminNotification struct {
	Notification
	LightboxName  string     `json:"lightbox_name"`
	ShareLinkName string     `json:"share_link_name"`
	Seen          bool       `json:"seen"`
	SeenAt        *time.Time `json:"seen_at,omitempty"`
}

// MarkSeenRequest toggles the seen flag on a receipt.
type MarkSeenRequest struct {
	Seen *bool `json:"seen" binding:"required"`
}
