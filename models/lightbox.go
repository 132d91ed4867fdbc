package models

import "time"

// Lightbox is a gallery of media items published through one or more share links.
type Lightbox struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ShareLink is a viewer-facing entry point into a lightbox, optionally
// protected by a password.
type ShareLink struct {
	ID           string    `json:"id"`
	LightboxID   string    `json:"lightbox_id"`
	Name         string    `json:"name"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PasswordProtected reports whether viewers must enter a password.
func (l *ShareLink) PasswordProtected() bool {
	return len(l.PasswordHash) > 0
}

// MediaItem is a single photo or video inside a lightbox. DisplayURL is the
// CDN-facing URL produced by the upload pipeline; this API only reads it.
type MediaItem struct {
	ID         string    `json:"id"`
	LightboxID string    `json:"lightbox_id"`
	FileName   string    `json:"file_name"`
	DisplayURL string    `json:"display_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// VerifyPasswordRequest is the payload for the share-link password check.
type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
