// api/models/event.go
package models

import "time"

// Event type values accepted by the tracking endpoint.
const (
	EventLightboxOpen       = "lightbox_open"
	EventMediaClick         = "media_click"
	EventVideoPlay          = "video_play"
	EventVideoWatchProgress = "video_watch_progress"
	EventVideoEnd           = "video_end"
	EventMediaDownload      = "media_download"
)

// AnalyticsEvent is a single immutable interaction fact. At least one of
// ShareLinkID/MediaItemID is set; geo fields are best-effort and may be empty.
type AnalyticsEvent struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	ShareLinkID string    `json:"shareLinkId,omitempty"`
	MediaItemID string    `json:"mediaItemId,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	DurationMs  int64     `json:"durationMs,omitempty"`
	IP          string    `json:"ip,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	ScreenSize  string    `json:"screenSize,omitempty"`
	GeoCountry  string    `json:"geoCountry,omitempty"`
	GeoRegion   string    `json:"geoRegion,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TrackEventRequest is the JSON payload the viewer-side script posts to /api/track.
// PasswordCorrect is only meaningful for password-protected share links; the
// client echoes back the result of the verify endpoint.
type TrackEventRequest struct {
	Event           string `json:"event" binding:"required"`
	ShareLinkID     string `json:"share_link_id"`
	MediaItemID     string `json:"media_item_id"`
	SessionID       string `json:"session_id"`
	DurationMs      int64  `json:"duration_ms"`
	UserAgent       string `json:"user_agent"`
	Referrer        string `json:"referrer"`
	ScreenSize      string `json:"screen_size"`
	PasswordCorrect bool   `json:"password_correct"`
}
