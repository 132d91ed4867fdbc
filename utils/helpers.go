package utils

import (
	"net"

	"github.com/google/uuid"

	"lightfolio/api/models"
)

// IsValidEventType reports whether t is one of the tracked event types.
func IsValidEventType(t string) bool {
	switch t {
	case models.EventLightboxOpen,
		models.EventMediaClick,
		models.EventVideoPlay,
		models.EventVideoWatchProgress,
		models.EventVideoEnd,
		models.EventMediaDownload:
		return true
	default:
		return false
	}
}

// IsValidID reports whether s is a syntactically valid UUID.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsLoopbackIP reports whether s is unparseable or a loopback address, in
// which case geolocation is skipped.
func IsLoopbackIP(s string) bool {
	ip := net.ParseIP(s)
	return ip == nil || ip.IsLoopback()
}
