// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lightfolio/api/geo"
	"lightfolio/api/models"
	"lightfolio/api/store"
	"lightfolio/api/utils"
)

// insertTimeout bounds the event store write on the ingestion path.
const insertTimeout = 15 * time.Second

// geoTimeout bounds the best-effort geolocation lookup.
const geoTimeout = 2 * time.Second

// EventRecorder persists raw analytics events.
type EventRecorder interface {
	Insert(ctx context.Context, event models.AnalyticsEvent) error
}

// EntityResolver validates that referenced ids resolve to existing rows.
type EntityResolver interface {
	GetShareLink(ctx context.Context, id string) (*models.ShareLink, error)
	GetLightbox(ctx context.Context, id string) (*models.Lightbox, error)
	GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error)
}

// GeoResolver resolves an IP to a coarse location; best-effort.
type GeoResolver interface {
	Lookup(ctx context.Context, ip string) (*geo.Location, error)
}

// VisitAlerter is invoked after a lightbox_open event was durably stored. It
// must never fail the ingestion request; implementations swallow errors.
type VisitAlerter interface {
	HandleLightboxOpen(ctx context.Context, lightbox *models.Lightbox, link *models.ShareLink, sessionID string, passwordCorrect bool, now time.Time)
}

// TrackHandlers owns the viewer-facing ingestion surface.
type TrackHandlers struct {
	Events   EventRecorder
	Entities EntityResolver
	Geo      GeoResolver
	Alerter  VisitAlerter
	Logger   *zap.Logger
}

func NewTrackHandlers(events EventRecorder, entities EntityResolver, geoClient GeoResolver, alerter VisitAlerter, logger *zap.Logger) *TrackHandlers {
	return &TrackHandlers{
		Events:   events,
		Entities: entities,
		Geo:      geoClient,
		Alerter:  alerter,
		Logger:   logger,
	}
}

// TrackEvent validates and records one interaction event, then triggers the
// visit notifier for lightbox opens. Notifier and webhook failures never
// affect the response; the event is already durably stored by then.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var req models.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if !utils.IsValidEventType(req.Event) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown event type"})
		return
	}
	if req.ShareLinkID == "" && req.MediaItemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one of share_link_id or media_item_id is required"})
		return
	}

	link, lightbox, ok := h.resolveShareLink(c, req.ShareLinkID)
	if !ok {
		return
	}
	if !h.resolveMediaItem(c, req.MediaItemID) {
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request.UserAgent()
	}

	event := models.AnalyticsEvent{
		ID:          uuid.New().String(),
		Event:       req.Event,
		ShareLinkID: req.ShareLinkID,
		MediaItemID: req.MediaItemID,
		SessionID:   req.SessionID,
		DurationMs:  req.DurationMs,
		IP:          c.ClientIP(),
		UserAgent:   userAgent,
		Referrer:    req.Referrer,
		ScreenSize:  req.ScreenSize,
		CreatedAt:   time.Now().UTC(),
	}
	h.enrichLocation(c.Request.Context(), &event)

	ctx, cancel := context.WithTimeout(c.Request.Context(), insertTimeout)
	defer cancel()
	if err := h.Events.Insert(ctx, event); err != nil {
		h.Logger.Error("failed to insert analytics event", zap.String("event", req.Event), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record analytics event"})
		return
	}

	if event.Event == models.EventLightboxOpen && link != nil && lightbox != nil {
		passwordCorrect := req.PasswordCorrect
		if !link.PasswordProtected() {
			passwordCorrect = true
		}
		h.Alerter.HandleLightboxOpen(c.Request.Context(), lightbox, link, event.SessionID, passwordCorrect, event.CreatedAt)
	}

	c.JSON(http.StatusCreated, gin.H{"id": event.ID})
}

// resolveShareLink validates the optional share_link_id and loads its lightbox
// for the notifier. Unresolvable ids are rejected, not silently dropped.
func (h *TrackHandlers) resolveShareLink(c *gin.Context, id string) (*models.ShareLink, *models.Lightbox, bool) {
	if id == "" {
		return nil, nil, true
	}
	if !utils.IsValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed share_link_id"})
		return nil, nil, false
	}

	link, err := h.Entities.GetShareLink(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown share_link_id"})
			return nil, nil, false
		}
		h.Logger.Error("failed to resolve share link", zap.String("share_link_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate share link"})
		return nil, nil, false
	}

	lightbox, err := h.Entities.GetLightbox(c.Request.Context(), link.LightboxID)
	if err != nil {
		// The event itself is still valid; only the notifier needs the name.
		h.Logger.Warn("failed to resolve lightbox for share link",
			zap.String("share_link_id", id), zap.Error(err))
		return link, nil, true
	}
	return link, lightbox, true
}

func (h *TrackHandlers) resolveMediaItem(c *gin.Context, id string) bool {
	if id == "" {
		return true
	}
	if !utils.IsValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed media_item_id"})
		return false
	}
	if _, err := h.Entities.GetMediaItem(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown media_item_id"})
			return false
		}
		h.Logger.Error("failed to resolve media item", zap.String("media_item_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate media item"})
		return false
	}
	return true
}

// enrichLocation attaches country/region for non-loopback client IPs. Lookup
// failure leaves the fields empty; the event is recorded regardless.
func (h *TrackHandlers) enrichLocation(ctx context.Context, event *models.AnalyticsEvent) {
	if h.Geo == nil || utils.IsLoopbackIP(event.IP) {
		return
	}

	geoCtx, cancel := context.WithTimeout(ctx, geoTimeout)
	defer cancel()

	location, err := h.Geo.Lookup(geoCtx, event.IP)
	if err != nil {
		h.Logger.Debug("geo lookup failed", zap.String("ip", event.IP), zap.Error(err))
		return
	}
	event.GeoCountry = location.Country
	event.GeoRegion = location.Region
}

// VerifySharePassword checks a viewer-entered password against the share
// link's bcrypt hash. The client echoes the result on subsequent
// lightbox_open events.
func (h *TrackHandlers) VerifySharePassword(c *gin.Context) {
	id := c.Param("id")

	var req models.VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	link, err := h.Entities.GetShareLink(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Share link not found"})
			return
		}
		h.Logger.Error("failed to load share link for password check", zap.String("share_link_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}

	if !link.PasswordProtected() {
		c.JSON(http.StatusOK, gin.H{"correct": true})
		return
	}

	correct := bcrypt.CompareHashAndPassword(link.PasswordHash, []byte(req.Password)) == nil
	c.JSON(http.StatusOK, gin.H{"correct": correct})
}
