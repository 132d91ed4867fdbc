// api/handlers/stats_handlers.go
package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lightfolio/api/analytics"
	"lightfolio/api/models"
	"lightfolio/api/store"
)

// statsTimeout bounds the event fetch + aggregation of one stats request.
const statsTimeout = 10 * time.Second

// EventLister fetches the raw event history the aggregator recomputes from.
type EventLister interface {
	ListByShareLinks(ctx context.Context, shareLinkIDs []string) ([]models.AnalyticsEvent, error)
}

// CatalogStore resolves share links, lightboxes and media metadata. It also
// serves as the aggregator's MediaResolver.
type CatalogStore interface {
	GetShareLink(ctx context.Context, id string) (*models.ShareLink, error)
	GetLightbox(ctx context.Context, id string) (*models.Lightbox, error)
	ListShareLinksByLightbox(ctx context.Context, lightboxID string) ([]models.ShareLink, error)
	GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error)
}

// StatsHandlers serves the derived analytics views. Every request is a
// stateless recomputation over the stored events; there is no caching layer.
type StatsHandlers struct {
	Events     EventLister
	Catalog    CatalogStore
	Aggregator analytics.Aggregator
	Logger     *zap.Logger
}

func NewStatsHandlers(events EventLister, catalog CatalogStore, aggregator analytics.Aggregator, logger *zap.Logger) *StatsHandlers {
	return &StatsHandlers{
		Events:     events,
		Catalog:    catalog,
		Aggregator: aggregator,
		Logger:     logger,
	}
}

type shareLinkStatsResponse struct {
	ShareLinkID   string `json:"shareLinkId"`
	ShareLinkName string `json:"shareLinkName"`
	LightboxID    string `json:"lightboxId"`
	models.Metrics
}

type lightboxStatsResponse struct {
	LightboxID   string `json:"lightboxId"`
	LightboxName string `json:"lightboxName"`
	models.Metrics
}

// GetShareLinkStats aggregates the events of a single share link.
func (h *StatsHandlers) GetShareLinkStats(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	link, err := h.Catalog.GetShareLink(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Share link not found"})
			return
		}
		h.Logger.Error("failed to load share link", zap.String("share_link_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve share link"})
		return
	}

	events, err := h.Events.ListByShareLinks(ctx, []string{link.ID})
	if err != nil {
		h.Logger.Error("failed to load events for share link", zap.String("share_link_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics events"})
		return
	}

	c.JSON(http.StatusOK, shareLinkStatsResponse{
		ShareLinkID:   link.ID,
		ShareLinkName: link.Name,
		LightboxID:    link.LightboxID,
		Metrics:       h.Aggregator.Aggregate(ctx, events, analytics.ScopeShareLink, h.Catalog),
	})
}

// GetLightboxStats pools events across all of a lightbox's share links, with
// per-link attribution retained in the hour and location breakdowns.
func (h *StatsHandlers) GetLightboxStats(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	lightbox, err := h.Catalog.GetLightbox(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lightbox not found"})
			return
		}
		h.Logger.Error("failed to load lightbox", zap.String("lightbox_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve lightbox"})
		return
	}

	links, err := h.Catalog.ListShareLinksByLightbox(ctx, lightbox.ID)
	if err != nil {
		h.Logger.Error("failed to list share links", zap.String("lightbox_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve share links"})
		return
	}

	linkIDs := make([]string, 0, len(links))
	for _, link := range links {
		linkIDs = append(linkIDs, link.ID)
	}

	events, err := h.Events.ListByShareLinks(ctx, linkIDs)
	if err != nil {
		h.Logger.Error("failed to load events for lightbox", zap.String("lightbox_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics events"})
		return
	}

	c.JSON(http.StatusOK, lightboxStatsResponse{
		LightboxID:   lightbox.ID,
		LightboxName: lightbox.Name,
		Metrics:      h.Aggregator.Aggregate(ctx, events, analytics.ScopeLightbox, h.Catalog),
	})
}

// exportHeader is the CSV column order of the raw event export.
var exportHeader = []string{
	"event", "session_id", "user_agent", "ip",
	"geo_country", "geo_region", "media_item_id", "duration_ms", "created_at",
}

// ExportShareLinkEvents streams the share link's raw events as CSV. This is a
// pure formatting view over the event store.
func (h *StatsHandlers) ExportShareLinkEvents(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	link, err := h.Catalog.GetShareLink(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Share link not found"})
			return
		}
		h.Logger.Error("failed to load share link for export", zap.String("share_link_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve share link"})
		return
	}

	events, err := h.Events.ListByShareLinks(ctx, []string{link.ID})
	if err != nil {
		h.Logger.Error("failed to load events for export", zap.String("share_link_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics events"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-events.csv", link.ID))

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, e := range events {
		_ = w.Write([]string{
			e.Event,
			e.SessionID,
			e.UserAgent,
			e.IP,
			e.GeoCountry,
			e.GeoRegion,
			e.MediaItemID,
			strconv.FormatInt(e.DurationMs, 10),
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.Logger.Error("failed to stream CSV export", zap.String("share_link_id", id), zap.Error(err))
	}
}
