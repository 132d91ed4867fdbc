package handlers_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lightfolio/api/analytics"
	"lightfolio/api/handlers"
	"lightfolio/api/models"
	"lightfolio/api/store"
)

type fakeEventLister struct {
	events  []models.AnalyticsEvent
	queried [][]string
	err     error
}

func (l *fakeEventLister) ListByShareLinks(_ context.Context, ids []string) ([]models.AnalyticsEvent, error) {
	l.queried = append(l.queried, ids)
	if l.err != nil {
		return nil, l.err
	}
	var out []models.AnalyticsEvent
	for _, e := range l.events {
		for _, id := range ids {
			if e.ShareLinkID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

type fakeCatalog struct {
	links    map[string]*models.ShareLink
	lightbox *models.Lightbox
	media    map[string]*models.MediaItem
}

func (f *fakeCatalog) GetShareLink(_ context.Context, id string) (*models.ShareLink, error) {
	if link, ok := f.links[id]; ok {
		return link, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCatalog) GetLightbox(_ context.Context, id string) (*models.Lightbox, error) {
	if f.lightbox != nil && f.lightbox.ID == id {
		return f.lightbox, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCatalog) ListShareLinksByLightbox(_ context.Context, lightboxID string) ([]models.ShareLink, error) {
	var out []models.ShareLink
	for _, link := range f.links {
		if link.LightboxID == lightboxID {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetMediaItem(_ context.Context, id string) (*models.MediaItem, error) {
	if item, ok := f.media[id]; ok {
		return item, nil
	}
	return nil, store.ErrNotFound
}

func statsCatalog() *fakeCatalog {
	return &fakeCatalog{
		links: map[string]*models.ShareLink{
			"sl-1": {ID: "sl-1", LightboxID: "lb-1", Name: "Client Preview"},
			"sl-2": {ID: "sl-2", LightboxID: "lb-1", Name: "Public Gallery"},
		},
		lightbox: &models.Lightbox{ID: "lb-1", Name: "Autumn Wedding"},
		media: map[string]*models.MediaItem{
			"m-1": {ID: "m-1", FileName: "sunset.jpg", DisplayURL: "https://cdn.example.com/sunset.jpg"},
		},
	}
}

func newStatsRouter(h *handlers.StatsHandlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/share-links/:id/stats", h.GetShareLinkStats)
	r.GET("/api/share-links/:id/events.csv", h.ExportShareLinkEvents)
	r.GET("/api/lightboxes/:id/stats", h.GetLightboxStats)
	return r
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetShareLinkStats(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lister := &fakeEventLister{events: []models.AnalyticsEvent{
		{Event: models.EventLightboxOpen, ShareLinkID: "sl-1", SessionID: "s1", UserAgent: "ua-1", CreatedAt: at},
		{Event: models.EventMediaClick, ShareLinkID: "sl-1", MediaItemID: "m-1", SessionID: "s1", UserAgent: "ua-1", CreatedAt: at.Add(time.Minute)},
		{Event: models.EventMediaClick, ShareLinkID: "sl-2", SessionID: "s9", UserAgent: "ua-9", CreatedAt: at},
	}}
	h := handlers.NewStatsHandlers(lister, statsCatalog(), analytics.NewAggregator(30*time.Minute, 3), zap.NewNop())

	w := getPath(newStatsRouter(h), "/api/share-links/sl-1/stats")

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, [][]string{{"sl-1"}}, lister.queried, "only the requested link's events are fetched")

	var resp struct {
		ShareLinkID         string                      `json:"shareLinkId"`
		ShareLinkName       string                      `json:"shareLinkName"`
		TotalSessions       int                         `json:"totalSessions"`
		TotalViews          int                         `json:"totalViews"`
		MostInteractedItems []models.MostInteractedItem `json:"mostInteractedItems"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sl-1", resp.ShareLinkID)
	assert.Equal(t, "Client Preview", resp.ShareLinkName)
	assert.Equal(t, 1, resp.TotalSessions)
	assert.Equal(t, 1, resp.TotalViews)
	require.Len(t, resp.MostInteractedItems, 1)
	assert.Equal(t, "sunset.jpg", resp.MostInteractedItems[0].FileName)
}

func TestGetShareLinkStats_NotFound(t *testing.T) {
	h := handlers.NewStatsHandlers(&fakeEventLister{}, statsCatalog(), analytics.NewAggregator(30*time.Minute, 3), zap.NewNop())

	w := getPath(newStatsRouter(h), "/api/share-links/sl-404/stats")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLightboxStats_PoolsAllShareLinks(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lister := &fakeEventLister{events: []models.AnalyticsEvent{
		{Event: models.EventLightboxOpen, ShareLinkID: "sl-1", SessionID: "s1", UserAgent: "ua-1", CreatedAt: at},
		{Event: models.EventLightboxOpen, ShareLinkID: "sl-2", SessionID: "s2", UserAgent: "ua-2", CreatedAt: at},
	}}
	h := handlers.NewStatsHandlers(lister, statsCatalog(), analytics.NewAggregator(30*time.Minute, 3), zap.NewNop())

	w := getPath(newStatsRouter(h), "/api/lightboxes/lb-1/stats")

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, lister.queried, 1)
	assert.ElementsMatch(t, []string{"sl-1", "sl-2"}, lister.queried[0])

	var resp struct {
		LightboxName  string `json:"lightboxName"`
		TotalSessions int    `json:"totalSessions"`
		TotalViews    int    `json:"totalViews"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Autumn Wedding", resp.LightboxName)
	assert.Equal(t, 2, resp.TotalSessions)
	assert.Equal(t, 2, resp.TotalViews)
}

func TestGetLightboxStats_NotFound(t *testing.T) {
	h := handlers.NewStatsHandlers(&fakeEventLister{}, statsCatalog(), analytics.NewAggregator(30*time.Minute, 3), zap.NewNop())

	w := getPath(newStatsRouter(h), "/api/lightboxes/lb-404/stats")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportShareLinkEvents(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lister := &fakeEventLister{events: []models.AnalyticsEvent{
		{
			Event: models.EventMediaClick, ShareLinkID: "sl-1", MediaItemID: "m-1",
			SessionID: "s1", UserAgent: "ua-1", IP: "81.2.69.142",
			GeoCountry: "United Kingdom", GeoRegion: "England",
			DurationMs: 1500, CreatedAt: at,
		},
	}}
	h := handlers.NewStatsHandlers(lister, statsCatalog(), analytics.NewAggregator(30*time.Minute, 3), zap.NewNop())

	w := getPath(newStatsRouter(h), "/api/share-links/sl-1/events.csv")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=sl-1-events.csv", w.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"event", "session_id", "user_agent", "ip",
		"geo_country", "geo_region", "media_item_id", "duration_ms", "created_at",
	}, records[0])
	assert.Equal(t, []string{
		"media_click", "s1", "ua-1", "81.2.69.142",
		"United Kingdom", "England", "m-1", "1500", "2026-03-10T09:00:00Z",
	}, records[1])
}

func TestExportShareLinkEvents_NotFound(t *testing.T) {
	h := handlers.NewStatsHandlers(&fakeEventLister{}, statsCatalog(), analytics.NewAggregator(30*time.Minute, 3), zap.NewNop())

	w := getPath(newStatsRouter(h), "/api/share-links/sl-404/events.csv")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
