package analytics

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"lightfolio/api/models"
)

// DefaultTopItems is the length cap of the most-interacted ranking.
const DefaultTopItems = 3

// unknownLocation is the synthetic bucket for events without resolved geo data.
const unknownLocation = "unknown"

// Scope selects how the aggregator keys its per-share-link breakdowns.
type Scope int

const (
	// ScopeShareLink aggregates the events of a single share link.
	ScopeShareLink Scope = iota
	// ScopeLightbox pools events across all of a lightbox's share links and
	// keeps share-link attribution for multi-series breakdowns.
	ScopeLightbox
)

// MediaResolver looks up media metadata for the top-interacted ranking.
// Resolution failures are tolerated; the ranking falls back to bare ids.
type MediaResolver interface {
	GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error)
}

// Aggregator computes derived metrics from raw events. It is stateless and
// side-effect free; every call recomputes from the full event set it is given.
type Aggregator struct {
	// SessionTimeout is the inactivity gap for session reconstruction.
	SessionTimeout time.Duration
	// TopItems caps the most-interacted ranking length.
	TopItems int
}

// NewAggregator applies the documented defaults for zero-valued settings.
func NewAggregator(sessionTimeout time.Duration, topItems int) Aggregator {
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	if topItems <= 0 {
		topItems = DefaultTopItems
	}
	return Aggregator{SessionTimeout: sessionTimeout, TopItems: topItems}
}

// Aggregate computes the Metrics view over events. An empty event set yields
// zero counts and empty collections, never an error.
func (a Aggregator) Aggregate(ctx context.Context, events []models.AnalyticsEvent, scope Scope, resolver MediaResolver) models.Metrics {
	m := models.Metrics{
		MostInteractedItems: []models.MostInteractedItem{},
		ActivityLocations:   []models.ActivityLocation{},
	}

	sessions := map[string][]models.AnalyticsEvent{}
	devices := map[string]struct{}{}
	for _, e := range events {
		if e.Event == models.EventLightboxOpen {
			m.TotalViews++
		}
		if e.SessionID != "" {
			sessions[e.SessionID] = append(sessions[e.SessionID], e)
		}
		if e.UserAgent != "" {
			devices[e.UserAgent] = struct{}{}
		}
	}
	m.TotalSessions = len(sessions)
	m.UniqueDevices = len(devices)
	m.AvgSessionDuration = a.avgSessionSeconds(sessions)
	m.MostInteractedItems = a.topInteracted(ctx, events, resolver)
	m.EngagementByHour = engagementByHour(events, scope)
	m.ActivityLocations = activityLocations(events, scope)

	return m
}

// avgSessionSeconds reconstructs every raw session, pools all sub-session
// duration samples and averages them, rounded to whole seconds.
func (a Aggregator) avgSessionSeconds(sessions map[string][]models.AnalyticsEvent) int64 {
	var sum int64
	var n int
	for _, events := range sessions {
		for _, sample := range SessionDurations(events, a.SessionTimeout) {
			sum += sample
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := float64(sum) / float64(n)
	return int64(math.Round(mean / 1000.0))
}

// topInteracted ranks media items by media_click + video_play count. The sort
// is stable and items are seeded in discovery order, so the first-seen item
// wins ties.
func (a Aggregator) topInteracted(ctx context.Context, events []models.AnalyticsEvent, resolver MediaResolver) []models.MostInteractedItem {
	counts := map[string]uint64{}
	var order []string
	for _, e := range events {
		if e.Event != models.EventMediaClick && e.Event != models.EventVideoPlay {
			continue
		}
		if e.MediaItemID == "" {
			continue
		}
		if _, seen := counts[e.MediaItemID]; !seen {
			order = append(order, e.MediaItemID)
		}
		counts[e.MediaItemID]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > a.TopItems {
		order = order[:a.TopItems]
	}

	items := make([]models.MostInteractedItem, 0, len(order))
	for _, id := range order {
		item := models.MostInteractedItem{MediaItemID: id, Count: counts[id]}
		if resolver != nil {
			if media, err := resolver.GetMediaItem(ctx, id); err == nil {
				item.FileName = media.FileName
				item.DisplayURL = media.DisplayURL
			}
		}
		items = append(items, item)
	}
	return items
}

// engagementByHour buckets share-link-associated events by local hour of day.
// Share-link scope returns hour -> count; lightbox scope returns
// shareLinkId -> hour -> count, one series per link.
func engagementByHour(events []models.AnalyticsEvent, scope Scope) any {
	if scope == ScopeLightbox {
		series := map[string]map[string]uint64{}
		for _, e := range events {
			if e.ShareLinkID == "" || e.CreatedAt.IsZero() {
				continue
			}
			hour := strconv.Itoa(e.CreatedAt.Local().Hour())
			if series[e.ShareLinkID] == nil {
				series[e.ShareLinkID] = map[string]uint64{}
			}
			series[e.ShareLinkID][hour]++
		}
		return series
	}

	hours := map[string]uint64{}
	for _, e := range events {
		if e.ShareLinkID == "" || e.CreatedAt.IsZero() {
			continue
		}
		hours[strconv.Itoa(e.CreatedAt.Local().Hour())]++
	}
	return hours
}

// activityLocations rolls events up by country/region (and share link in
// lightbox scope). Events missing either geo field join a single "unknown"
// bucket carrying only a count, so every event stays represented.
func activityLocations(events []models.AnalyticsEvent, scope Scope) []models.ActivityLocation {
	type key struct {
		country, region, shareLink string
	}
	counts := map[key]uint64{}
	var order []key
	var unknown uint64

	for _, e := range events {
		if e.GeoCountry == "" || e.GeoRegion == "" {
			unknown++
			continue
		}
		k := key{country: e.GeoCountry, region: e.GeoRegion}
		if scope == ScopeLightbox {
			k.shareLink = e.ShareLinkID
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	locations := make([]models.ActivityLocation, 0, len(order)+1)
	for _, k := range order {
		locations = append(locations, models.ActivityLocation{
			Country:     k.country,
			Region:      k.region,
			ShareLinkID: k.shareLink,
			Count:       counts[k],
		})
	}
	if unknown > 0 {
		locations = append(locations, models.ActivityLocation{
			Country: unknownLocation,
			Count:   unknown,
		})
	}
	return locations
}
