// api/store/event_store.go
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lightfolio/api/database"
	"lightfolio/api/models"
)

// eventColumns is the insert column list of the analytics_events table.
const eventColumns = `
		id, event, share_link_id, media_item_id, session_id, duration_ms,
		ip, user_agent, referrer, screen_size, geo_country, geo_region, created_at`

// EventStore is the append-only adapter over the ClickHouse event table.
// Events are never mutated or deleted.
type EventStore struct {
	DB     *database.ClickHouseClient
	logger *zap.Logger
}

func NewEventStore(chClient *database.ClickHouseClient, logger *zap.Logger) *EventStore {
	return &EventStore{DB: chClient, logger: logger}
}

// Insert appends one event. The server-assigned id and timestamp are already
// set by the ingestion handler.
func (s *EventStore) Insert(ctx context.Context, event models.AnalyticsEvent) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO analytics_events (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, eventColumns))
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}

	err = batch.Append(
		event.ID,
		event.Event,
		event.ShareLinkID,
		event.MediaItemID,
		event.SessionID,
		event.DurationMs,
		event.IP,
		event.UserAgent,
		event.Referrer,
		event.ScreenSize,
		event.GeoCountry,
		event.GeoRegion,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send event batch: %w", err)
	}
	return nil
}

// ListByShareLinks returns every event attributed to the given share links,
// oldest first. Aggregations recompute from this full history on each call.
func (s *EventStore) ListByShareLinks(ctx context.Context, shareLinkIDs []string) ([]models.AnalyticsEvent, error) {
	if len(shareLinkIDs) == 0 {
		return nil, nil
	}

	rows, err := s.DB.Conn.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM analytics_events
		WHERE share_link_id IN (?)
		ORDER BY created_at ASC
	`, eventColumns), shareLinkIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by share links: %w", err)
	}
	defer rows.Close()

	var events []models.AnalyticsEvent
	for rows.Next() {
		var e models.AnalyticsEvent
		if err := rows.Scan(
			&e.ID, &e.Event, &e.ShareLinkID, &e.MediaItemID, &e.SessionID, &e.DurationMs,
			&e.IP, &e.UserAgent, &e.Referrer, &e.ScreenSize, &e.GeoCountry, &e.GeoRegion, &e.CreatedAt,
		); err != nil {
			s.logger.Error("error scanning analytics event row", zap.Error(err))
			continue
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during events query: %w", err)
	}

	return events, nil
}

// EarliestSessionEvent returns the oldest stored event for the session on the
// given share link, or nil when the session has no history. Used only for the
// best-effort duration in the visit webhook.
func (s *EventStore) EarliestSessionEvent(ctx context.Context, sessionID, shareLinkID string) (*models.AnalyticsEvent, error) {
	rows, err := s.DB.Conn.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM analytics_events
		WHERE session_id = ? AND share_link_id = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, eventColumns), sessionID, shareLinkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earliest session event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var e models.AnalyticsEvent
	if err := rows.Scan(
		&e.ID, &e.Event, &e.ShareLinkID, &e.MediaItemID, &e.SessionID, &e.DurationMs,
		&e.IP, &e.UserAgent, &e.Referrer, &e.ScreenSize, &e.GeoCountry, &e.GeoRegion, &e.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan earliest session event: %w", err)
	}
	return &e, nil
}
