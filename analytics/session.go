package analytics

import (
	"sort"
	"time"

	"lightfolio/api/models"
)

// DefaultSessionTimeout is the inactivity gap after which a returning visitor
// counts as a new sub-session (and a new notifiable visit).
const DefaultSessionTimeout = 30 * time.Minute

// Split partitions the events of one raw session id into sub-sessions: maximal
// runs where consecutive events are at most timeout apart. Input order does not
// matter; events are sorted by CreatedAt internally. Identical timestamps are
// valid and contribute zero duration.
func Split(events []models.AnalyticsEvent, timeout time.Duration) [][]models.AnalyticsEvent {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]models.AnalyticsEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var sessions [][]models.AnalyticsEvent
	current := []models.AnalyticsEvent{sorted[0]}
	for _, e := range sorted[1:] {
		prev := current[len(current)-1]
		if e.CreatedAt.Sub(prev.CreatedAt) > timeout {
			sessions = append(sessions, current)
			current = []models.AnalyticsEvent{e}
			continue
		}
		current = append(current, e)
	}
	sessions = append(sessions, current)

	return sessions
}

// Durations returns one duration sample per sub-session, in milliseconds.
// A sub-session of a single event cannot estimate a span and yields no sample,
// though it still counts as a session elsewhere.
func Durations(sessions [][]models.AnalyticsEvent) []int64 {
	var samples []int64
	for _, s := range sessions {
		if len(s) < 2 {
			continue
		}
		span := s[len(s)-1].CreatedAt.Sub(s[0].CreatedAt)
		samples = append(samples, span.Milliseconds())
	}
	return samples
}

// SessionDurations is the combined helper the aggregator uses: split one raw
// session's events and collect its duration samples.
func SessionDurations(events []models.AnalyticsEvent, timeout time.Duration) []int64 {
	return Durations(Split(events, timeout))
}
