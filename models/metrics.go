package models

// MostInteractedItem is one entry of the top-N interacted media ranking.
// FileName/DisplayURL are empty when media resolution failed; the bare id and
// count are still served.
type MostInteractedItem struct {
	MediaItemID string `json:"mediaItemId"`
	Count       uint64 `json:"count"`
	FileName    string `json:"fileName,omitempty"`
	DisplayURL  string `json:"displayUrl,omitempty"`
}

// ActivityLocation is one geolocation rollup bucket. Events without resolved
// geo data collapse into a single bucket with Country set to "unknown" and no
// region or share-link attribution.
type ActivityLocation struct {
	Country     string `json:"country"`
	Region      string `json:"region,omitempty"`
	ShareLinkID string `json:"shareLinkId,omitempty"`
	Count       uint64 `json:"count"`
}

// Metrics is the derived analytics view for a share link or a lightbox.
// All fields are recomputed from raw events on every request.
type Metrics struct {
	TotalSessions int `json:"totalSessions"`
	TotalViews    int `json:"totalViews"`
	// UniqueDevices counts distinct user-agent strings. A coarse proxy: two
	// machines with the same UA collapse to one device.
	UniqueDevices int `json:"uniqueDevices"`
	// AvgSessionDuration is in whole seconds, 0 when no duration samples exist.
	AvgSessionDuration  int64                `json:"avgSessionDuration"`
	MostInteractedItems []MostInteractedItem `json:"mostInteractedItems"`
	// EngagementByHour is hour("0".."23") -> count in share-link scope and
	// shareLinkId -> hour -> count in lightbox scope (one chart series per
	// link). Hours are bucketed in the processing instance's local timezone.
	EngagementByHour  any                `json:"engagementByHour"`
	ActivityLocations []ActivityLocation `json:"activityLocations"`
}
