// Package geo resolves an IP address to a coarse country/region pair at
// ingestion time. Lookups are best-effort: any failure leaves the event's geo
// fields empty and is never surfaced to the event producer.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// defaultBaseURL is the free ip-api.com JSON endpoint.
const defaultBaseURL = "http://ip-api.com/json"

// Location is the subset of geolocation data the analytics engine stores.
type Location struct {
	Country string
	Region  string
}

// Client queries an ip-api.com compatible endpoint.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a geolocation client with a bounded request timeout.
// baseURL overrides the ip-api.com endpoint; pass "" for the default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		client:  &http.Client{Timeout: 3 * time.Second},
		baseURL: baseURL,
	}
}

// lookupResponse is the ip-api.com JSON shape, reduced to the fields used.
type lookupResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
}

// Lookup resolves ipAddress to a Location. It returns an error for invalid
// IPs, transport failures, or an unsuccessful provider status; callers treat
// all of these as "no geo data".
func (c *Client) Lookup(ctx context.Context, ipAddress string) (*Location, error) {
	if ip := net.ParseIP(ipAddress); ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipAddress)
	}

	url := fmt.Sprintf("%s/%s?fields=status,message,country,regionName", c.baseURL, ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create geo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("geo lookup unsuccessful: %s", body.Message)
	}

	return &Location{Country: body.Country, Region: body.RegionName}, nil
}
