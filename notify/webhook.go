package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// VisitMessage is the data formatted into the chat message for a new visit.
type VisitMessage struct {
	LightboxName      string
	ShareLinkName     string
	EnteredAt         time.Time
	SessionDuration   time.Duration
	PasswordProtected bool
	PasswordCorrect   bool
	AnalyticsURL      string
}

// SlackNotifier posts visit alerts to a Slack incoming webhook. Delivery is
// best-effort; callers log and swallow errors.
type SlackNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewSlackNotifier creates a notifier gated on the global enabled flag and a
// configured webhook URL.
func NewSlackNotifier(enabled bool, webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		enabled:    enabled,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether delivery should be attempted at all.
func (n *SlackNotifier) Enabled() bool {
	return n.enabled && n.webhookURL != ""
}

// SendVisit posts the formatted message. It is a no-op when the notifier is
// disabled or unconfigured.
func (n *SlackNotifier) SendVisit(ctx context.Context, msg VisitMessage) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(map[string]string{"text": formatVisit(msg)})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// formatVisit renders the chat text: lightbox, link, timestamp, best-effort
// session duration, password outcome for protected links, and a deep link to
// the share link's analytics view.
func formatVisit(msg VisitMessage) string {
	text := fmt.Sprintf("Someone opened *%s* via share link *%s* at %s",
		msg.LightboxName, msg.ShareLinkName, msg.EnteredAt.Format(time.RFC1123))
	if msg.SessionDuration > 0 {
		text += fmt.Sprintf(" (session active for %s)", msg.SessionDuration.Round(time.Second))
	}
	if msg.PasswordProtected {
		if msg.PasswordCorrect {
			text += " — password entered correctly"
		} else {
			text += " — password not yet entered"
		}
	}
	if msg.AnalyticsURL != "" {
		text += fmt.Sprintf("\n<%s|View analytics>", msg.AnalyticsURL)
	}
	return text
}
