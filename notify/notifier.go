// Package notify decides whether a lightbox_open event is a new visit worth
// alerting admins about, persists the notification, fans receipts out to the
// admin directory, and fires the chat webhook. Nothing in this package may
// fail the ingestion request that triggered it: every error is logged and
// swallowed here.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lightfolio/api/models"
)

// webhookTimeout bounds the fire-and-forget webhook delivery.
const webhookTimeout = 10 * time.Second

// NotificationStore persists notifications and receipts.
type NotificationStore interface {
	// LatestForVisit returns the most recent notification for the
	// (sessionID, shareLinkID) pair, or nil when none exists.
	LatestForVisit(ctx context.Context, sessionID, shareLinkID string) (*models.Notification, error)
	Create(ctx context.Context, n *models.Notification) error
	CreateReceipt(ctx context.Context, notificationID string, adminUserID int) error
}

// UserDirectory snapshots the current admin users for receipt fan-out.
type UserDirectory interface {
	ListAdminUserIDs(ctx context.Context) ([]int, error)
}

// SessionReader provides the earliest stored event of a session, used for the
// best-effort duration in the webhook message.
type SessionReader interface {
	EarliestSessionEvent(ctx context.Context, sessionID, shareLinkID string) (*models.AnalyticsEvent, error)
}

// WebhookSender delivers the formatted visit message.
type WebhookSender interface {
	Enabled() bool
	SendVisit(ctx context.Context, msg VisitMessage) error
}

// VisitNotifier implements the notification dedup rule and fan-out.
type VisitNotifier struct {
	notifications NotificationStore
	users         UserDirectory
	events        SessionReader
	webhook       WebhookSender
	timeout       time.Duration
	dashboardURL  string
	logger        *zap.Logger
}

// NewVisitNotifier wires the notifier. timeout is the same session timeout the
// aggregator uses; dashboardURL is the base for analytics deep links.
func NewVisitNotifier(
	notifications NotificationStore,
	users UserDirectory,
	events SessionReader,
	webhook WebhookSender,
	timeout time.Duration,
	dashboardURL string,
	logger *zap.Logger,
) *VisitNotifier {
	return &VisitNotifier{
		notifications: notifications,
		users:         users,
		events:        events,
		webhook:       webhook,
		timeout:       timeout,
		dashboardURL:  dashboardURL,
		logger:        logger,
	}
}

// shouldNotify applies the dedup rule: notify when no prior notification
// exists for the visit pair, or when the last one is older than the timeout.
func shouldNotify(last *models.Notification, now time.Time, timeout time.Duration) bool {
	return last == nil || now.Sub(last.EnteredAt) > timeout
}

// HandleLightboxOpen is invoked after a lightbox_open event was durably
// stored. The dedup lookup and writes are synchronous within the request; the
// webhook is dispatched on its own goroutine with a bounded timeout.
func (n *VisitNotifier) HandleLightboxOpen(
	ctx context.Context,
	lightbox *models.Lightbox,
	link *models.ShareLink,
	sessionID string,
	passwordCorrect bool,
	now time.Time,
) {
	last, err := n.notifications.LatestForVisit(ctx, sessionID, link.ID)
	if err != nil {
		n.logger.Error("visit dedup lookup failed",
			zap.String("share_link_id", link.ID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}
	if !shouldNotify(last, now, n.timeout) {
		return
	}

	notification := &models.Notification{
		ID:              uuid.New().String(),
		LightboxID:      lightbox.ID,
		ShareLinkID:     link.ID,
		SessionID:       sessionID,
		PasswordCorrect: passwordCorrect,
		EnteredAt:       now,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("failed to create visit notification",
			zap.String("share_link_id", link.ID),
			zap.Error(err))
		return
	}

	n.fanOut(ctx, notification.ID)
	n.dispatchWebhook(lightbox, link, sessionID, passwordCorrect, now)
}

// fanOut creates one receipt per admin user existing right now. Users added
// later do not retroactively receive receipts. Each insert is independent;
// a failed receipt is logged and does not abort the rest.
func (n *VisitNotifier) fanOut(ctx context.Context, notificationID string) {
	ids, err := n.users.ListAdminUserIDs(ctx)
	if err != nil {
		n.logger.Error("failed to snapshot admin users for fan-out",
			zap.String("notification_id", notificationID),
			zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := n.notifications.CreateReceipt(ctx, notificationID, id); err != nil {
			n.logger.Error("failed to create notification receipt",
				zap.String("notification_id", notificationID),
				zap.Int("admin_user_id", id),
				zap.Error(err))
		}
	}
}

// dispatchWebhook fires the chat message without blocking the request. The
// session duration is best-effort, derived from the earliest stored event of
// the session.
func (n *VisitNotifier) dispatchWebhook(
	lightbox *models.Lightbox,
	link *models.ShareLink,
	sessionID string,
	passwordCorrect bool,
	now time.Time,
) {
	if n.webhook == nil || !n.webhook.Enabled() {
		return
	}

	msg := VisitMessage{
		LightboxName:      lightbox.Name,
		ShareLinkName:     link.Name,
		EnteredAt:         now,
		PasswordProtected: link.PasswordProtected(),
		PasswordCorrect:   passwordCorrect,
		AnalyticsURL:      fmt.Sprintf("%s/share-links/%s/analytics", n.dashboardURL, link.ID),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
		defer cancel()

		if earliest, err := n.events.EarliestSessionEvent(ctx, sessionID, link.ID); err == nil && earliest != nil {
			msg.SessionDuration = now.Sub(earliest.CreatedAt)
		}

		if err := n.webhook.SendVisit(ctx, msg); err != nil {
			n.logger.Warn("visit webhook delivery failed",
				zap.String("share_link_id", link.ID),
				zap.Error(err))
		}
	}()
}
