package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lightfolio/api/models"
	"lightfolio/api/notify"
)

const testSessionTimeout = 30 * time.Minute

var visitStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeNotificationStore tracks created notifications and mirrors the real
// store's dedup lookup against them.
type fakeNotificationStore struct {
	latestErr  error
	created    []*models.Notification
	receipts   map[int]int
	receiptErr map[int]error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{receipts: map[int]int{}, receiptErr: map[int]error{}}
}

func (s *fakeNotificationStore) LatestForVisit(_ context.Context, sessionID, shareLinkID string) (*models.Notification, error) {
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	var latest *models.Notification
	for _, n := range s.created {
		if n.SessionID != sessionID || n.ShareLinkID != shareLinkID {
			continue
		}
		if latest == nil || n.EnteredAt.After(latest.EnteredAt) {
			latest = n
		}
	}
	return latest, nil
}

func (s *fakeNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.created = append(s.created, n)
	return nil
}

func (s *fakeNotificationStore) CreateReceipt(_ context.Context, _ string, adminUserID int) error {
	if err := s.receiptErr[adminUserID]; err != nil {
		return err
	}
	s.receipts[adminUserID]++
	return nil
}

type fakeUsers struct {
	ids []int
	err error
}

func (u *fakeUsers) ListAdminUserIDs(context.Context) ([]int, error) {
	return u.ids, u.err
}

type fakeSessionReader struct {
	earliest *models.AnalyticsEvent
}

func (r *fakeSessionReader) EarliestSessionEvent(context.Context, string, string) (*models.AnalyticsEvent, error) {
	return r.earliest, nil
}

type fakeWebhook struct {
	enabled bool
	sent    chan notify.VisitMessage
}

func (w *fakeWebhook) Enabled() bool { return w.enabled }

func (w *fakeWebhook) SendVisit(_ context.Context, msg notify.VisitMessage) error {
	w.sent <- msg
	return nil
}

func testLightbox() *models.Lightbox {
	return &models.Lightbox{ID: "lb-1", Name: "Autumn Wedding"}
}

func testLink() *models.ShareLink {
	return &models.ShareLink{ID: "sl-1", LightboxID: "lb-1", Name: "Client Preview"}
}

func newNotifier(store *fakeNotificationStore, users *fakeUsers, reader *fakeSessionReader, webhook *fakeWebhook) *notify.VisitNotifier {
	return notify.NewVisitNotifier(
		store, users, reader, webhook,
		testSessionTimeout, "http://localhost:3000", zap.NewNop(),
	)
}

func TestHandleLightboxOpen_FirstVisitNotifies(t *testing.T) {
	store := newFakeNotificationStore()
	users := &fakeUsers{ids: []int{1, 2, 3}}
	n := newNotifier(store, users, &fakeSessionReader{}, &fakeWebhook{})

	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", true, visitStart)

	require.Len(t, store.created, 1)
	assert.Equal(t, "sl-1", store.created[0].ShareLinkID)
	assert.Equal(t, "sess-x", store.created[0].SessionID)
	assert.True(t, store.created[0].PasswordCorrect)

	// One receipt per admin existing at notification time.
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, store.receipts)
}

func TestHandleLightboxOpen_SuppressesWithinTimeout(t *testing.T) {
	store := newFakeNotificationStore()
	n := newNotifier(store, &fakeUsers{ids: []int{1}}, &fakeSessionReader{}, &fakeWebhook{})

	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", true, visitStart)
	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", true, visitStart.Add(100*time.Second))

	assert.Len(t, store.created, 1, "second open within the timeout belongs to the notified visit")

	// A third open past the timeout is a new visit.
	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", true, visitStart.Add(3000*time.Second))
	assert.Len(t, store.created, 2)
}

func TestHandleLightboxOpen_DistinctSessionsNotifyIndependently(t *testing.T) {
	store := newFakeNotificationStore()
	n := newNotifier(store, &fakeUsers{ids: []int{1}}, &fakeSessionReader{}, &fakeWebhook{})

	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-a", true, visitStart)
	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-b", true, visitStart.Add(time.Minute))

	assert.Len(t, store.created, 2)
}

func TestHandleLightboxOpen_PartialFanOutFailureContinues(t *testing.T) {
	store := newFakeNotificationStore()
	store.receiptErr[2] = errors.New("insert failed")
	n := newNotifier(store, &fakeUsers{ids: []int{1, 2, 3}}, &fakeSessionReader{}, &fakeWebhook{})

	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", true, visitStart)

	require.Len(t, store.created, 1)
	assert.Equal(t, map[int]int{1: 1, 3: 1}, store.receipts, "remaining receipts still created")
}

func TestHandleLightboxOpen_DedupLookupFailureIsSwallowed(t *testing.T) {
	store := newFakeNotificationStore()
	store.latestErr = errors.New("db down")
	n := newNotifier(store, &fakeUsers{ids: []int{1}}, &fakeSessionReader{}, &fakeWebhook{})

	assert.NotPanics(t, func() {
		n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", true, visitStart)
	})
	assert.Empty(t, store.created)
}

func TestHandleLightboxOpen_WebhookReceivesVisitMessage(t *testing.T) {
	store := newFakeNotificationStore()
	reader := &fakeSessionReader{earliest: &models.AnalyticsEvent{
		SessionID: "sess-x",
		CreatedAt: visitStart.Add(-5 * time.Minute),
	}}
	webhook := &fakeWebhook{enabled: true, sent: make(chan notify.VisitMessage, 1)}
	n := newNotifier(store, &fakeUsers{ids: []int{1}}, reader, webhook)

	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", false, visitStart)

	select {
	case msg := <-webhook.sent:
		assert.Equal(t, "Autumn Wedding", msg.LightboxName)
		assert.Equal(t, "Client Preview", msg.ShareLinkName)
		assert.Equal(t, 5*time.Minute, msg.SessionDuration)
		assert.False(t, msg.PasswordCorrect)
		assert.Contains(t, msg.AnalyticsURL, "sl-1")
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not invoked")
	}
}

func TestHandleLightboxOpen_DisabledWebhookNotCalled(t *testing.T) {
	store := newFakeNotificationStore()
	webhook := &fakeWebhook{enabled: false, sent: make(chan notify.VisitMessage, 1)}
	n := newNotifier(store, &fakeUsers{ids: []int{1}}, &fakeSessionReader{}, webhook)

	n.HandleLightboxOpen(context.Background(), testLightbox(), testLink(), "sess-x", true, visitStart)

	select {
	case <-webhook.sent:
		t.Fatal("disabled webhook must not be invoked")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Len(t, store.created, 1, "notification is still created")
}
