package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightfolio/api/notify"
)

func captureWebhook(t *testing.T, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		texts = append(texts, payload["text"])
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &texts
}

func TestSlackNotifier_SendVisit(t *testing.T) {
	srv, texts := captureWebhook(t, http.StatusOK)

	n := notify.NewSlackNotifier(true, srv.URL)
	msg := notify.VisitMessage{
		LightboxName:      "Autumn Wedding",
		ShareLinkName:     "Client Preview",
		EnteredAt:         time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		SessionDuration:   95 * time.Second,
		PasswordProtected: true,
		PasswordCorrect:   true,
		AnalyticsURL:      "http://localhost:3000/share-links/sl-1/analytics",
	}

	require.NoError(t, n.SendVisit(context.Background(), msg))
	require.Len(t, *texts, 1)

	text := (*texts)[0]
	assert.Contains(t, text, "*Autumn Wedding*")
	assert.Contains(t, text, "*Client Preview*")
	assert.Contains(t, text, "session active for 1m35s")
	assert.Contains(t, text, "password entered correctly")
	assert.Contains(t, text, "<http://localhost:3000/share-links/sl-1/analytics|View analytics>")
}

func TestSlackNotifier_SendVisitOmitsOptionalParts(t *testing.T) {
	srv, texts := captureWebhook(t, http.StatusOK)

	n := notify.NewSlackNotifier(true, srv.URL)
	msg := notify.VisitMessage{
		LightboxName:  "Autumn Wedding",
		ShareLinkName: "Client Preview",
		EnteredAt:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, n.SendVisit(context.Background(), msg))
	require.Len(t, *texts, 1)

	text := (*texts)[0]
	assert.NotContains(t, text, "session active")
	assert.NotContains(t, text, "password")
	assert.NotContains(t, text, "View analytics")
}

func TestSlackNotifier_NonSuccessStatusIsAnError(t *testing.T) {
	srv, _ := captureWebhook(t, http.StatusInternalServerError)

	n := notify.NewSlackNotifier(true, srv.URL)
	err := n.SendVisit(context.Background(), notify.VisitMessage{LightboxName: "x"})

	assert.ErrorContains(t, err, "status 500")
}

func TestSlackNotifier_DisabledIsNoOp(t *testing.T) {
	srv, texts := captureWebhook(t, http.StatusOK)

	n := notify.NewSlackNotifier(false, srv.URL)
	assert.False(t, n.Enabled())
	require.NoError(t, n.SendVisit(context.Background(), notify.VisitMessage{}))
	assert.Empty(t, *texts)
}

func TestSlackNotifier_EnabledRequiresURL(t *testing.T) {
	n := notify.NewSlackNotifier(true, "")
	assert.False(t, n.Enabled())
	assert.NoError(t, n.SendVisit(context.Background(), notify.VisitMessage{}))
}
