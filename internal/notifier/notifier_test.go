package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleEvent() domain.InteractionEvent {
	return domain.InteractionEvent{
		ID:        12,
		ContentID: ptr(int64(42)),
		Action:    domain.ActionPlay,
		SessionID: ptr("sess-1"),
		IPAddress: ptr("203.0.113.7"),
		UserAgent: ptr("test-agent"),
		CreatedAt: time.Now().UTC(),
	}
}

func TestNotifyDeliversPayload(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 5*time.Second)
	status, err := w.Notify(context.Background(), sampleEvent())

	require.NoError(t, err)
	assert.Equal(t, domain.NotifyDelivered, status)

	assert.Equal(t, "content_interaction", got.Event)
	require.NotNil(t, got.ContentID)
	assert.Equal(t, int64(42), *got.ContentID)
	assert.Equal(t, "play", got.Action)
	require.NotNil(t, got.SessionID)
	assert.Equal(t, "sess-1", *got.SessionID)
	require.NotNil(t, got.Metadata.IPAddress)
	assert.Equal(t, "203.0.113.7", *got.Metadata.IPAddress)
	require.NotNil(t, got.Metadata.UserAgent)
	assert.Equal(t, "test-agent", *got.Metadata.UserAgent)

	// timestamp of the attempt, ISO-8601
	_, perr := time.Parse(time.RFC3339, got.Timestamp)
	assert.NoError(t, perr)
}

func TestNotifyCollectorErrorIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, time.Second)
	status, err := w.Notify(context.Background(), sampleEvent())

	assert.Equal(t, domain.NotifyFailed, status)
	assert.Error(t, err)
}

func TestNotifyUnreachableCollectorIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	w := NewWebhook(srv.URL, time.Second)
	status, err := w.Notify(context.Background(), sampleEvent())

	assert.Equal(t, domain.NotifyFailed, status)
	assert.Error(t, err)
}

func TestNotifyTimeoutIsFailed(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-done
	}))
	defer func() {
		close(done)
		srv.Close()
	}()

	w := NewWebhook(srv.URL, 50*time.Millisecond)
	start := time.Now()
	status, err := w.Notify(context.Background(), sampleEvent())

	assert.Equal(t, domain.NotifyFailed, status)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "attempt must be bounded by the timeout")
}

func TestNotifyUnconfiguredIsSkipped(t *testing.T) {
	w := NewWebhook("", time.Second)
	status, err := w.Notify(context.Background(), sampleEvent())

	assert.Equal(t, domain.NotifySkipped, status)
	assert.NoError(t, err)
}

func TestNotifyNullableFieldsSerializeAsNull(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, time.Second)
	status, err := w.Notify(context.Background(), domain.InteractionEvent{ID: 1, Action: domain.ActionLike})

	require.NoError(t, err)
	assert.Equal(t, domain.NotifyDelivered, status)
	assert.Contains(t, raw, "content_id")
	assert.Nil(t, raw["content_id"])
	assert.Nil(t, raw["session_id"])
}
