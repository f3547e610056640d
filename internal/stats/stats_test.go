package stats

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewStats(t *testing.T) {
	s := NewStats()
	assert.NotNil(t, s, "expected Stats to be non-nil")

	s.ConnectionOpened()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
	assert.Contains(t, rr.Body.String(), "dmchat_ws_active_connections 1",
		"expected the active connections gauge to be exposed")
}

func TestStatsCounters(t *testing.T) {
	s := NewStats()

	s.ConnectionOpened()
	s.ConnectionOpened()
	s.ConnectionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(s.activeConnections), "expected one active connection")

	s.EventReceived("send_message")
	s.EventDelivered("new_message")
	s.MessageStored("text")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.eventsReceived.WithLabelValues("send_message")), "expected one received event")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.eventsDelivered.WithLabelValues("new_message")), "expected one delivered event")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.messagesStored.WithLabelValues("text")), "expected one stored message")
}
