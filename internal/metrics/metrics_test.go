package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePoll(t *testing.T) {
	m := New()
	m.ObservePoll(nil, 10*time.Millisecond)
	m.ObservePoll(nil, 10*time.Millisecond)
	m.ObservePoll(errors.New("down"), time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("failure")))
}

func TestObserveAction(t *testing.T) {
	m := New()
	m.ObserveAction("power_on", true)
	m.ObserveAction("power_on", false)
	m.ObserveAction("power_on", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("power_on", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("power_on", "failure")))
}

func TestSetServers(t *testing.T) {
	m := New()
	m.SetServers([]models.ServerView{{PowerState: "on"}, {PowerState: "ON"}, {PowerState: "off"}, {PowerState: "UNKNOWN"}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.servers.WithLabelValues("on")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.servers.WithLabelValues("off")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePoll(nil, time.Second)
		m.ObserveAction("add_server", true)
		m.SetServers(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAction("delete_server", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `powerboard_actions_total{action="delete_server",result="success"} 1`)
}
