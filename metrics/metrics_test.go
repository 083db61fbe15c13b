package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncNotificationSent("discord", "tournament")
	s.IncNotificationSent("discord", "tournament")
	s.IncNotificationFailed("slack", "staff_alert")
	s.IncStatsProxyRequest("mmr", 200)
	s.IncRegistrationsCreated()
	s.IncMatchResultsRecorded()
	s.SetStartupTime(1.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.NotificationsSent.WithLabelValues("discord", "tournament")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.NotificationsFailed.WithLabelValues("slack", "staff_alert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.StatsProxyRequests.WithLabelValues("mmr", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.RegistrationsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.MatchResultsRecorded))
	assert.Equal(t, 1.5, testutil.ToFloat64(s.StartupTimeSeconds))
}

func TestNewMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)
	s.IncSchedulerRuns()

	srv := httptest.NewServer(NewMetricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "arena_scheduler_runs_total 1")
}
