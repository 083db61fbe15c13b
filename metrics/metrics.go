package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics decouples callers from the Prometheus implementation.
type Metrics interface {
	IncNotificationSent(channel, kind string)
	IncNotificationFailed(channel, kind string)
	IncStatsProxyRequest(endpoint string, status int)
	IncRegistrationsCreated()
	IncMatchResultsRecorded()
	IncSchedulerRuns()
	SetStartupTime(seconds float64)
}

var _ Metrics = (*Service)(nil)

type Service struct {
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	StatsProxyRequests   *prometheus.CounterVec
	RegistrationsCreated prometheus.Counter
	MatchResultsRecorded prometheus.Counter
	SchedulerRuns        prometheus.Counter
	StartupTimeSeconds   prometheus.Gauge
}

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_notifications_sent_total",
			Help: "Notifications delivered, by channel and kind.",
		}, []string{"channel", "kind"}),
		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_notifications_failed_total",
			Help: "Notifications that failed to send, by channel and kind.",
		}, []string{"channel", "kind"}),
		StatsProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_stats_proxy_requests_total",
			Help: "Requests forwarded to the stats API, by endpoint and upstream status.",
		}, []string{"endpoint", "status"}),
		RegistrationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_registrations_created_total",
			Help: "Team registrations created.",
		}),
		MatchResultsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_match_results_recorded_total",
			Help: "Match results recorded.",
		}),
		SchedulerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_scheduler_runs_total",
			Help: "Scheduler ticks processed.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.NotificationsSent,
		s.NotificationsFailed,
		s.StatsProxyRequests,
		s.RegistrationsCreated,
		s.MatchResultsRecorded,
		s.SchedulerRuns,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncNotificationSent(channel, kind string) {
	s.NotificationsSent.WithLabelValues(channel, kind).Inc()
}

func (s *Service) IncNotificationFailed(channel, kind string) {
	s.NotificationsFailed.WithLabelValues(channel, kind).Inc()
}

func (s *Service) IncStatsProxyRequest(endpoint string, status int) {
	s.StatsProxyRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (s *Service) IncRegistrationsCreated() {
	s.RegistrationsCreated.Inc()
}

func (s *Service) IncMatchResultsRecorded() {
	s.MatchResultsRecorded.Inc()
}

func (s *Service) IncSchedulerRuns() {
	s.SchedulerRuns.Inc()
}

func (s *Service) SetStartupTime(seconds float64) {
	s.StartupTimeSeconds.Set(seconds)
}

// Nop discards everything.
type Nop struct{}

var _ Metrics = Nop{}

func (Nop) IncNotificationSent(string, string)   {}
func (Nop) IncNotificationFailed(string, string) {}
func (Nop) IncStatsProxyRequest(string, int)     {}
func (Nop) IncRegistrationsCreated()             {}
func (Nop) IncMatchResultsRecorded()             {}
func (Nop) IncSchedulerRuns()                    {}
func (Nop) SetStartupTime(float64)               {}
