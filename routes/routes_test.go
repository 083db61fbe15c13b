package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/valorant-arena/handlers"
	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/oauth"
	"github.com/Dosada05/valorant-arena/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret"

// newTestRouter wires handlers without services: only requests rejected before
// reaching a service are safe to send.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics.NewService(reg).IncSchedulerRuns()

	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Auth:         handlers.NewAuthHandler(nil, oauth.NewRegistry(), "http://localhost:3000"),
		User:         handlers.NewUserHandler(nil, nil),
		Admin:        handlers.NewAdminUserHandler(nil),
		Dashboard:    handlers.NewDashboardHandler(nil),
		Tournament:   handlers.NewTournamentHandler(nil),
		Registration: handlers.NewRegistrationHandler(nil),
		Payment:      handlers.NewPaymentHandler(nil),
		Bracket:      handlers.NewBracketHandler(nil),
		Match:        handlers.NewMatchHandler(nil),
		FreeAgent:    handlers.NewFreeAgentHandler(nil),
		Stats:        handlers.NewStatsHandler(nil),
		Cron:         handlers.NewCronHandler(nil, ""),
		SEO:          handlers.NewSEOHandler(nil),
		WebSocket:    handlers.NewWebSocketHandler(nil, nil),
		Metrics:      metrics.NewMetricsHandler(reg),
	}, Options{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"https://arena.gg"},
		StatsRPS:       1,
		StatsBurst:     1,
	})
	return router
}

func bearer(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, err := services.NewTokenIssuer(testSecret, time.Hour).Issue(&models.User{ID: 3, DisplayName: "jett", Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestSetupRoutes_AccessControl(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		role   models.UserRole
		status int
	}{
		{"create tournament anonymous", http.MethodPost, "/tournaments", "", http.StatusUnauthorized},
		{"create tournament player", http.MethodPost, "/tournaments", models.RolePlayer, http.StatusForbidden},
		{"generate bracket player", http.MethodPost, "/tournaments/1/bracket/generate", models.RolePlayer, http.StatusForbidden},
		{"approve registration player", http.MethodPost, "/registrations/1/approve", models.RolePlayer, http.StatusForbidden},
		{"pending payments organizer anonymous", http.MethodGet, "/payments/pending", "", http.StatusUnauthorized},
		{"report result player", http.MethodPost, "/matches/1/result", models.RolePlayer, http.StatusForbidden},
		{"veto anonymous", http.MethodPost, "/matches/1/veto", "", http.StatusUnauthorized},
		{"me anonymous", http.MethodGet, "/users/me", "", http.StatusUnauthorized},
		{"free agent post anonymous", http.MethodPost, "/free-agents", "", http.StatusUnauthorized},
		{"dashboard organizer", http.MethodGet, "/admin/dashboard", models.RoleOrganizer, http.StatusForbidden},
		{"admin users player", http.MethodGet, "/admin/users", models.RolePlayer, http.StatusForbidden},
		{"cron without secret", http.MethodPost, "/internal/cron/upcoming", "", http.StatusNotFound},
		{"unknown oauth provider", http.MethodGet, "/auth/github/login", "", http.StatusNotFound},
		{"bad tournament id", http.MethodGet, "/tournaments/abc", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.role != "" {
				req.Header.Set("Authorization", bearer(t, tc.role))
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSetupRoutes_Infrastructure(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arena_scheduler_runs_total 1")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/tournaments/{tournamentID}/bracket")

	req := httptest.NewRequest(http.MethodOptions, "/tournaments", nil)
	req.Header.Set("Origin", "https://arena.gg")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://arena.gg", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRoutes_StatsRateLimit(t *testing.T) {
	router := newTestRouter(t)

	// регион проверяется после лимитера, поэтому первый запрос доходит до хендлера
	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats/matches/eu/Tenz/0001?size=x", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/stats/matches/eu/Tenz/0001?size=x", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
