package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/Dosada05/valorant-arena/services"
)

const cronSecretHeader = "X-Cron-Secret"

type UpcomingRunner interface {
	Run(ctx context.Context, now time.Time) (*services.AnnounceReport, error)
}

// CronHandler lets an external scheduler trigger the upcoming announcements.
type CronHandler struct {
	announcer UpcomingRunner
	secret    string
	now       func() time.Time
}

func NewCronHandler(announcer UpcomingRunner, secret string) *CronHandler {
	return &CronHandler{announcer: announcer, secret: secret, now: time.Now}
}

// Upcoming godoc
// @Summary Анонсировать ближайшие турниры и матчи
// @Tags internal
// @Produce json
// @Param X-Cron-Secret header string true "Секрет крона"
// @Success 200 {object} services.AnnounceReport
// @Failure 401 {object} map[string]string
// @Router /internal/cron/upcoming [post]
func (h *CronHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	// без секрета маршрут выключен
	if h.secret == "" {
		notFoundResponse(w, r)
		return
	}
	got := r.Header.Get(cronSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		unauthorizedResponse(w, r, "invalid cron secret")
		return
	}

	report, err := h.announcer.Run(r.Context(), h.now().UTC())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
