package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/valorant-arena/statsapi"
	"github.com/go-chi/chi/v5"
)

// StatsProxy is the subset of statsapi.Client the proxy routes forward to.
type StatsProxy interface {
	Account(ctx context.Context, name, tag string) (*statsapi.Response, error)
	MMR(ctx context.Context, region, name, tag string) (*statsapi.Response, error)
	Matches(ctx context.Context, region, name, tag string, size int) (*statsapi.Response, error)
}

type StatsHandler struct {
	client StatsProxy
}

func NewStatsHandler(client StatsProxy) *StatsHandler {
	return &StatsHandler{client: client}
}

// Account godoc
// @Summary Riot аккаунт
// @Tags stats
// @Produce json
// @Param name path string true "Riot name"
// @Param tag path string true "Riot tag"
// @Success 200 {object} map[string]interface{} "Ответ upstream без изменений"
// @Failure 503 {object} map[string]string "Ключ не настроен"
// @Router /api/stats/account/{name}/{tag} [get]
func (h *StatsHandler) Account(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Account(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "tag"))
	h.forward(w, r, resp, err)
}

// MMR godoc
// @Summary Текущий MMR игрока
// @Tags stats
// @Produce json
// @Param region path string true "ap | br | eu | kr | latam | na"
// @Param name path string true "Riot name"
// @Param tag path string true "Riot tag"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Неизвестный регион"
// @Router /api/stats/mmr/{region}/{name}/{tag} [get]
func (h *StatsHandler) MMR(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.MMR(r.Context(), chi.URLParam(r, "region"), chi.URLParam(r, "name"), chi.URLParam(r, "tag"))
	h.forward(w, r, resp, err)
}

// Matches godoc
// @Summary История матчей игрока
// @Tags stats
// @Produce json
// @Param region path string true "ap | br | eu | kr | latam | na"
// @Param name path string true "Riot name"
// @Param tag path string true "Riot tag"
// @Param size query int false "Количество матчей"
// @Success 200 {object} map[string]interface{}
// @Router /api/stats/matches/{region}/{name}/{tag} [get]
func (h *StatsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "size", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	resp, err := h.client.Matches(r.Context(), chi.URLParam(r, "region"), chi.URLParam(r, "name"), chi.URLParam(r, "tag"), size)
	h.forward(w, r, resp, err)
}

func (h *StatsHandler) forward(w http.ResponseWriter, r *http.Request, resp *statsapi.Response, err error) {
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// клиент ушел, отвечать некому
			return
		case errors.Is(err, statsapi.ErrNotConfigured), errors.Is(err, statsapi.ErrInvalidRegion):
			mapServiceErrorToHTTP(w, r, err)
		default:
			slog.WarnContext(r.Context(), "stats proxy request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			errorResponse(w, r, http.StatusBadGateway, "stats api is unavailable")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		slog.DebugContext(r.Context(), "failed to write stats proxy body", slog.Any("error", err))
	}
}
