package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/valorant-arena/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// Get godoc
// @Summary Матч с состоянием map veto
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} services.MatchDetails
// @Failure 404 {object} map[string]string
// @Router /matches/{matchID} [get]
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err) // Используем общий маппер ошибок
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Schedule godoc
// @Summary Назначить время или начать матч
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body services.ScheduleMatchInput true "Время и/или статус"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Недопустимый переход статуса"
// @Security BearerAuth
// @Router /matches/{matchID} [patch]
func (h *MatchHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.ScheduleMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Schedule(r.Context(), actor, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Veto godoc
// @Summary Ход map veto
// @Tags matches
// @Description Капитан команды, чей ход, банит или пикает карту.
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body services.VetoInput true "ban | pick и карта"
// @Success 200 {object} services.MatchDetails
// @Failure 403 {object} map[string]string "Не капитан"
// @Failure 409 {object} map[string]string "Не ваш ход / вето завершено"
// @Failure 422 {object} map[string]string "Карта недоступна"
// @Security BearerAuth
// @Router /matches/{matchID}/veto [post]
func (h *MatchHandler) Veto(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.VetoInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Veto(r.Context(), actor, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type reportResultRequest struct {
	Score1 *int `json:"score1"`
	Score2 *int `json:"score2"`
}

// ReportResult godoc
// @Summary Внести результат матча
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body reportResultRequest true "Счет"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Матч уже завершен"
// @Failure 422 {object} map[string]string "Некорректный счет"
// @Security BearerAuth
// @Router /matches/{matchID}/result [post]
func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req reportResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.Score1 == nil || req.Score2 == nil {
		badRequestResponse(w, r, errors.New("score1 and score2 are required"))
		return
	}

	match, err := h.matchService.ReportResult(r.Context(), actor, id, *req.Score1, *req.Score2)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
