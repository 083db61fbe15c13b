package handlers

import (
	"net/http"

	"github.com/Dosada05/valorant-arena/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

// Get godoc
// @Summary Сетка турнира
// @Tags brackets
// @Description Раунды с матчами и названиями команд, для round robin также таблица.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} services.BracketView
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/bracket [get]
func (h *BracketHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.Get(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Generate godoc
// @Summary Сгенерировать сетку
// @Tags brackets
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 201 {object} services.BracketView
// @Failure 409 {object} map[string]string "Сетка уже создана"
// @Failure 422 {object} map[string]string "Недостаточно команд"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/generate [post]
func (h *BracketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	view, err := h.bracketService.Generate(r.Context(), actor, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Reset godoc
// @Summary Сбросить сетку
// @Tags brackets
// @Param tournamentID path int true "Tournament ID"
// @Success 204
// @Failure 409 {object} map[string]string "Сетка не создана"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/reset [post]
func (h *BracketHandler) Reset(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.bracketService.Reset(r.Context(), actor, tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
