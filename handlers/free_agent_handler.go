package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/services"
)

type FreeAgentHandler struct {
	freeAgentService services.FreeAgentService
}

func NewFreeAgentHandler(fs services.FreeAgentService) *FreeAgentHandler {
	return &FreeAgentHandler{freeAgentService: fs}
}

// List godoc
// @Summary Активные объявления свободных агентов
// @Tags free-agents
// @Produce json
// @Param role query string false "Duelist | Initiator | Controller | Sentinel | Flex"
// @Param region query string false "Регион"
// @Param rank query string false "Ранг"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Router /free-agents [get]
func (h *FreeAgentHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.FreeAgentFilter{
		Region: query.Get("region"),
		Rank:   query.Get("rank"),
	}
	if role := query.Get("role"); role != "" {
		agentRole := models.AgentRole(role)
		if !agentRole.Valid() {
			badRequestResponse(w, r, errors.New("invalid role query parameter"))
			return
		}
		filter.Role = &agentRole
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 20); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	posts, err := h.freeAgentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"free_agents": posts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Объявление свободного агента
// @Tags free-agents
// @Produce json
// @Param postID path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /free-agents/{postID} [get]
func (h *FreeAgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "postID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	post, err := h.freeAgentService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"free_agent": post}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Разместить объявление
// @Tags free-agents
// @Accept json
// @Produce json
// @Param input body services.FreeAgentInput true "Объявление"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Уже есть активное объявление"
// @Security BearerAuth
// @Router /free-agents [post]
func (h *FreeAgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.FreeAgentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	post, err := h.freeAgentService.Create(r.Context(), actor.UserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"free_agent": post}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update godoc
// @Summary Изменить свое объявление
// @Tags free-agents
// @Accept json
// @Produce json
// @Param postID path int true "Post ID"
// @Param input body services.FreeAgentInput true "Объявление"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /free-agents/{postID} [patch]
func (h *FreeAgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "postID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.FreeAgentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	post, err := h.freeAgentService.Update(r.Context(), actor, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"free_agent": post}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Deactivate godoc
// @Summary Снять объявление
// @Tags free-agents
// @Param postID path int true "Post ID"
// @Success 204
// @Security BearerAuth
// @Router /free-agents/{postID}/deactivate [post]
func (h *FreeAgentHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "postID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.freeAgentService.Deactivate(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete godoc
// @Summary Удалить объявление
// @Tags free-agents
// @Param postID path int true "Post ID"
// @Success 204
// @Security BearerAuth
// @Router /free-agents/{postID} [delete]
func (h *FreeAgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "postID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.freeAgentService.Delete(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshRank godoc
// @Summary Обновить ранг из статистики Riot
// @Tags free-agents
// @Produce json
// @Param postID path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string "Stats API не настроен"
// @Security BearerAuth
// @Router /free-agents/{postID}/refresh-rank [post]
func (h *FreeAgentHandler) RefreshRank(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "postID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	post, err := h.freeAgentService.RefreshRank(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"free_agent": post}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
