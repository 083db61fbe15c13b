package handlers

import (
	"net/http"

	"github.com/Dosada05/valorant-arena/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: rs,
	}
}

// Register godoc
// @Summary Зарегистрировать команду на турнир
// @Tags registrations
// @Description Капитан подает заявку с составом. Для платных турниров обязателен transaction_id.
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param input body services.RegisterTeamInput true "Команда и состав"
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 409 {object} map[string]string "Регистрация закрыта / турнир полон / дубликат"
// @Failure 422 {object} map[string]string "Некорректный состав"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/registrations [post]
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
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

	var input services.RegisterTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.Register(r.Context(), actor, tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByTournament godoc
// @Summary Заявки турнира
// @Tags registrations
// @Description Организаторы видят все заявки, остальные только одобренные.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/registrations [get]
func (h *RegistrationHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	regs, err := h.registrationService.ListByTournament(r.Context(), tournamentID, optionalActor(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Approve godoc
// @Summary Одобрить заявку
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Заявка не в статусе pending или турнир полон"
// @Failure 422 {object} map[string]string "Оплата не подтверждена"
// @Security BearerAuth
// @Router /registrations/{registrationID}/approve [post]
func (h *RegistrationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	reg, err := h.registrationService.Approve(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type rejectRegistrationRequest struct {
	Reason string `json:"reason"`
}

// Reject godoc
// @Summary Отклонить заявку
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Param input body rejectRegistrationRequest false "Причина"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /registrations/{registrationID}/reject [post]
func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req rejectRegistrationRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	reg, err := h.registrationService.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Withdraw godoc
// @Summary Отозвать свою заявку
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Только капитан"
// @Security BearerAuth
// @Router /registrations/{registrationID}/withdraw [post]
func (h *RegistrationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	reg, err := h.registrationService.Withdraw(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
