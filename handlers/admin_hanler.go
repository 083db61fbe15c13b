package handlers

import (
	"net/http"
	"strconv"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/services"
)

type AdminUserHandler struct {
	userService services.UserService
}

func NewAdminUserHandler(s services.UserService) *AdminUserHandler {
	return &AdminUserHandler{userService: s}
}

func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.UserFilter{
		Search: q.Get("search"),
		Page:   toInt(q.Get("page"), 1),
		Limit:  toInt(q.Get("limit"), 20),
	}
	if role := q.Get("role"); role != "" {
		userRole := models.UserRole(role)
		filter.Role = &userRole
	}
	res, err := h.userService.ListUsers(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateRoleRequest struct {
	Role models.UserRole `json:"role"`
}

func (h *AdminUserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req updateRoleRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.UpdateRole(r.Context(), actor, userID, req.Role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func toInt(s string, def int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}
