package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/valorant-arena/middleware"
	"github.com/Dosada05/valorant-arena/services"
)

type UserHandler struct {
	userService         services.UserService
	registrationService services.RegistrationService
}

func NewUserHandler(us services.UserService, rs services.RegistrationService) *UserHandler {
	return &UserHandler{
		userService:         us,
		registrationService: rs,
	}
}

// GetProfile godoc
// @Summary Публичный профиль пользователя
// @Tags users
// @Produce json
// @Param userID path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Router /users/{userID} [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.GetProfile(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMe godoc
// @Summary Профиль текущего пользователя
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	user, err := h.userService.GetMe(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMe godoc
// @Summary Обновить свой профиль
// @Tags users
// @Accept json
// @Produce json
// @Param input body services.UpdateProfileInput true "Поля профиля"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Riot аккаунт не найден"
// @Failure 409 {object} map[string]string "Riot ID уже привязан к другому аккаунту"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Security BearerAuth
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.UpdateMe(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadAvatar godoc
// @Summary Загрузить аватар
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Изображение до 2 MB"
// @Success 200 {object} map[string]interface{}
// @Failure 413 {object} map[string]string "Файл слишком большой"
// @Failure 415 {object} map[string]string "Неподдерживаемый тип"
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /users/me/avatar [post]
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := parseMultipart(w, r); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	img, err := readImageField(r, "avatar")
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if img == nil {
		badRequestResponse(w, r, errors.New("avatar file is required"))
		return
	}

	user, err := h.userService.UploadAvatar(r.Context(), userID, img)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyRegistrations godoc
// @Summary Мои регистрации команд
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /users/me/registrations [get]
func (h *UserHandler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	regs, err := h.registrationService.ListMine(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
