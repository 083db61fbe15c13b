package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dosada05/valorant-arena/oauth"
	"github.com/Dosada05/valorant-arena/services"
	"github.com/go-chi/chi/v5"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

type AuthHandler struct {
	authService services.AuthService
	providers   *oauth.Registry
	frontendURL string
}

func NewAuthHandler(authService services.AuthService, providers *oauth.Registry, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		providers:   providers,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Register godoc
// @Summary Регистрация по email и паролю
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.RegisterInput true "Данные пользователя"
// @Success 201 {object} map[string]interface{} "Пользователь создан"
// @Failure 400 {object} map[string]string "Некорректный JSON"
// @Failure 409 {object} map[string]string "Email уже занят"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Login godoc
// @Summary Вход по email и паролю
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.LoginInput true "Учетные данные"
// @Success 200 {object} map[string]interface{} "Токен и пользователь"
// @Failure 401 {object} map[string]string "Неверный email или пароль"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, token, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token, "user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// OAuthStart godoc
// @Summary Начать вход через Discord или Google
// @Tags auth
// @Param provider path string true "discord | google"
// @Success 307 "Редирект на провайдера"
// @Failure 404 {object} map[string]string "Провайдер не настроен"
// @Router /auth/{provider}/login [get]
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	state := oauth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallback godoc
// @Summary Завершение OAuth входа
// @Tags auth
// @Param provider path string true "discord | google"
// @Param state query string true "OAuth state"
// @Param code query string true "Authorization code"
// @Success 302 "Редирект на фронтенд с токеном во fragment"
// @Failure 400 {object} map[string]string "Неверный state"
// @Failure 401 {object} map[string]string "Ошибка обмена кода"
// @Router /auth/{provider}/callback [get]
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	query := r.URL.Query()
	cookie, err := r.Cookie(oauthStateCookie)
	state := query.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		badRequestResponse(w, r, errors.New("invalid oauth state"))
		return
	}

	// state одноразовый
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})

	if providerErr := query.Get("error"); providerErr != "" {
		unauthorizedResponse(w, r, "oauth login was denied: "+providerErr)
		return
	}
	code := query.Get("code")
	if code == "" {
		badRequestResponse(w, r, errors.New("missing authorization code"))
		return
	}

	ident, err := provider.Exchange(r.Context(), code)
	if err != nil {
		slog.WarnContext(r.Context(), "oauth exchange failed",
			slog.String("provider", provider.Name()), slog.Any("error", err))
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	_, token, err := h.authService.OAuthLogin(r.Context(), ident)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	fragment := url.Values{"token": {token}}.Encode()
	http.Redirect(w, r, h.frontendURL+"/auth/callback#"+fragment, http.StatusFound)
}
