package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/valorant-arena/brackets"
	"github.com/Dosada05/valorant-arena/middleware"
	"github.com/Dosada05/valorant-arena/oauth"
	"github.com/Dosada05/valorant-arena/services"
	"github.com/Dosada05/valorant-arena/statsapi"
	"github.com/Dosada05/valorant-arena/storage"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

const maxJSONBytes = 1_048_576 // 1MB

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxJSONBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxJSONBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Паника, т.к. это ошибка программиста (передан не указатель)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func unprocessableResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

func serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusServiceUnavailable, message)
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	idStr := chi.URLParam(r, param)
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s in URL: %q", param, idStr)
	}
	return id, nil
}

// actorFromRequest reads the authenticated caller placed in the context by middleware.Authenticate.
func actorFromRequest(r *http.Request) (services.Actor, error) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return services.Actor{}, err
	}
	role, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{UserID: userID, Role: role}, nil
}

// optionalActor is nil for anonymous requests.
func optionalActor(r *http.Request) *services.Actor {
	actor, err := actorFromRequest(r)
	if err != nil {
		return nil
	}
	return &actor
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s query parameter", key)
	}
	return v, nil
}

// readImageField takes a single image from a multipart form. A missing field returns nil, nil.
func readImageField(r *http.Request, field string) (*storage.Image, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid %s upload: %w", field, err)
	}
	defer file.Close()
	return storage.ReadImage(file)
}

// parseMultipart bounds the whole form to the image limit plus room for text fields.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+64<<10)
	if err := r.ParseMultipartForm(storage.MaxImageSize + 64<<10); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return storage.ErrImageTooLarge
		}
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Не найдено
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrRegistrationNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrPaymentRequestNotFound),
		errors.Is(err, services.ErrFreeAgentPostNotFound),
		errors.Is(err, oauth.ErrUnknownProvider):
		notFoundResponse(w, r)
	case errors.Is(err, services.ErrRiotAccountNotFound):
		errorResponse(w, r, http.StatusNotFound, err.Error())

	// Конфликты
	case errors.Is(err, services.ErrUserEmailConflict),
		errors.Is(err, services.ErrUserProviderConflict),
		errors.Is(err, services.ErrRegistrationConflict),
		errors.Is(err, services.ErrTeamNameConflict),
		errors.Is(err, services.ErrTransactionIDUsed),
		errors.Is(err, services.ErrPaymentUnderReview),
		errors.Is(err, services.ErrRiotIDTaken),
		errors.Is(err, services.ErrFreeAgentPostExists),
		errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrCapacityBelowRegistrations),
		errors.Is(err, services.ErrPaymentAlreadyReviewed),
		errors.Is(err, services.ErrBracketAlreadyGenerated),
		errors.Is(err, services.ErrBracketNotGenerated),
		errors.Is(err, services.ErrBracketFieldsFrozen),
		errors.Is(err, services.ErrTournamentFinalized),
		errors.Is(err, services.ErrRegistrationStatusInvalid),
		errors.Is(err, services.ErrRegistrationNotOpen),
		errors.Is(err, services.ErrBracketNotAllowed),
		errors.Is(err, services.ErrMatchCompleted),
		errors.Is(err, services.ErrMatchNotReady),
		errors.Is(err, services.ErrVetoComplete),
		errors.Is(err, services.ErrNotYourTurn),
		errors.Is(err, services.ErrPaymentNotExpected):
		conflictResponse(w, r, err.Error())

	// Невалидные данные / бизнес-правила
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidRiotID),
		errors.Is(err, services.ErrRiotIDRequired),
		errors.Is(err, services.ErrInvalidRegion),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentDatesRequired),
		errors.Is(err, services.ErrTournamentInvalidRegDate),
		errors.Is(err, services.ErrTournamentInvalidDateRange),
		errors.Is(err, services.ErrTournamentInvalidCapacity),
		errors.Is(err, services.ErrTournamentInvalidTeamSize),
		errors.Is(err, services.ErrTournamentInvalidBestOf),
		errors.Is(err, services.ErrTournamentInvalidFee),
		errors.Is(err, services.ErrTournamentInvalidBracketType),
		errors.Is(err, services.ErrTournamentInvalidLegs),
		errors.Is(err, services.ErrMapPoolInvalid),
		errors.Is(err, services.ErrTournamentInvalidStatus),
		errors.Is(err, services.ErrTournamentInvalidStatusTransition),
		errors.Is(err, services.ErrTeamNameRequired),
		errors.Is(err, services.ErrRosterInvalid),
		errors.Is(err, services.ErrCaptainNotOnRoster),
		errors.Is(err, services.ErrTransactionIDRequired),
		errors.Is(err, services.ErrPaymentNotVerified),
		errors.Is(err, services.ErrPaymentAmountTooLow),
		errors.Is(err, services.ErrNotEnoughTeams),
		errors.Is(err, services.ErrInvalidScore),
		errors.Is(err, services.ErrMatchStatusTransition),
		errors.Is(err, services.ErrVetoActionInvalid),
		errors.Is(err, services.ErrMapUnavailable),
		errors.Is(err, brackets.ErrVetoUnsupported),
		errors.Is(err, services.ErrFreeAgentRolesInvalid),
		errors.Is(err, services.ErrDescriptionTooLong),
		errors.Is(err, statsapi.ErrInvalidRegion):
		unprocessableResponse(w, r, err)

	case errors.Is(err, storage.ErrImageTooLarge):
		errorResponse(w, r, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType):
		errorResponse(w, r, http.StatusUnsupportedMediaType, err.Error())

	// Ошибки авторизации/доступа
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAuthenticationFailed),
		errors.Is(err, oauth.ErrExchangeFailed):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrCaptainActionForbidden):
		forbiddenResponse(w, r, err.Error())

	// Внешние зависимости
	case errors.Is(err, services.ErrStatsUnavailable),
		errors.Is(err, statsapi.ErrNotConfigured),
		errors.Is(err, storage.ErrStorageDisabled):
		serviceUnavailableResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
