package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/valorant-arena/services"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(ps services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// Submit godoc
// @Summary Отправить подтверждение оплаты
// @Tags payments
// @Accept multipart/form-data
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Param transaction_id formData string true "ID транзакции"
// @Param amount formData int true "Сумма"
// @Param screenshot formData file false "Скриншот до 2 MB"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Транзакция уже использована или прошлый платеж еще проверяется"
// @Failure 422 {object} map[string]string "Сумма меньше взноса"
// @Security BearerAuth
// @Router /registrations/{registrationID}/payments [post]
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := parseMultipart(w, r); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	amount, err := strconv.Atoi(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		badRequestResponse(w, r, errors.New("amount must be an integer"))
		return
	}
	screenshot, err := readImageField(r, "screenshot")
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	input := services.SubmitPaymentInput{
		TransactionID: r.FormValue("transaction_id"),
		Amount:        amount,
		Screenshot:    screenshot,
	}
	payment, err := h.paymentService.Submit(r.Context(), actor, registrationID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"payment": payment}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByRegistration godoc
// @Summary Платежи по заявке
// @Tags payments
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /registrations/{registrationID}/payments [get]
func (h *PaymentHandler) ListByRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	payments, err := h.paymentService.ListByRegistration(r.Context(), actor, registrationID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"payments": payments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPending godoc
// @Summary Платежи, ожидающие проверки
// @Tags payments
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments/pending [get]
func (h *PaymentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	payments, err := h.paymentService.ListPending(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"payments": payments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type reviewPaymentRequest struct {
	Approve *bool  `json:"approve"`
	Note    string `json:"note"`
}

// Review godoc
// @Summary Подтвердить или отклонить платеж
// @Tags payments
// @Accept json
// @Produce json
// @Param paymentID path int true "Payment ID"
// @Param input body reviewPaymentRequest true "Решение"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Платеж уже проверен"
// @Security BearerAuth
// @Router /payments/{paymentID}/review [post]
func (h *PaymentHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "paymentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req reviewPaymentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.Approve == nil {
		badRequestResponse(w, r, errors.New("approve is required"))
		return
	}

	payment, err := h.paymentService.Review(r.Context(), actor, id, *req.Approve, req.Note)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"payment": payment}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
