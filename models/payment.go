package models

import "time"

type PaymentRequestStatus string

const (
	PaymentRequestPending  PaymentRequestStatus = "pending"
	PaymentRequestApproved PaymentRequestStatus = "approved"
	PaymentRequestRejected PaymentRequestStatus = "rejected"
)

type PaymentRequest struct {
	ID             int                  `json:"id"`
	RegistrationID int                  `json:"registration_id"`
	UserID         int                  `json:"user_id"`
	Amount         int                  `json:"amount"`
	TransactionID  string               `json:"transaction_id"`
	Status         PaymentRequestStatus `json:"status"`
	ReviewedBy     *int                 `json:"reviewed_by,omitempty"`
	ReviewNote     *string              `json:"review_note,omitempty"`
	ReviewedAt     *time.Time           `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`

	ScreenshotKey *string `json:"-"`
	ScreenshotURL *string `json:"screenshot_url,omitempty"`
}
