package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/valorant-arena/models"
)

var (
	ErrPaymentRequestNotFound     = errors.New("payment request not found")
	ErrPaymentTransactionConflict = errors.New("transaction id already used")
	ErrPaymentRegistrationInvalid = errors.New("payment registration invalid")
	ErrPaymentAlreadyReviewed     = errors.New("payment request already reviewed")
	ErrPaymentPendingConflict     = errors.New("registration already has a payment under review")
)

type PaymentRequestRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.PaymentRequest) error
	GetByID(ctx context.Context, id int) (*models.PaymentRequest, error)
	TransactionIDExists(ctx context.Context, exec SQLExecutor, transactionID string) (bool, error)
	HasPending(ctx context.Context, exec SQLExecutor, registrationID int) (bool, error)
	ListPending(ctx context.Context) ([]models.PaymentRequest, error)
	ListByRegistration(ctx context.Context, registrationID int) ([]models.PaymentRequest, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.PaymentRequest, error)
	// Review moves a pending request to status. Requests that are no longer pending yield ErrPaymentAlreadyReviewed.
	Review(ctx context.Context, exec SQLExecutor, id int, status models.PaymentRequestStatus, reviewerID int, note *string, at time.Time) error
	UpdateScreenshotKey(ctx context.Context, id int, key *string) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
}

type postgresPaymentRequestRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRequestRepository(db *sql.DB) PaymentRequestRepository {
	return &postgresPaymentRequestRepository{db: db}
}

func (r *postgresPaymentRequestRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const paymentColumns = `
	p.id, p.registration_id, p.user_id, p.amount, p.transaction_id, p.screenshot_key, p.status,
	p.reviewed_by, p.review_note, p.reviewed_at, p.created_at`

func scanPayment(row rowScanner) (*models.PaymentRequest, error) {
	p := &models.PaymentRequest{}
	err := row.Scan(
		&p.ID, &p.RegistrationID, &p.UserID, &p.Amount, &p.TransactionID, &p.ScreenshotKey, &p.Status,
		&p.ReviewedBy, &p.ReviewNote, &p.ReviewedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresPaymentRequestRepository) queryPayments(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.PaymentRequest, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.PaymentRequest, 0)
	for rows.Next() {
		p, scanErr := scanPayment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		payments = append(payments, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *postgresPaymentRequestRepository) Create(ctx context.Context, exec SQLExecutor, p *models.PaymentRequest) error {
	if p.Status == "" {
		p.Status = models.PaymentRequestPending
	}
	query := `
		INSERT INTO payment_requests (registration_id, user_id, amount, transaction_id, screenshot_key, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		p.RegistrationID, p.UserID, p.Amount, p.TransactionID, p.ScreenshotKey, p.Status,
	).Scan(&p.ID, &p.CreatedAt)

	return r.handlePaymentError(err)
}

func (r *postgresPaymentRequestRepository) GetByID(ctx context.Context, id int) (*models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests p WHERE p.id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentRequestNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPaymentRequestRepository) TransactionIDExists(ctx context.Context, exec SQLExecutor, transactionID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payment_requests WHERE transaction_id = $1)`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, transactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check transaction id: %w", err)
	}
	return exists, nil
}

func (r *postgresPaymentRequestRepository) HasPending(ctx context.Context, exec SQLExecutor, registrationID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payment_requests WHERE registration_id = $1 AND status = $2)`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, registrationID, models.PaymentRequestPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending payments of registration %d: %w", registrationID, err)
	}
	return exists, nil
}

func (r *postgresPaymentRequestRepository) ListPending(ctx context.Context) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests p WHERE p.status = $1 ORDER BY p.created_at`
	return r.queryPayments(ctx, nil, query, models.PaymentRequestPending)
}

func (r *postgresPaymentRequestRepository) ListByRegistration(ctx context.Context, registrationID int) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests p WHERE p.registration_id = $1 ORDER BY p.created_at DESC`
	return r.queryPayments(ctx, nil, query, registrationID)
}

func (r *postgresPaymentRequestRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.PaymentRequest, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_requests p
		JOIN registrations reg ON reg.id = p.registration_id
		WHERE reg.tournament_id = $1
		ORDER BY p.id`
	return r.queryPayments(ctx, exec, query, tournamentID)
}

func (r *postgresPaymentRequestRepository) Review(ctx context.Context, exec SQLExecutor, id int, status models.PaymentRequestStatus, reviewerID int, note *string, at time.Time) error {
	query := `
		UPDATE payment_requests
		SET status = $1, reviewed_by = $2, review_note = $3, reviewed_at = $4
		WHERE id = $5 AND status = $6`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		status, reviewerID, note, at, id, models.PaymentRequestPending,
	)
	if err != nil {
		return r.handlePaymentError(err)
	}
	return checkAffectedRows(result, ErrPaymentAlreadyReviewed)
}

func (r *postgresPaymentRequestRepository) UpdateScreenshotKey(ctx context.Context, id int, key *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE payment_requests SET screenshot_key = $1 WHERE id = $2`, key, id)
	if err != nil {
		return fmt.Errorf("failed to update payment screenshot key: %w", err)
	}
	return checkAffectedRows(result, ErrPaymentRequestNotFound)
}

func (r *postgresPaymentRequestRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	query := `
		DELETE FROM payment_requests
		WHERE registration_id IN (SELECT id FROM registrations WHERE tournament_id = $1)`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete payment requests of tournament %d: %w", tournamentID, err)
	}
	return affectedRows(result)
}

func (r *postgresPaymentRequestRepository) handlePaymentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case "payment_requests_transaction_id_key":
				return ErrPaymentTransactionConflict
			case "payment_requests_pending_registration_key":
				return ErrPaymentPendingConflict
			}
		case pqForeignKeyViolation:
			if pqErr.Constraint == "payment_requests_registration_id_fkey" {
				return ErrPaymentRegistrationInvalid
			}
		}
	}
	return err
}
