package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
	"github.com/Dosada05/valorant-arena/storage"
)

type PaymentService interface {
	Submit(ctx context.Context, actor Actor, registrationID int, input SubmitPaymentInput) (*models.PaymentRequest, error)
	ListPending(ctx context.Context) ([]models.PaymentRequest, error)
	// ListByRegistration is open to the team captain and the tournament's managers.
	ListByRegistration(ctx context.Context, actor Actor, registrationID int) ([]models.PaymentRequest, error)
	Review(ctx context.Context, actor Actor, id int, approve bool, note string) (*models.PaymentRequest, error)
}

type SubmitPaymentInput struct {
	TransactionID string
	Amount        int
	Screenshot    *storage.Image
}

type paymentService struct {
	tx               repositories.Transactor
	paymentRepo      repositories.PaymentRequestRepository
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	notifier         notifier.Notifier
	uploader         storage.FileUploader
	logger           *slog.Logger
	now              func() time.Time
}

func NewPaymentService(
	tx repositories.Transactor,
	paymentRepo repositories.PaymentRequestRepository,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	n notifier.Notifier,
	uploader storage.FileUploader,
	logger *slog.Logger,
) PaymentService {
	return &paymentService{
		tx:               tx,
		paymentRepo:      paymentRepo,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		notifier:         n,
		uploader:         uploader,
		logger:           nopLogger(logger),
		now:              time.Now,
	}
}

func (s *paymentService) Submit(ctx context.Context, actor Actor, registrationID int, input SubmitPaymentInput) (*models.PaymentRequest, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.CaptainID != actor.UserID {
		return nil, ErrCaptainActionForbidden
	}
	if !reg.Status.Active() {
		return nil, ErrRegistrationStatusInvalid
	}
	if reg.PaymentStatus != models.PaymentPending && reg.PaymentStatus != models.PaymentRejected {
		return nil, ErrPaymentNotExpected
	}
	t, err := s.tournamentRepo.GetByID(ctx, reg.TournamentID)
	if err != nil {
		return nil, err
	}
	txID := strings.TrimSpace(input.TransactionID)
	if txID == "" {
		return nil, ErrTransactionIDRequired
	}
	if input.Amount < t.EntryFee {
		return nil, ErrPaymentAmountTooLow
	}

	p := &models.PaymentRequest{
		RegistrationID: reg.ID,
		UserID:         actor.UserID,
		Amount:         input.Amount,
		TransactionID:  txID,
		Status:         models.PaymentRequestPending,
	}

	if input.Screenshot != nil {
		key := storage.PaymentScreenshotKey(reg.ID, input.Screenshot.Ext)
		if _, err := s.uploader.Upload(ctx, key, input.Screenshot.ContentType, input.Screenshot.Reader()); err != nil {
			return nil, fmt.Errorf("failed to upload payment screenshot: %w", err)
		}
		p.ScreenshotKey = &key
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		used, err := s.paymentRepo.TransactionIDExists(ctx, exec, txID)
		if err != nil {
			return fmt.Errorf("failed to check transaction id: %w", err)
		}
		if used {
			return ErrTransactionIDUsed
		}
		pending, err := s.paymentRepo.HasPending(ctx, exec, reg.ID)
		if err != nil {
			return err
		}
		if pending {
			return ErrPaymentUnderReview
		}
		if err := s.paymentRepo.Create(ctx, exec, p); err != nil {
			return err
		}
		return s.registrationRepo.UpdatePaymentStatus(ctx, exec, reg.ID, models.PaymentPending)
	})
	if err != nil {
		if key := derefString(p.ScreenshotKey); key != "" {
			if delErr := s.uploader.Delete(ctx, key); delErr != nil {
				s.logger.WarnContext(ctx, "failed to remove orphaned screenshot", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment request submitted", slog.Int("payment_id", p.ID), slog.Int("registration_id", reg.ID))
	msg := fmt.Sprintf("Payment to review: team %q in %q, transaction %s, amount %d", reg.TeamName, t.Name, txID, p.Amount)
	if err := s.notifier.StaffAlert(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to alert staff", slog.Int("payment_id", p.ID), slog.Any("error", err))
	}
	populatePaymentScreenshotURLFunc(p, s.uploader)
	return p, nil
}

func (s *paymentService) ListPending(ctx context.Context) ([]models.PaymentRequest, error) {
	payments, err := s.paymentRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	for i := range payments {
		populatePaymentScreenshotURLFunc(&payments[i], s.uploader)
	}
	return payments, nil
}

func (s *paymentService) ListByRegistration(ctx context.Context, actor Actor, registrationID int) ([]models.PaymentRequest, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.CaptainID != actor.UserID {
		t, err := s.tournamentRepo.GetByID(ctx, reg.TournamentID)
		if err != nil {
			return nil, err
		}
		if !canManageTournament(actor, t) {
			return nil, ErrForbiddenOperation
		}
	}
	payments, err := s.paymentRepo.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments of registration %d: %w", registrationID, err)
	}
	for i := range payments {
		populatePaymentScreenshotURLFunc(&payments[i], s.uploader)
	}
	return payments, nil
}

func (s *paymentService) Review(ctx context.Context, actor Actor, id int, approve bool, note string) (*models.PaymentRequest, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentRequestPending {
		return nil, ErrPaymentAlreadyReviewed
	}
	reg, err := s.registrationRepo.GetByID(ctx, nil, p.RegistrationID)
	if err != nil {
		return nil, err
	}
	t, err := s.tournamentRepo.GetByID(ctx, reg.TournamentID)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(actor, t) {
		return nil, ErrForbiddenOperation
	}

	status, regStatus := models.PaymentRequestRejected, models.PaymentRejected
	if approve {
		status, regStatus = models.PaymentRequestApproved, models.PaymentVerified
	}
	note = strings.TrimSpace(note)
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	reviewedAt := s.now().UTC()

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.paymentRepo.Review(ctx, exec, id, status, actor.UserID, notePtr, reviewedAt); err != nil {
			return err
		}
		current, err := s.registrationRepo.GetByID(ctx, exec, reg.ID)
		if err != nil {
			return err
		}
		// A verified entry fee stays verified whatever happens to other requests.
		if current.PaymentStatus == models.PaymentVerified {
			return nil
		}
		return s.registrationRepo.UpdatePaymentStatus(ctx, exec, reg.ID, regStatus)
	})
	if err != nil {
		return nil, err
	}
	p.Status = status
	p.ReviewedBy = &actor.UserID
	p.ReviewNote = notePtr
	p.ReviewedAt = &reviewedAt
	s.logger.InfoContext(ctx, "payment reviewed", slog.Int("payment_id", id), slog.Bool("approved", approve), slog.Int("by", actor.UserID))

	review := notifier.PaymentReview{TournamentName: t.Name, TeamName: reg.TeamName, Approved: approve, Note: note}
	if captain, err := s.userRepo.GetByID(ctx, reg.CaptainID); err == nil {
		review.CaptainDiscordID = derefString(captain.DiscordID)
	}
	if err := s.notifier.PaymentReviewed(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to notify captain about payment review", slog.Int("payment_id", id), slog.Any("error", err))
	}
	populatePaymentScreenshotURLFunc(p, s.uploader)
	return p, nil
}
