package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
)

const (
	minTeamNameLength = 2
	maxTeamNameLength = 32
	maxSubstitutes    = 2
)

type RegistrationService interface {
	Register(ctx context.Context, actor Actor, tournamentID int, input RegisterTeamInput) (*models.Registration, error)
	// ListByTournament shows every registration to the tournament's managers and only
	// approved teams to everybody else. viewer is nil for anonymous requests.
	ListByTournament(ctx context.Context, tournamentID int, viewer *Actor) ([]models.Registration, error)
	ListMine(ctx context.Context, userID int) ([]models.Registration, error)
	Approve(ctx context.Context, actor Actor, id int) (*models.Registration, error)
	Reject(ctx context.Context, actor Actor, id int, reason string) (*models.Registration, error)
	Withdraw(ctx context.Context, actor Actor, id int) (*models.Registration, error)
}

type RegisterTeamInput struct {
	TeamName      string                `json:"team_name"`
	Members       []models.RosterMember `json:"members"`
	TransactionID *string               `json:"transaction_id"`
	Amount        *int                  `json:"amount"`
}

type registrationService struct {
	tx               repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	paymentRepo      repositories.PaymentRequestRepository
	userRepo         repositories.UserRepository
	notifier         notifier.Notifier
	metrics          metrics.Metrics
	logger           *slog.Logger
}

func NewRegistrationService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	paymentRepo repositories.PaymentRequestRepository,
	userRepo repositories.UserRepository,
	n notifier.Notifier,
	m metrics.Metrics,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		paymentRepo:      paymentRepo,
		userRepo:         userRepo,
		notifier:         n,
		metrics:          m,
		logger:           nopLogger(logger),
	}
}

// validateRoster checks size and Riot IDs and links the captain to their roster entry.
// Any other account link sent by the client is dropped.
func validateRoster(teamSize int, members []models.RosterMember, captain *models.User) ([]models.RosterMember, error) {
	if len(members) < teamSize || len(members) > teamSize+maxSubstitutes {
		return nil, fmt.Errorf("%w: roster must have between %d and %d players", ErrRosterInvalid, teamSize, teamSize+maxSubstitutes)
	}

	out := make([]models.RosterMember, len(members))
	seen := make(map[string]struct{}, len(members))
	starters := 0
	captainRiotID := strings.ToLower(derefString(captain.RiotID))
	captainListed := false

	for i, m := range members {
		m.RiotID = strings.TrimSpace(m.RiotID)
		if !validRiotID(m.RiotID) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRiotID, m.RiotID)
		}
		key := strings.ToLower(m.RiotID)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s appears twice", ErrRosterInvalid, m.RiotID)
		}
		seen[key] = struct{}{}
		if !m.IsSub {
			starters++
		}
		// Only the captain may be linked by the client, and only without a Riot ID on file.
		if m.UserID != nil && (*m.UserID != captain.ID || captainRiotID != "" || captainListed) {
			m.UserID = nil
		}
		if m.UserID != nil {
			captainListed = true
		}
		if captainRiotID != "" && key == captainRiotID {
			captainListed = true
			if m.UserID == nil {
				id := captain.ID
				m.UserID = &id
			}
		}
		out[i] = m
	}

	if starters != teamSize {
		return nil, fmt.Errorf("%w: exactly %d starters required, got %d", ErrRosterInvalid, teamSize, starters)
	}
	if captain.RiotID == nil && !captainListed {
		return nil, ErrCaptainNotOnRoster
	}
	return out, nil
}

func validateTeamName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minTeamNameLength || n > maxTeamNameLength {
		return "", ErrTeamNameRequired
	}
	return name, nil
}

func (s *registrationService) Register(ctx context.Context, actor Actor, tournamentID int, input RegisterTeamInput) (*models.Registration, error) {
	teamName, err := validateTeamName(input.TeamName)
	if err != nil {
		return nil, err
	}
	captain, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load captain %d: %w", actor.UserID, err)
	}

	var (
		reg        *models.Registration
		tournament *models.Tournament
	)
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		tournament = t
		if t.Status != models.StatusRegistration {
			return ErrRegistrationNotOpen
		}
		if t.BracketGenerated {
			return ErrBracketAlreadyGenerated
		}

		active, err := s.registrationRepo.CountActive(ctx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to count registrations: %w", err)
		}
		if active >= t.MaxTeams {
			return ErrTournamentFull
		}

		members, err := validateRoster(t.TeamSize, input.Members, captain)
		if err != nil {
			return err
		}
		if err := s.linkRosterAccounts(ctx, members); err != nil {
			return err
		}

		reg = &models.Registration{
			TournamentID:  t.ID,
			CaptainID:     captain.ID,
			TeamName:      teamName,
			Members:       members,
			Status:        models.RegistrationPending,
			PaymentStatus: models.PaymentNotRequired,
		}

		var payment *models.PaymentRequest
		if t.RequiresPayment() {
			if payment, err = s.newEntryPayment(ctx, exec, t, captain.ID, input); err != nil {
				return err
			}
			reg.PaymentStatus = models.PaymentPending
		}

		if err := s.registrationRepo.Create(ctx, exec, reg); err != nil {
			return err
		}
		if payment != nil {
			payment.RegistrationID = reg.ID
			if err := s.paymentRepo.Create(ctx, exec, payment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRegistrationsCreated()
	s.logger.InfoContext(ctx, "team registered",
		slog.Int("registration_id", reg.ID), slog.Int("tournament_id", tournamentID),
		slog.Int("captain_id", captain.ID), slog.String("payment_status", string(reg.PaymentStatus)))

	if err := s.notifier.AnnounceRegistration(ctx, tournament, reg); err != nil {
		s.logger.WarnContext(ctx, "failed to announce registration", slog.Int("registration_id", reg.ID), slog.Any("error", err))
	}
	if reg.PaymentStatus == models.PaymentPending {
		msg := fmt.Sprintf("Payment to review: team %q in %q (registration %d)", reg.TeamName, tournament.Name, reg.ID)
		if err := s.notifier.StaffAlert(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "failed to alert staff", slog.Int("registration_id", reg.ID), slog.Any("error", err))
		}
	}
	return reg, nil
}

// linkRosterAccounts attaches the account that owns each unlinked Riot ID.
func (s *registrationService) linkRosterAccounts(ctx context.Context, members []models.RosterMember) error {
	for i := range members {
		if members[i].UserID != nil {
			continue
		}
		u, err := s.userRepo.GetByRiotID(ctx, members[i].RiotID)
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			continue
		case err != nil:
			return fmt.Errorf("failed to resolve roster member %s: %w", members[i].RiotID, err)
		}
		id := u.ID
		members[i].UserID = &id
	}
	return nil
}

func (s *registrationService) newEntryPayment(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, userID int, input RegisterTeamInput) (*models.PaymentRequest, error) {
	txID := strings.TrimSpace(derefString(input.TransactionID))
	if txID == "" {
		return nil, ErrTransactionIDRequired
	}
	amount := t.EntryFee
	if input.Amount != nil {
		amount = *input.Amount
	}
	if amount < t.EntryFee {
		return nil, ErrPaymentAmountTooLow
	}
	used, err := s.paymentRepo.TransactionIDExists(ctx, exec, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to check transaction id: %w", err)
	}
	if used {
		return nil, ErrTransactionIDUsed
	}
	return &models.PaymentRequest{
		UserID:        userID,
		Amount:        amount,
		TransactionID: txID,
		Status:        models.PaymentRequestPending,
	}, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int, viewer *Actor) ([]models.Registration, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	statuses := []models.RegistrationStatus{models.RegistrationApproved}
	if viewer != nil && canManageTournament(*viewer, t) {
		statuses = nil
	}
	regs, err := s.registrationRepo.ListByTournament(ctx, nil, tournamentID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for tournament %d: %w", tournamentID, err)
	}
	return regs, nil
}

func (s *registrationService) ListMine(ctx context.Context, userID int) ([]models.Registration, error) {
	regs, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations of user %d: %w", userID, err)
	}
	return regs, nil
}

func (s *registrationService) Approve(ctx context.Context, actor Actor, id int) (*models.Registration, error) {
	var (
		reg        *models.Registration
		tournament *models.Tournament
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		r, err := s.registrationRepo.GetByID(ctx, exec, id)
		if err != nil {
			return err
		}
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, r.TournamentID)
		if err != nil {
			return err
		}
		if !canManageTournament(actor, t) {
			return ErrForbiddenOperation
		}
		if t.BracketGenerated {
			return ErrBracketAlreadyGenerated
		}
		if r.Status != models.RegistrationPending {
			return ErrRegistrationStatusInvalid
		}
		if !r.PaymentStatus.Settled() {
			return ErrPaymentNotVerified
		}
		approved, err := s.registrationRepo.ListByTournament(ctx, exec, t.ID, []models.RegistrationStatus{models.RegistrationApproved})
		if err != nil {
			return fmt.Errorf("failed to count approved registrations: %w", err)
		}
		if len(approved) >= t.MaxTeams {
			return ErrTournamentFull
		}
		if err := s.registrationRepo.UpdateStatus(ctx, exec, id, models.RegistrationApproved, nil); err != nil {
			return err
		}
		r.Status = models.RegistrationApproved
		r.RejectionReason = nil
		reg, tournament = r, t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration approved", slog.Int("registration_id", id), slog.Int("by", actor.UserID))

	if categoryID := derefString(tournament.DiscordCategoryID); categoryID != "" {
		s.createTeamChannels(ctx, categoryID, reg)
	}
	return reg, nil
}

func (s *registrationService) createTeamChannels(ctx context.Context, categoryID string, reg *models.Registration) {
	channels, err := s.notifier.CreateTeamChannels(ctx, categoryID, reg.TeamName)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to create team channels", slog.Int("registration_id", reg.ID), slog.Any("error", err))
		return
	}
	if channels.TextChannelID == "" && channels.VoiceChannelID == "" {
		return
	}
	text, voice := stringPtr(channels.TextChannelID), stringPtr(channels.VoiceChannelID)
	if err := s.registrationRepo.UpdateChannels(ctx, reg.ID, text, voice); err != nil {
		s.logger.WarnContext(ctx, "failed to store team channels", slog.Int("registration_id", reg.ID), slog.Any("error", err))
		return
	}
	reg.DiscordTextChannelID, reg.DiscordVoiceChannelID = text, voice
}

func (s *registrationService) Reject(ctx context.Context, actor Actor, id int, reason string) (*models.Registration, error) {
	reason = strings.TrimSpace(reason)
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	reg, err := s.closeRegistration(ctx, id, models.RegistrationRejected, reasonPtr, func(t *models.Tournament, _ *models.Registration) error {
		if !canManageTournament(actor, t) {
			return ErrForbiddenOperation
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration rejected", slog.Int("registration_id", id), slog.Int("by", actor.UserID))
	return reg, nil
}

func (s *registrationService) Withdraw(ctx context.Context, actor Actor, id int) (*models.Registration, error) {
	reg, err := s.closeRegistration(ctx, id, models.RegistrationWithdrawn, nil, func(_ *models.Tournament, r *models.Registration) error {
		if r.CaptainID != actor.UserID {
			return ErrCaptainActionForbidden
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration withdrawn", slog.Int("registration_id", id))
	return reg, nil
}

// closeRegistration moves an active registration to rejected or withdrawn under the
// tournament row lock, then drops its Discord channels.
func (s *registrationService) closeRegistration(
	ctx context.Context,
	id int,
	status models.RegistrationStatus,
	reason *string,
	authorize func(t *models.Tournament, r *models.Registration) error,
) (*models.Registration, error) {
	var reg *models.Registration
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		r, err := s.registrationRepo.GetByID(ctx, exec, id)
		if err != nil {
			return err
		}
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, r.TournamentID)
		if err != nil {
			return err
		}
		if err := authorize(t, r); err != nil {
			return err
		}
		if t.BracketGenerated {
			return ErrBracketAlreadyGenerated
		}
		if !r.Status.Active() {
			return ErrRegistrationStatusInvalid
		}
		if err := s.registrationRepo.UpdateStatus(ctx, exec, r.ID, status, reason); err != nil {
			return fmt.Errorf("failed to update registration %d: %w", r.ID, err)
		}
		r.Status = status
		r.RejectionReason = reason
		reg = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(reg.ChannelIDs()) > 0 {
		deleteTeamChannels(ctx, s.notifier, s.logger, reg)
		if err := s.registrationRepo.UpdateChannels(ctx, reg.ID, nil, nil); err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
			s.logger.WarnContext(ctx, "failed to clear team channels", slog.Int("registration_id", reg.ID), slog.Any("error", err))
		}
		reg.DiscordTextChannelID, reg.DiscordVoiceChannelID = nil, nil
	}
	return reg, nil
}
