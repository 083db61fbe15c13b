package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/valorant-arena/brackets"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
	"github.com/Dosada05/valorant-arena/storage"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTeamSize    = 5
	maxTeamSize        = 10
	maxSlugAttempts    = 50
	defaultListLimit   = 20
	maxListLimit       = 100
	cleanupConcurrency = 4
)

type TournamentService interface {
	Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tournament, error)
	List(ctx context.Context, filter models.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateDetails(ctx context.Context, actor Actor, id int, input UpdateTournamentDetailsInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error)
	UploadLogo(ctx context.Context, actor Actor, id int, img *storage.Image) (*models.Tournament, error)
	AutoUpdateStatuses(ctx context.Context, now time.Time) (int, error)
	Delete(ctx context.Context, actor Actor, id int) (*DeleteReport, error)
}

type CreateTournamentInput struct {
	Name           string             `json:"name"`
	Description    *string            `json:"description"`
	BracketType    models.BracketType `json:"bracket_type"`
	RoundRobinLegs int                `json:"round_robin_legs"`
	BestOf         int                `json:"best_of"`
	TeamSize       int                `json:"team_size"`
	MaxTeams       int                `json:"max_teams"`
	EntryFee       int                `json:"entry_fee"`
	PrizePool      string             `json:"prize_pool"`
	MapPool        []string           `json:"map_pool"`
	RegDate        time.Time          `json:"reg_date"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
}

type UpdateTournamentDetailsInput struct {
	Name           *string             `json:"name"`
	Description    *string             `json:"description"`
	BracketType    *models.BracketType `json:"bracket_type"`
	RoundRobinLegs *int                `json:"round_robin_legs"`
	BestOf         *int                `json:"best_of"`
	TeamSize       *int                `json:"team_size"`
	MaxTeams       *int                `json:"max_teams"`
	EntryFee       *int                `json:"entry_fee"`
	PrizePool      *string             `json:"prize_pool"`
	MapPool        []string            `json:"map_pool"`
	RegDate        *time.Time          `json:"reg_date"`
	StartDate      *time.Time          `json:"start_date"`
	EndDate        *time.Time          `json:"end_date"`
}

// DeleteReport summarises a cascading tournament delete. Warnings list the external
// cleanups that failed; the database rows are gone regardless.
type DeleteReport struct {
	TournamentID         int      `json:"tournament_id"`
	RegistrationsDeleted int64    `json:"registrations_deleted"`
	MatchesDeleted       int64    `json:"matches_deleted"`
	PaymentsDeleted      int64    `json:"payments_deleted"`
	Warnings             []string `json:"warnings"`
}

type tournamentService struct {
	tx               repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	paymentRepo      repositories.PaymentRequestRepository
	notifier         notifier.Notifier
	uploader         storage.FileUploader
	logger           *slog.Logger
	now              func() time.Time
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	paymentRepo repositories.PaymentRequestRepository,
	n notifier.Notifier,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		paymentRepo:      paymentRepo,
		notifier:         n,
		uploader:         uploader,
		logger:           nopLogger(logger),
		now:              time.Now,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbiddenOperation
	}

	t := &models.Tournament{
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		OrganizerID:    actor.UserID,
		BracketType:    input.BracketType,
		RoundRobinLegs: input.RoundRobinLegs,
		BestOf:         input.BestOf,
		TeamSize:       input.TeamSize,
		MaxTeams:       input.MaxTeams,
		EntryFee:       input.EntryFee,
		PrizePool:      strings.TrimSpace(input.PrizePool),
		MapPool:        input.MapPool,
		RegDate:        input.RegDate,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Status:         models.StatusSoon,
	}
	if t.BracketType == "" {
		t.BracketType = models.BracketSingleElimination
	}
	if t.RoundRobinLegs == 0 {
		t.RoundRobinLegs = 1
	}
	if t.BestOf == 0 {
		t.BestOf = 1
	}
	if t.TeamSize == 0 {
		t.TeamSize = defaultTeamSize
	}
	if len(t.MapPool) == 0 {
		t.MapPool = append([]string{}, brackets.DefaultMapPool...)
	}
	if err := validateTournament(t); err != nil {
		return nil, err
	}
	if !t.RegDate.After(s.now()) {
		t.Status = models.StatusRegistration
	}

	if err := s.createWithUniqueSlug(ctx, t); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tournament created", slog.Int("tournament_id", t.ID), slog.String("slug", t.Slug), slog.Int("organizer_id", t.OrganizerID))

	categoryID, err := s.notifier.CreateCategory(ctx, t.Name)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to create discord category", slog.Int("tournament_id", t.ID), slog.Any("error", err))
	} else if categoryID != "" {
		if err := s.tournamentRepo.UpdateDiscordCategory(ctx, t.ID, &categoryID); err != nil {
			s.logger.WarnContext(ctx, "failed to store discord category", slog.Int("tournament_id", t.ID), slog.Any("error", err))
		} else {
			t.DiscordCategoryID = &categoryID
		}
	}
	return t, nil
}

// createWithUniqueSlug tries name-derived slugs with -2, -3... suffixes. The unique
// index settles races between concurrent creates.
func (s *tournamentService) createWithUniqueSlug(ctx context.Context, t *models.Tournament) error {
	base := slugify(t.Name)
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		slug := base
		if attempt > 1 {
			slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		exists, err := s.tournamentRepo.SlugExists(ctx, slug)
		if err != nil {
			return fmt.Errorf("failed to check slug %q: %w", slug, err)
		}
		if exists {
			continue
		}
		t.Slug = slug
		err = s.tournamentRepo.Create(ctx, t)
		if errors.Is(err, repositories.ErrTournamentSlugConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create tournament: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: could not find a free slug for %q", ErrValidationFailed, t.Name)
}

func validateTournament(t *models.Tournament) error {
	if t.Name == "" {
		return ErrTournamentNameRequired
	}
	if err := validateTournamentDates(t.RegDate, t.StartDate, t.EndDate); err != nil {
		return err
	}
	if !t.BracketType.Valid() {
		return ErrTournamentInvalidBracketType
	}
	if t.RoundRobinLegs != 1 && t.RoundRobinLegs != 2 {
		return ErrTournamentInvalidLegs
	}
	if t.MaxTeams < 2 {
		return ErrTournamentInvalidCapacity
	}
	if t.TeamSize < 1 || t.TeamSize > maxTeamSize {
		return ErrTournamentInvalidTeamSize
	}
	if t.BestOf != 1 && t.BestOf != 3 {
		return ErrTournamentInvalidBestOf
	}
	if t.EntryFee < 0 {
		return ErrTournamentInvalidFee
	}
	pool, err := normalizeMapPool(t.MapPool)
	if err != nil {
		return err
	}
	if t.BestOf == 3 && len(pool) < 3 {
		return fmt.Errorf("%w: best of 3 needs at least 3 maps", ErrMapPoolInvalid)
	}
	t.MapPool = pool
	return nil
}

func normalizeMapPool(pool []string) ([]string, error) {
	seen := make(map[string]struct{}, len(pool))
	out := make([]string, 0, len(pool))
	for _, m := range pool {
		name := strings.TrimSpace(m)
		if name == "" {
			return nil, fmt.Errorf("%w: empty map name", ErrMapPoolInvalid)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate map %q", ErrMapPoolInvalid, name)
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: map pool is empty", ErrMapPoolInvalid)
	}
	return out, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.populateDetails(ctx, t)
	return t, nil
}

func (s *tournamentService) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	s.populateDetails(ctx, t)
	return t, nil
}

func (s *tournamentService) populateDetails(ctx context.Context, t *models.Tournament) {
	populateTournamentLogoURLFunc(t, s.uploader)

	organizer, err := s.userRepo.GetByID(ctx, t.OrganizerID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to populate organizer", slog.Int("tournament_id", t.ID), slog.Any("error", err))
	} else {
		publicUserFunc(organizer, s.uploader)
		t.Organizer = organizer
	}

	count, err := s.registrationRepo.CountActive(ctx, nil, t.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count registrations", slog.Int("tournament_id", t.ID), slog.Any("error", err))
	} else {
		t.RegistrationCount = &count
	}
}

func (s *tournamentService) List(ctx context.Context, filter models.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		populateTournamentLogoURLFunc(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) getManaged(ctx context.Context, actor Actor, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(actor, t) {
		return nil, ErrForbiddenOperation
	}
	return t, nil
}

func (s *tournamentService) UpdateDetails(ctx context.Context, actor Actor, id int, input UpdateTournamentDetailsInput) (*models.Tournament, error) {
	t, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if t.IsFinal() {
		return nil, ErrTournamentFinalized
	}

	if t.BracketGenerated && bracketShapeChanged(t, input) {
		return nil, ErrBracketFieldsFrozen
	}

	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		t.Description = input.Description
	}
	if input.BracketType != nil {
		t.BracketType = *input.BracketType
	}
	if input.RoundRobinLegs != nil {
		t.RoundRobinLegs = *input.RoundRobinLegs
	}
	if input.BestOf != nil {
		t.BestOf = *input.BestOf
	}
	if input.TeamSize != nil {
		t.TeamSize = *input.TeamSize
	}
	if input.MaxTeams != nil {
		t.MaxTeams = *input.MaxTeams
	}
	if input.EntryFee != nil {
		t.EntryFee = *input.EntryFee
	}
	if input.PrizePool != nil {
		t.PrizePool = strings.TrimSpace(*input.PrizePool)
	}
	if input.MapPool != nil {
		t.MapPool = input.MapPool
	}
	if input.RegDate != nil {
		t.RegDate = *input.RegDate
	}
	if input.StartDate != nil {
		t.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		t.EndDate = *input.EndDate
	}
	if err := validateTournament(t); err != nil {
		return nil, err
	}

	if input.MaxTeams != nil {
		active, err := s.registrationRepo.CountActive(ctx, nil, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count registrations for tournament %d: %w", id, err)
		}
		if t.MaxTeams < active {
			return nil, fmt.Errorf("%w (%d registered)", ErrCapacityBelowRegistrations, active)
		}
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	s.populateDetails(ctx, t)
	return t, nil
}

func bracketShapeChanged(t *models.Tournament, input UpdateTournamentDetailsInput) bool {
	if input.BracketType != nil && *input.BracketType != t.BracketType {
		return true
	}
	if input.TeamSize != nil && *input.TeamSize != t.TeamSize {
		return true
	}
	if input.BestOf != nil && *input.BestOf != t.BestOf {
		return true
	}
	if input.RoundRobinLegs != nil && *input.RoundRobinLegs != t.RoundRobinLegs {
		return true
	}
	if input.MapPool != nil {
		if len(input.MapPool) != len(t.MapPool) {
			return true
		}
		for i := range input.MapPool {
			if !strings.EqualFold(strings.TrimSpace(input.MapPool[i]), t.MapPool[i]) {
				return true
			}
		}
	}
	return false
}

func (s *tournamentService) UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	t, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !isValidStatusTransition(t.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, status)
	}
	if t.Status == status {
		return t, nil
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, fmt.Errorf("failed to update status of tournament %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "tournament status changed", slog.Int("tournament_id", id), slog.String("from", string(t.Status)), slog.String("to", string(status)))
	t.Status = status
	s.populateDetails(ctx, t)
	return t, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, actor Actor, id int, img *storage.Image) (*models.Tournament, error) {
	t, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key := storage.TournamentLogoKey(id, img.Ext)
	if _, err := s.uploader.Upload(ctx, key, img.ContentType, img.Reader()); err != nil {
		return nil, fmt.Errorf("failed to upload logo for tournament %d: %w", id, err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned logo", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to save logo key for tournament %d: %w", id, err)
	}
	if old := derefString(t.LogoKey); old != "" && old != key {
		if err := s.uploader.Delete(ctx, old); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous logo", slog.Int("tournament_id", id), slog.String("key", old), slog.Any("error", err))
		}
	}
	t.LogoKey = &key
	populateTournamentLogoURLFunc(t, s.uploader)
	return t, nil
}

// nextAutoStatus returns the status dates move t to, or the current one.
func nextAutoStatus(t *models.Tournament, now time.Time) models.TournamentStatus {
	status := t.Status
	for {
		switch {
		case status == models.StatusSoon && !t.RegDate.After(now):
			status = models.StatusRegistration
		case status == models.StatusRegistration && !t.StartDate.After(now):
			status = models.StatusActive
		case status == models.StatusActive && !t.EndDate.After(now) && t.WinnerRegistrationID != nil:
			status = models.StatusCompleted
		default:
			return status
		}
	}
}

func (s *tournamentService) AutoUpdateStatuses(ctx context.Context, now time.Time) (int, error) {
	tournaments, err := s.tournamentRepo.ListForAutoStatusUpdate(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments for status update: %w", err)
	}

	updated := 0
	var errs []error
	for i := range tournaments {
		t := &tournaments[i]
		next := nextAutoStatus(t, now)
		if next == t.Status {
			continue
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, next); err != nil {
			errs = append(errs, fmt.Errorf("tournament %d: %w", t.ID, err))
			continue
		}
		updated++
		s.logger.InfoContext(ctx, "tournament status updated by schedule",
			slog.Int("tournament_id", t.ID), slog.String("from", string(t.Status)), slog.String("to", string(next)))
	}
	return updated, errors.Join(errs...)
}

func (s *tournamentService) Delete(ctx context.Context, actor Actor, id int) (*DeleteReport, error) {
	t, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	report := &DeleteReport{TournamentID: id, Warnings: []string{}}
	var regs []models.Registration
	var payments []models.PaymentRequest

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		locked, err := s.tournamentRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		matches, err := s.matchRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		regs, err = s.registrationRepo.ListByTournament(ctx, exec, id, nil)
		if err != nil {
			return fmt.Errorf("failed to list registrations: %w", err)
		}
		payments, err = s.paymentRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to list payment requests: %w", err)
		}

		if locked.BracketGenerated {
			ledger := bracketStatsLedger(regs, matches, locked.WinnerRegistrationID).negate()
			if err := ledger.apply(ctx, exec, s.userRepo); err != nil {
				return err
			}
		}

		if report.MatchesDeleted, err = s.matchRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return fmt.Errorf("failed to delete matches: %w", err)
		}
		if report.PaymentsDeleted, err = s.paymentRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return fmt.Errorf("failed to delete payment requests: %w", err)
		}
		if err := s.tournamentRepo.UpdateWinner(ctx, exec, id, nil); err != nil {
			return fmt.Errorf("failed to clear winner: %w", err)
		}
		if report.RegistrationsDeleted, err = s.registrationRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return fmt.Errorf("failed to delete registrations: %w", err)
		}
		return s.tournamentRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}

	report.Warnings = append(report.Warnings, s.cleanupExternal(ctx, t, regs, payments)...)
	s.logger.InfoContext(ctx, "tournament deleted",
		slog.Int("tournament_id", id),
		slog.Int64("registrations", report.RegistrationsDeleted),
		slog.Int64("matches", report.MatchesDeleted),
		slog.Int64("payments", report.PaymentsDeleted),
		slog.Int("warnings", len(report.Warnings)))
	return report, nil
}

// cleanupExternal removes Discord channels and stored files of a deleted tournament.
func (s *tournamentService) cleanupExternal(ctx context.Context, t *models.Tournament, regs []models.Registration, payments []models.PaymentRequest) []string {
	var (
		mu       sync.Mutex
		warnings []string
	)
	warn := func(w ...string) {
		mu.Lock()
		warnings = append(warnings, w...)
		mu.Unlock()
	}
	deleteObject := func(key string) {
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete stored object", slog.Int("tournament_id", t.ID), slog.String("key", key), slog.Any("error", err))
			warn(fmt.Sprintf("storage object %s: %v", key, err))
		}
	}

	var g errgroup.Group
	g.SetLimit(cleanupConcurrency)
	for i := range regs {
		reg := &regs[i]
		if len(reg.ChannelIDs()) == 0 {
			continue
		}
		g.Go(func() error {
			warn(deleteTeamChannels(ctx, s.notifier, s.logger, reg)...)
			return nil
		})
	}
	if key := derefString(t.LogoKey); key != "" {
		g.Go(func() error {
			deleteObject(key)
			return nil
		})
	}
	for i := range payments {
		if key := derefString(payments[i].ScreenshotKey); key != "" {
			g.Go(func() error {
				deleteObject(key)
				return nil
			})
		}
	}
	_ = g.Wait()

	// The category goes last, once its channels are gone.
	if categoryID := derefString(t.DiscordCategoryID); categoryID != "" {
		if err := s.notifier.DeleteChannel(ctx, categoryID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete discord category", slog.Int("tournament_id", t.ID), slog.Any("error", err))
			warnings = append(warnings, fmt.Sprintf("category %s: %v", categoryID, err))
		}
	}
	return warnings
}
