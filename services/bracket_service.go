package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/Dosada05/valorant-arena/brackets"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	Generate(ctx context.Context, actor Actor, tournamentID int) (*BracketView, error)
	Get(ctx context.Context, tournamentID int) (*BracketView, error)
	Reset(ctx context.Context, actor Actor, tournamentID int) error
}

type TeamView struct {
	RegistrationID int    `json:"registration_id"`
	TeamName       string `json:"team_name"`
	Seed           *int   `json:"seed,omitempty"`
}

type MatchView struct {
	models.Match
	Team1 *TeamView `json:"team1,omitempty"`
	Team2 *TeamView `json:"team2,omitempty"`
}

type RoundView struct {
	Round   int         `json:"round"`
	Matches []MatchView `json:"matches"`
}

type BracketView struct {
	TournamentID         int                `json:"tournament_id"`
	BracketType          models.BracketType `json:"bracket_type"`
	Generated            bool               `json:"generated"`
	WinnerRegistrationID *int               `json:"winner_registration_id,omitempty"`
	Rounds               []RoundView        `json:"rounds"`
	Standings            []models.Standing  `json:"standings,omitempty"`
}

type bracketService struct {
	tx               repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	userRepo         repositories.UserRepository
	publisher        brackets.Publisher
	logger           *slog.Logger
	shuffle          func(n int, swap func(i, j int))
}

func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	publisher brackets.Publisher,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		userRepo:         userRepo,
		publisher:        publisher,
		logger:           nopLogger(logger),
		shuffle:          rand.Shuffle,
	}
}

func (s *bracketService) Generate(ctx context.Context, actor Actor, tournamentID int) (*BracketView, error) {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !canManageTournament(actor, t) {
			return ErrForbiddenOperation
		}
		if t.BracketGenerated {
			return ErrBracketAlreadyGenerated
		}
		if t.Status != models.StatusRegistration && t.Status != models.StatusActive {
			return ErrBracketNotAllowed
		}

		approved, err := s.registrationRepo.ListByTournament(ctx, exec, t.ID, []models.RegistrationStatus{models.RegistrationApproved})
		if err != nil {
			return fmt.Errorf("failed to list approved registrations: %w", err)
		}
		teams := make([]models.Registration, 0, len(approved))
		for _, reg := range approved {
			if reg.PaymentStatus.Settled() {
				teams = append(teams, reg)
			}
		}
		if len(teams) < 2 {
			return ErrNotEnoughTeams
		}

		s.shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
		seeded := make([]int, len(teams))
		for i := range teams {
			seed := i + 1
			teams[i].Seed = &seed
			seeded[i] = teams[i].ID
			if err := s.registrationRepo.UpdateSeed(ctx, exec, teams[i].ID, &seed); err != nil {
				return fmt.Errorf("failed to seed registration %d: %w", teams[i].ID, err)
			}
		}

		generator, err := brackets.NewGenerator(t.BracketType)
		if err != nil {
			return err
		}
		generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{Teams: seeded, Legs: t.RoundRobinLegs})
		if err != nil {
			return fmt.Errorf("failed to generate %s bracket: %w", generator.GetName(), err)
		}

		if err := s.persistMatches(ctx, exec, t, generated); err != nil {
			return err
		}

		ledger := statsLedger{}
		for i := range teams {
			ledger.add(teams[i].UserIDs(), models.StatsDelta{TournamentsPlayed: 1})
		}
		if err := ledger.apply(ctx, exec, s.userRepo); err != nil {
			return err
		}

		if err := s.tournamentRepo.UpdateBracketState(ctx, exec, t.ID, true, models.StatusActive); err != nil {
			return fmt.Errorf("failed to mark bracket generated: %w", err)
		}
		s.logger.InfoContext(ctx, "bracket generated",
			slog.Int("tournament_id", t.ID), slog.String("type", string(t.BracketType)),
			slog.Int("teams", len(teams)), slog.Int("matches", len(generated)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(tournamentID, brackets.EventBracketGenerated, view)
	return view, nil
}

// persistMatches inserts every match, then links winners forward once all IDs are known.
func (s *bracketService) persistMatches(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, generated []*brackets.BracketMatch) error {
	ids := make(map[string]int, len(generated))
	for _, bm := range generated {
		m := &models.Match{
			TournamentID:        t.ID,
			Round:               bm.Round,
			OrderInRound:        bm.OrderInRound,
			BracketUID:          bm.UID,
			Team1RegistrationID: bm.Team1ID,
			Team2RegistrationID: bm.Team2ID,
			Status:              models.MatchScheduled,
			BestOf:              t.BestOf,
			Veto:                []models.VetoAction{},
			SelectedMaps:        []string{},
			ScheduledAt:         t.StartDate,
		}
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return fmt.Errorf("failed to save match %s: %w", bm.UID, err)
		}
		ids[bm.UID] = m.ID
	}

	for _, bm := range generated {
		if bm.NextMatchUID == nil {
			continue
		}
		nextID, ok := ids[*bm.NextMatchUID]
		if !ok {
			return fmt.Errorf("match %s points to unknown match %s", bm.UID, *bm.NextMatchUID)
		}
		if err := s.matchRepo.LinkNext(ctx, exec, ids[bm.UID], nextID, bm.WinnerToSlot); err != nil {
			return fmt.Errorf("failed to link match %s to %s: %w", bm.UID, *bm.NextMatchUID, err)
		}
	}
	return nil
}

func (s *bracketService) Get(ctx context.Context, tournamentID int) (*BracketView, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	var (
		matches []models.Match
		regs    []models.Registration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		regs, err = s.registrationRepo.ListByTournament(gctx, nil, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("failed to load registrations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildBracketView(t, regs, matches), nil
}

func buildBracketView(t *models.Tournament, regs []models.Registration, matches []models.Match) *BracketView {
	teams := make(map[int]*TeamView, len(regs))
	var seeded []brackets.Team
	for i := range regs {
		teams[regs[i].ID] = &TeamView{RegistrationID: regs[i].ID, TeamName: regs[i].TeamName, Seed: regs[i].Seed}
		if regs[i].Seed != nil {
			seeded = append(seeded, brackets.Team{RegistrationID: regs[i].ID, Name: regs[i].TeamName, Seed: *regs[i].Seed})
		}
	}
	team := func(id *int) *TeamView {
		if id == nil {
			return nil
		}
		return teams[*id]
	}

	view := &BracketView{
		TournamentID:         t.ID,
		BracketType:          t.BracketType,
		Generated:            t.BracketGenerated,
		WinnerRegistrationID: t.WinnerRegistrationID,
		Rounds:               []RoundView{},
	}

	byRound := make(map[int][]MatchView)
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], MatchView{Match: m, Team1: team(m.Team1RegistrationID), Team2: team(m.Team2RegistrationID)})
	}
	rounds := make([]int, 0, len(byRound))
	for r := range byRound {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	for _, r := range rounds {
		ms := byRound[r]
		sort.Slice(ms, func(i, j int) bool { return ms[i].OrderInRound < ms[j].OrderInRound })
		view.Rounds = append(view.Rounds, RoundView{Round: r, Matches: ms})
	}

	if t.BracketType == models.BracketRoundRobin && t.BracketGenerated {
		view.Standings = brackets.ComputeStandings(seeded, matches)
	}
	return view
}

func (s *bracketService) Reset(ctx context.Context, actor Actor, tournamentID int) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !canManageTournament(actor, t) {
			return ErrForbiddenOperation
		}
		if !t.BracketGenerated {
			return ErrBracketNotGenerated
		}
		if t.Status == models.StatusCanceled {
			return ErrTournamentFinalized
		}

		matches, err := s.matchRepo.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		regs, err := s.registrationRepo.ListByTournament(ctx, exec, t.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to list registrations: %w", err)
		}

		if err := bracketStatsLedger(regs, matches, t.WinnerRegistrationID).negate().apply(ctx, exec, s.userRepo); err != nil {
			return err
		}
		if _, err := s.matchRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
			return fmt.Errorf("failed to delete matches: %w", err)
		}
		if err := s.registrationRepo.ClearSeeds(ctx, exec, t.ID); err != nil {
			return fmt.Errorf("failed to clear seeds: %w", err)
		}
		if err := s.tournamentRepo.UpdateWinner(ctx, exec, t.ID, nil); err != nil {
			return fmt.Errorf("failed to clear winner: %w", err)
		}

		status := t.Status
		if status == models.StatusCompleted {
			status = models.StatusActive
		}
		if err := s.tournamentRepo.UpdateBracketState(ctx, exec, t.ID, false, status); err != nil {
			return fmt.Errorf("failed to reset bracket state: %w", err)
		}
		s.logger.InfoContext(ctx, "bracket reset", slog.Int("tournament_id", t.ID), slog.Int("matches_deleted", len(matches)), slog.Int("by", actor.UserID))
		return nil
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(tournamentID, brackets.EventBracketReset, map[string]int{"tournament_id": tournamentID})
	return nil
}
