package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/valorant-arena/brackets"
	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
)

type MatchService interface {
	Get(ctx context.Context, id int) (*MatchDetails, error)
	Schedule(ctx context.Context, actor Actor, id int, input ScheduleMatchInput) (*models.Match, error)
	Veto(ctx context.Context, actor Actor, id int, input VetoInput) (*MatchDetails, error)
	ReportResult(ctx context.Context, actor Actor, id int, score1, score2 int) (*models.Match, error)
}

// MatchDetails is a match together with the replayed map veto.
type MatchDetails struct {
	*models.Match
	VetoState brackets.VetoState `json:"veto_state"`
}

type ScheduleMatchInput struct {
	ScheduledAt *time.Time          `json:"scheduled_at"`
	Status      *models.MatchStatus `json:"status"`
}

type VetoInput struct {
	Action models.VetoActionKind `json:"action"`
	Map    string                `json:"map"`
}

type matchService struct {
	tx               repositories.Transactor
	matchRepo        repositories.MatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	userRepo         repositories.UserRepository
	publisher        brackets.Publisher
	notifier         notifier.Notifier
	metrics          metrics.Metrics
	logger           *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	userRepo repositories.UserRepository,
	publisher brackets.Publisher,
	n notifier.Notifier,
	m metrics.Metrics,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:               tx,
		matchRepo:        matchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		userRepo:         userRepo,
		publisher:        publisher,
		notifier:         n,
		metrics:          m,
		logger:           nopLogger(logger),
	}
}

func (s *matchService) Get(ctx context.Context, id int) (*MatchDetails, error) {
	m, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.tournamentRepo.GetByID(ctx, m.TournamentID)
	if err != nil {
		return nil, err
	}
	return newMatchDetails(m, t.MapPool)
}

func newMatchDetails(m *models.Match, pool []string) (*MatchDetails, error) {
	state, err := brackets.EvaluateVeto(m.BestOf, pool, m.Veto)
	if err != nil {
		return nil, fmt.Errorf("failed to replay veto of match %d: %w", m.ID, err)
	}
	return &MatchDetails{Match: m, VetoState: state}, nil
}

func (s *matchService) Schedule(ctx context.Context, actor Actor, id int, input ScheduleMatchInput) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.tournamentRepo.GetByID(ctx, m.TournamentID)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(actor, t) {
		return nil, ErrForbiddenOperation
	}
	if m.Status == models.MatchCompleted {
		return nil, ErrMatchCompleted
	}

	scheduledAt, status := m.ScheduledAt, m.Status
	if input.ScheduledAt != nil {
		if input.ScheduledAt.IsZero() {
			return nil, fmt.Errorf("%w: scheduled_at is empty", ErrValidationFailed)
		}
		scheduledAt = input.ScheduledAt.UTC()
	}
	if input.Status != nil && *input.Status != m.Status {
		if m.Status != models.MatchScheduled || *input.Status != models.MatchOngoing {
			return nil, ErrMatchStatusTransition
		}
		status = *input.Status
	}

	if err := s.matchRepo.UpdateSchedule(ctx, id, scheduledAt, status); err != nil {
		return nil, fmt.Errorf("failed to schedule match %d: %w", id, err)
	}
	m.ScheduledAt, m.Status = scheduledAt, status
	s.publisher.Publish(m.TournamentID, brackets.EventMatchUpdated, m)
	return m, nil
}

func (s *matchService) Veto(ctx context.Context, actor Actor, id int, input VetoInput) (*MatchDetails, error) {
	var details *MatchDetails
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		if !m.HasBothTeams() {
			return ErrMatchNotReady
		}
		if m.Status == models.MatchCompleted {
			return ErrMatchCompleted
		}
		t, err := s.tournamentRepo.GetByID(ctx, m.TournamentID)
		if err != nil {
			return err
		}

		state, err := brackets.EvaluateVeto(m.BestOf, t.MapPool, m.Veto)
		if err != nil {
			return err
		}
		if state.Complete {
			return ErrVetoComplete
		}

		slot, err := s.vetoSlot(ctx, exec, actor, t, m, state.Next.Slot)
		if err != nil {
			return err
		}

		actions, newState, err := brackets.ApplyVeto(m.BestOf, t.MapPool, m.Veto, models.VetoAction{Slot: slot, Action: input.Action, Map: input.Map})
		if err != nil {
			return err
		}
		if err := s.matchRepo.UpdateVeto(ctx, exec, id, actions, newState.Selected); err != nil {
			return fmt.Errorf("failed to save veto of match %d: %w", id, err)
		}
		m.Veto, m.SelectedMaps = actions, newState.Selected
		details = &MatchDetails{Match: m, VetoState: newState}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(details.TournamentID, brackets.EventVetoUpdated, details)
	return details, nil
}

// vetoSlot returns the slot the actor vetoes for. Tournament managers act for whichever
// team is due; captains always act for their own team, so a captain acting out of turn
// gets ErrNotYourTurn from the veto rules.
func (s *matchService) vetoSlot(ctx context.Context, exec repositories.SQLExecutor, actor Actor, t *models.Tournament, m *models.Match, due int) (int, error) {
	if canManageTournament(actor, t) {
		return due, nil
	}
	for _, slot := range []int{1, 2} {
		reg, err := s.registrationRepo.GetByID(ctx, exec, *m.TeamInSlot(slot))
		if err != nil {
			return 0, err
		}
		if reg.CaptainID == actor.UserID {
			return slot, nil
		}
	}
	return 0, ErrCaptainActionForbidden
}

func (s *matchService) ReportResult(ctx context.Context, actor Actor, id int, score1, score2 int) (*models.Match, error) {
	if score1 < 0 || score2 < 0 || score1 == score2 {
		return nil, ErrInvalidScore
	}
	m, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		match      *models.Match
		tournament *models.Tournament
		team1      *models.Registration
		team2      *models.Registration
		final      bool
	)
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// Tournament lock first so concurrent results of the same tournament serialize.
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, m.TournamentID)
		if err != nil {
			return err
		}
		if !canManageTournament(actor, t) {
			return ErrForbiddenOperation
		}
		cur, err := s.matchRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		if !cur.HasBothTeams() {
			return ErrMatchNotReady
		}
		if cur.Status == models.MatchCompleted {
			return ErrMatchCompleted
		}

		winnerID := *cur.Team1RegistrationID
		if score2 > score1 {
			winnerID = *cur.Team2RegistrationID
		}
		if err := s.matchRepo.UpdateResult(ctx, exec, id, score1, score2, winnerID); err != nil {
			return fmt.Errorf("failed to save result of match %d: %w", id, err)
		}
		cur.Score1, cur.Score2, cur.WinnerRegistrationID, cur.Status = score1, score2, &winnerID, models.MatchCompleted

		if team1, err = s.registrationRepo.GetByID(ctx, exec, *cur.Team1RegistrationID); err != nil {
			return err
		}
		if team2, err = s.registrationRepo.GetByID(ctx, exec, *cur.Team2RegistrationID); err != nil {
			return err
		}
		winner := team1
		if winnerID == team2.ID {
			winner = team2
		}

		ledger := statsLedger{}
		ledger.add(team1.UserIDs(), models.StatsDelta{MatchesPlayed: 1})
		ledger.add(team2.UserIDs(), models.StatsDelta{MatchesPlayed: 1})
		ledger.add(winner.UserIDs(), models.StatsDelta{MatchesWon: 1})

		tournamentWinner, err := s.advance(ctx, exec, t, cur)
		if err != nil {
			return err
		}
		if tournamentWinner != nil {
			champion := winner
			if *tournamentWinner != winner.ID {
				if champion, err = s.registrationRepo.GetByID(ctx, exec, *tournamentWinner); err != nil {
					return err
				}
			}
			ledger.add(champion.UserIDs(), models.StatsDelta{TournamentsWon: 1})
			if err := s.tournamentRepo.UpdateWinner(ctx, exec, t.ID, tournamentWinner); err != nil {
				return fmt.Errorf("failed to set tournament winner: %w", err)
			}
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusCompleted); err != nil {
				return fmt.Errorf("failed to complete tournament: %w", err)
			}
			t.WinnerRegistrationID, t.Status = tournamentWinner, models.StatusCompleted
			final = true
		}

		if err := ledger.apply(ctx, exec, s.userRepo); err != nil {
			return err
		}
		match, tournament = cur, t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncMatchResultsRecorded()
	s.logger.InfoContext(ctx, "match result recorded",
		slog.Int("match_id", id), slog.Int("tournament_id", tournament.ID),
		slog.Int("score1", score1), slog.Int("score2", score2), slog.Bool("final", final))

	s.publisher.Publish(tournament.ID, brackets.EventMatchUpdated, match)
	if final {
		s.publisher.Publish(tournament.ID, brackets.EventTournamentCompleted, map[string]interface{}{
			"tournament_id":          tournament.ID,
			"winner_registration_id": *tournament.WinnerRegistrationID,
		})
	}

	winnerName := team1.TeamName
	if *match.WinnerRegistrationID == team2.ID {
		winnerName = team2.TeamName
	}
	announcement := notifier.ResultAnnouncement{
		TournamentName: tournament.Name,
		Team1:          team1.TeamName,
		Team2:          team2.TeamName,
		Score1:         score1,
		Score2:         score2,
		Winner:         winnerName,
		Final:          final,
	}
	if err := s.notifier.AnnounceResult(ctx, announcement); err != nil {
		s.logger.WarnContext(ctx, "failed to announce result", slog.Int("match_id", id), slog.Any("error", err))
	}
	return match, nil
}

// advance moves the winner on. It returns the tournament winner when the result
// decides the tournament.
func (s *matchService) advance(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) (*int, error) {
	switch t.BracketType {
	case models.BracketSingleElimination:
		if m.NextMatchID == nil {
			return m.WinnerRegistrationID, nil
		}
		slot := 1
		if m.WinnerToSlot != nil {
			slot = *m.WinnerToSlot
		}
		if err := s.matchRepo.SetSlot(ctx, exec, *m.NextMatchID, slot, m.WinnerRegistrationID); err != nil {
			return nil, fmt.Errorf("failed to advance winner of match %d: %w", m.ID, err)
		}
		return nil, nil

	case models.BracketRoundRobin:
		matches, err := s.matchRepo.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list matches: %w", err)
		}
		for i := range matches {
			if matches[i].ID == m.ID {
				matches[i] = *m
			}
			if matches[i].Status != models.MatchCompleted {
				return nil, nil
			}
		}
		regs, err := s.registrationRepo.ListByTournament(ctx, exec, t.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list registrations: %w", err)
		}
		var teams []brackets.Team
		for _, reg := range regs {
			if reg.Seed != nil {
				teams = append(teams, brackets.Team{RegistrationID: reg.ID, Name: reg.TeamName, Seed: *reg.Seed})
			}
		}
		standings := brackets.ComputeStandings(teams, matches)
		if len(standings) == 0 {
			return nil, nil
		}
		leader := standings[0].RegistrationID
		return &leader, nil
	}
	return nil, fmt.Errorf("%w: %q", brackets.ErrUnknownBracketType, t.BracketType)
}
