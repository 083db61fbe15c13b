package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
)

// matchAnnounceWindow is how far ahead scheduled matches are announced.
const matchAnnounceWindow = time.Hour

type AnnounceReport struct {
	Tournaments int `json:"tournaments"`
	Matches     int `json:"matches"`
	Failed      int `json:"failed"`
}

// UpcomingAnnouncer posts tournaments and matches that are about to start.
// Rows whose post fails stay unannounced and are retried on the next run.
type UpcomingAnnouncer struct {
	tournamentRepo   repositories.TournamentRepository
	matchRepo        repositories.MatchRepository
	registrationRepo repositories.RegistrationRepository
	notifier         notifier.Notifier
	window           time.Duration
	logger           *slog.Logger
}

func NewUpcomingAnnouncer(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	registrationRepo repositories.RegistrationRepository,
	n notifier.Notifier,
	window time.Duration,
	logger *slog.Logger,
) *UpcomingAnnouncer {
	return &UpcomingAnnouncer{
		tournamentRepo:   tournamentRepo,
		matchRepo:        matchRepo,
		registrationRepo: registrationRepo,
		notifier:         n,
		window:           window,
		logger:           nopLogger(logger),
	}
}

func (a *UpcomingAnnouncer) Run(ctx context.Context, now time.Time) (*AnnounceReport, error) {
	report := &AnnounceReport{}

	tournaments, err := a.tournamentRepo.ListUnannouncedStartingBetween(ctx, now, now.Add(a.window))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming tournaments: %w", err)
	}
	for i := range tournaments {
		t := &tournaments[i]
		if err := a.notifier.AnnounceTournament(ctx, t); err != nil {
			report.Failed++
			a.logger.WarnContext(ctx, "tournament announcement failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		if err := a.tournamentRepo.MarkAnnounced(ctx, t.ID, now); err != nil {
			return report, fmt.Errorf("failed to mark tournament %d announced: %w", t.ID, err)
		}
		report.Tournaments++
	}

	matches, err := a.matchRepo.ListUnannouncedScheduledBetween(ctx, now, now.Add(matchAnnounceWindow))
	if err != nil {
		return report, fmt.Errorf("failed to list upcoming matches: %w", err)
	}
	names := map[int]string{}
	for i := range matches {
		m := &matches[i]
		announcement, err := a.matchAnnouncement(ctx, m, names)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) || errors.Is(err, repositories.ErrRegistrationNotFound) {
				report.Failed++
				continue
			}
			return report, err
		}
		if err := a.notifier.AnnounceMatch(ctx, announcement); err != nil {
			report.Failed++
			a.logger.WarnContext(ctx, "match announcement failed", slog.Int("match_id", m.ID), slog.Any("error", err))
			continue
		}
		if err := a.matchRepo.MarkAnnounced(ctx, m.ID, now); err != nil {
			return report, fmt.Errorf("failed to mark match %d announced: %w", m.ID, err)
		}
		report.Matches++
	}

	if report.Tournaments+report.Matches+report.Failed > 0 {
		a.logger.InfoContext(ctx, "upcoming announcements sent",
			slog.Int("tournaments", report.Tournaments),
			slog.Int("matches", report.Matches),
			slog.Int("failed", report.Failed))
	}
	return report, nil
}

// matchAnnouncement resolves names for m. tournamentNames caches tournament names across calls.
func (a *UpcomingAnnouncer) matchAnnouncement(ctx context.Context, m *models.Match, tournamentNames map[int]string) (notifier.MatchAnnouncement, error) {
	name, ok := tournamentNames[m.TournamentID]
	if !ok {
		t, err := a.tournamentRepo.GetByID(ctx, m.TournamentID)
		if err != nil {
			return notifier.MatchAnnouncement{}, err
		}
		name = t.Name
		tournamentNames[m.TournamentID] = name
	}
	team1, err := a.registrationRepo.GetByID(ctx, nil, *m.Team1RegistrationID)
	if err != nil {
		return notifier.MatchAnnouncement{}, err
	}
	team2, err := a.registrationRepo.GetByID(ctx, nil, *m.Team2RegistrationID)
	if err != nil {
		return notifier.MatchAnnouncement{}, err
	}
	return notifier.MatchAnnouncement{
		TournamentName: name,
		Round:          m.Round,
		Team1:          team1.TeamName,
		Team2:          team2.TeamName,
		BestOf:         m.BestOf,
		Maps:           m.SelectedMaps,
		ScheduledAt:    m.ScheduledAt,
	}, nil
}
