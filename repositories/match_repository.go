package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchUIDConflict       = errors.New("bracket uid already used in this tournament")
	ErrMatchTournamentInvalid = errors.New("match tournament invalid")
	ErrMatchTeamInvalid       = errors.New("match team reference invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	LinkNext(ctx context.Context, exec SQLExecutor, id int, nextMatchID int, winnerToSlot int) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error)
	ListUnannouncedScheduledBetween(ctx context.Context, from, to time.Time) ([]models.Match, error)
	UpdateVeto(ctx context.Context, exec SQLExecutor, id int, veto []models.VetoAction, selectedMaps []string) error
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, score1, score2 int, winnerRegistrationID int) error
	UpdateSchedule(ctx context.Context, id int, scheduledAt time.Time, status models.MatchStatus) error
	SetSlot(ctx context.Context, exec SQLExecutor, id int, slot int, registrationID *int) error
	MarkAnnounced(ctx context.Context, id int, at time.Time) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, order_in_round, bracket_uid, team1_registration_id, team2_registration_id,
	score1, score2, winner_registration_id, status, best_of, veto, selected_maps, next_match_id,
	winner_to_slot, scheduled_at, announced_at, created_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var veto []byte
	var selected []string
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.OrderInRound, &m.BracketUID, &m.Team1RegistrationID, &m.Team2RegistrationID,
		&m.Score1, &m.Score2, &m.WinnerRegistrationID, &m.Status, &m.BestOf, &veto, pq.Array(&selected), &m.NextMatchID,
		&m.WinnerToSlot, &m.ScheduledAt, &m.AnnouncedAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(veto) > 0 {
		if err := json.Unmarshal(veto, &m.Veto); err != nil {
			return nil, fmt.Errorf("failed to decode veto of match %d: %w", m.ID, err)
		}
	}
	if m.Veto == nil {
		m.Veto = []models.VetoAction{}
	}
	if selected == nil {
		selected = []string{}
	}
	m.SelectedMaps = selected
	return m, nil
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	if m.Status == "" {
		m.Status = models.MatchScheduled
	}
	veto, err := json.Marshal(nonNilVeto(m.Veto))
	if err != nil {
		return fmt.Errorf("failed to encode veto: %w", err)
	}
	query := `
		INSERT INTO matches (
			tournament_id, round, order_in_round, bracket_uid, team1_registration_id, team2_registration_id,
			status, best_of, veto, selected_maps, scheduled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.OrderInRound, m.BracketUID, m.Team1RegistrationID, m.Team2RegistrationID,
		m.Status, m.BestOf, veto, pq.Array(nonNilStrings(m.SelectedMaps)), m.ScheduledAt,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) LinkNext(ctx context.Context, exec SQLExecutor, id int, nextMatchID int, winnerToSlot int) error {
	query := `UPDATE matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextMatchID, winnerToSlot, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	return r.getOne(ctx, nil, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Match, error) {
	m, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round, order_in_round`
	return r.queryMatches(ctx, exec, query, tournamentID)
}

// ListUnannouncedScheduledBetween returns pending matches with both teams known.
func (r *postgresMatchRepository) ListUnannouncedScheduledBetween(ctx context.Context, from, to time.Time) ([]models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE announced_at IS NULL
		  AND status = $1
		  AND team1_registration_id IS NOT NULL
		  AND team2_registration_id IS NOT NULL
		  AND scheduled_at > $2 AND scheduled_at <= $3
		ORDER BY scheduled_at`
	return r.queryMatches(ctx, nil, query, models.MatchScheduled, from, to)
}

func (r *postgresMatchRepository) UpdateVeto(ctx context.Context, exec SQLExecutor, id int, veto []models.VetoAction, selectedMaps []string) error {
	raw, err := json.Marshal(nonNilVeto(veto))
	if err != nil {
		return fmt.Errorf("failed to encode veto: %w", err)
	}
	query := `UPDATE matches SET veto = $1, selected_maps = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, raw, pq.Array(nonNilStrings(selectedMaps)), id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, score1, score2 int, winnerRegistrationID int) error {
	query := `
		UPDATE matches
		SET score1 = $1, score2 = $2, winner_registration_id = $3, status = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, score1, score2, winnerRegistrationID, models.MatchCompleted, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, id int, scheduledAt time.Time, status models.MatchStatus) error {
	// A moved match is announced again.
	query := `
		UPDATE matches
		SET announced_at = CASE WHEN scheduled_at <> $1 THEN NULL ELSE announced_at END,
		    scheduled_at = $1,
		    status = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, scheduledAt, status, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// SetSlot writes registrationID into team slot 1 or 2.
func (r *postgresMatchRepository) SetSlot(ctx context.Context, exec SQLExecutor, id int, slot int, registrationID *int) error {
	var column string
	switch slot {
	case 1:
		column = "team1_registration_id"
	case 2:
		column = "team2_registration_id"
	default:
		return fmt.Errorf("invalid match slot %d", slot)
	}
	query := `UPDATE matches SET ` + column + ` = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, registrationID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkAnnounced(ctx context.Context, id int, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE matches SET announced_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark match %d announced: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches of tournament %d: %w", tournamentID, err)
	}
	return affectedRows(result)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "matches_tournament_id_bracket_uid_key" {
				return ErrMatchUIDConflict
			}
		case pqForeignKeyViolation:
			switch pqErr.Constraint {
			case "matches_tournament_id_fkey":
				return ErrMatchTournamentInvalid
			case "matches_team1_registration_id_fkey", "matches_team2_registration_id_fkey", "matches_winner_registration_id_fkey":
				return ErrMatchTeamInvalid
			}
		}
	}
	return err
}

func nonNilVeto(v []models.VetoAction) []models.VetoAction {
	if v == nil {
		return []models.VetoAction{}
	}
	return v
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
