package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentSlugConflict  = errors.New("tournament slug conflict")
	ErrTournamentInUse         = errors.New("tournament is in use (registrations/matches exist)")
	ErrTournamentInvalidOrg    = errors.New("invalid organizer reference")
	ErrTournamentInvalidStatus = errors.New("invalid tournament status")
	ErrTournamentCapacity      = errors.New("max teams must be at least 2")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// GetForUpdate locks the tournament row until exec's transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tournament, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter models.ListTournamentsFilter) ([]models.Tournament, error)
	ListPublic(ctx context.Context) ([]models.Tournament, error)
	ListForAutoStatusUpdate(ctx context.Context, now time.Time) ([]models.Tournament, error)
	ListUnannouncedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateBracketState(ctx context.Context, exec SQLExecutor, id int, generated bool, status models.TournamentStatus) error
	UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID *int) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	UpdateDiscordCategory(ctx context.Context, id int, categoryID *string) error
	MarkAnnounced(ctx context.Context, id int, at time.Time) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, slug, description, organizer_id, bracket_type, round_robin_legs, best_of,
	team_size, max_teams, entry_fee, prize_pool, map_pool, reg_date, start_date, end_date,
	status, bracket_generated, winner_registration_id, discord_category_id, logo_key,
	announced_at, created_at`

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var mapPool []string
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Description, &t.OrganizerID, &t.BracketType, &t.RoundRobinLegs, &t.BestOf,
		&t.TeamSize, &t.MaxTeams, &t.EntryFee, &t.PrizePool, pq.Array(&mapPool), &t.RegDate, &t.StartDate, &t.EndDate,
		&t.Status, &t.BracketGenerated, &t.WinnerRegistrationID, &t.DiscordCategoryID, &t.LogoKey,
		&t.AnnouncedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if mapPool == nil {
		mapPool = []string{}
	}
	t.MapPool = mapPool
	return t, nil
}

func (r *postgresTournamentRepository) queryTournaments(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Tournament, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, slug, description, organizer_id, bracket_type, round_robin_legs, best_of,
			team_size, max_teams, entry_fee, prize_pool, map_pool, reg_date, start_date, end_date, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Slug, t.Description, t.OrganizerID, t.BracketType, t.RoundRobinLegs, t.BestOf,
		t.TeamSize, t.MaxTeams, t.EntryFee, t.PrizePool, pq.Array(t.MapPool), t.RegDate, t.StartDate, t.EndDate, t.Status,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	return r.getOne(ctx, nil, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getOne(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	return r.getOne(ctx, nil, `SELECT `+tournamentColumns+` FROM tournaments WHERE slug = $1`, slug)
}

func (r *postgresTournamentRepository) getOne(ctx context.Context, exec SQLExecutor, query string, arg interface{}) (*models.Tournament, error) {
	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tournaments WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug %q: %w", slug, err)
	}
	return exists, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter models.ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	return r.queryTournaments(ctx, nil, query, args...)
}

// ListPublic returns every tournament that has not been canceled.
func (r *postgresTournamentRepository) ListPublic(ctx context.Context) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status <> $1 ORDER BY start_date DESC`
	return r.queryTournaments(ctx, nil, query, models.StatusCanceled)
}

func (r *postgresTournamentRepository) ListForAutoStatusUpdate(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE (status = $1 AND reg_date <= $4)
		   OR (status = $2 AND start_date <= $4)
		   OR (status = $3 AND end_date <= $4 AND winner_registration_id IS NOT NULL)`

	tournaments, err := r.queryTournaments(ctx, nil, query,
		models.StatusSoon, models.StatusRegistration, models.StatusActive, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) ListUnannouncedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE announced_at IS NULL
		  AND status IN ($1, $2)
		  AND start_date > $3 AND start_date <= $4
		ORDER BY start_date`
	return r.queryTournaments(ctx, nil, query, models.StatusSoon, models.StatusRegistration, from, to)
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			bracket_type = $3,
			round_robin_legs = $4,
			best_of = $5,
			team_size = $6,
			max_teams = $7,
			entry_fee = $8,
			prize_pool = $9,
			map_pool = $10,
			reg_date = $11,
			start_date = $12,
			end_date = $13
		WHERE id = $14`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.BracketType, t.RoundRobinLegs, t.BestOf,
		t.TeamSize, t.MaxTeams, t.EntryFee, t.PrizePool, pq.Array(t.MapPool),
		t.RegDate, t.StartDate, t.EndDate,
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBracketState(ctx context.Context, exec SQLExecutor, id int, generated bool, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET bracket_generated = $1, status = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, generated, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// UpdateWinner sets or clears the winning registration.
func (r *postgresTournamentRepository) UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID *int) error {
	query := `UPDATE tournaments SET winner_registration_id = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, winnerRegistrationID, id)
	if err != nil {
		return fmt.Errorf("failed to update winner for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateDiscordCategory(ctx context.Context, id int, categoryID *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET discord_category_id = $1 WHERE id = $2`, categoryID, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament discord category: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkAnnounced(ctx context.Context, id int, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET announced_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark tournament %d announced: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "tournaments_slug_key" {
				return ErrTournamentSlugConflict
			}
		case pqForeignKeyViolation:
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
			// Rows in registrations or matches still reference the tournament.
			return ErrTournamentInUse
		case pqCheckViolation:
			switch pqErr.Constraint {
			case "chk_tournaments_status":
				return ErrTournamentInvalidStatus
			case "chk_tournaments_capacity":
				return ErrTournamentCapacity
			}
		}
	}
	return err
}
