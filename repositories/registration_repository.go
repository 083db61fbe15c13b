package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("captain already registered for this tournament")
	ErrRegistrationTeamNameConflict  = errors.New("team name already taken in this tournament")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament invalid")
	ErrRegistrationCaptainInvalid    = errors.New("registration captain invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	// ListByTournament returns registrations in creation order. A nil statuses slice matches every status.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]models.Registration, error)
	ListByUser(ctx context.Context, userID int) ([]models.Registration, error)
	CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus, reason *string) error
	UpdatePaymentStatus(ctx context.Context, exec SQLExecutor, id int, status models.PaymentStatus) error
	UpdateChannels(ctx context.Context, id int, textChannelID, voiceChannelID *string) error
	UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error
	ClearSeeds(ctx context.Context, exec SQLExecutor, tournamentID int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `
	id, tournament_id, captain_id, team_name, members, status, payment_status,
	rejection_reason, seed, discord_text_channel_id, discord_voice_channel_id, created_at`

func scanRegistration(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	var members []byte
	err := row.Scan(
		&reg.ID, &reg.TournamentID, &reg.CaptainID, &reg.TeamName, &members, &reg.Status, &reg.PaymentStatus,
		&reg.RejectionReason, &reg.Seed, &reg.DiscordTextChannelID, &reg.DiscordVoiceChannelID, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &reg.Members); err != nil {
			return nil, fmt.Errorf("failed to decode members of registration %d: %w", reg.ID, err)
		}
	}
	if reg.Members == nil {
		reg.Members = []models.RosterMember{}
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) queryRegistrations(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Registration, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		reg, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, *reg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	members, err := json.Marshal(reg.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}
	query := `
		INSERT INTO registrations (tournament_id, captain_id, team_name, members, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		reg.TournamentID, reg.CaptainID, reg.TeamName, members, reg.Status, reg.PaymentStatus,
	).Scan(&reg.ID, &reg.CreatedAt)

	return r.handleRegistrationError(err)
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if statuses != nil {
		raw := make([]string, len(statuses))
		for i, s := range statuses {
			raw[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(raw))
	}
	query += ` ORDER BY created_at, id`
	return r.queryRegistrations(ctx, exec, query, args...)
}

// ListByUser returns registrations the user captains or is rostered in.
func (r *postgresRegistrationRepository) ListByUser(ctx context.Context, userID int) ([]models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE captain_id = $1
		   OR members @> jsonb_build_array(jsonb_build_object('user_id', $1::int))
		ORDER BY created_at DESC`
	return r.queryRegistrations(ctx, nil, query, userID)
}

func (r *postgresRegistrationRepository) CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM registrations WHERE tournament_id = $1 AND status IN ($2, $3)`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		tournamentID, models.RegistrationPending, models.RegistrationApproved,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus, reason *string) error {
	query := `UPDATE registrations SET status = $1, rejection_reason = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, reason, id)
	if err != nil {
		return r.handleRegistrationError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdatePaymentStatus(ctx context.Context, exec SQLExecutor, id int, status models.PaymentStatus) error {
	query := `UPDATE registrations SET payment_status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleRegistrationError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdateChannels(ctx context.Context, id int, textChannelID, voiceChannelID *string) error {
	query := `UPDATE registrations SET discord_text_channel_id = $1, discord_voice_channel_id = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, textChannelID, voiceChannelID, id)
	if err != nil {
		return fmt.Errorf("failed to update channels of registration %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE registrations SET seed = $1 WHERE id = $2`, seed, id)
	if err != nil {
		return fmt.Errorf("failed to update seed of registration %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) ClearSeeds(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE registrations SET seed = NULL WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to clear seeds for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresRegistrationRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM registrations WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, r.handleRegistrationError(err)
	}
	return affectedRows(result)
}

func (r *postgresRegistrationRepository) handleRegistrationError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case "registrations_tournament_id_captain_id_key":
				return ErrRegistrationConflict
			case "registrations_tournament_team_name_key":
				return ErrRegistrationTeamNameConflict
			}
		case pqForeignKeyViolation:
			switch pqErr.Constraint {
			case "registrations_tournament_id_fkey":
				return ErrRegistrationTournamentInvalid
			case "registrations_captain_id_fkey":
				return ErrRegistrationCaptainInvalid
			}
		}
	}
	return err
}
