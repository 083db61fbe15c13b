package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserEmailConflict     = errors.New("user email conflict")
	ErrUserProviderConflict  = errors.New("external account already linked to another user")
	ErrUserRiotIDConflict    = errors.New("riot id already linked to another user")
	ErrUserRoleInvalid       = errors.New("invalid user role")
	ErrUnknownIdentitySource = errors.New("unknown identity provider")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByRiotID matches case-insensitively.
	GetByRiotID(ctx context.Context, riotID string) (*models.User, error)
	GetByProviderID(ctx context.Context, provider, providerID string) (*models.User, error)
	LinkProvider(ctx context.Context, userID int, provider, providerID string) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id int, role models.UserRole) error
	UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error
	UpdateRank(ctx context.Context, id int, rank *string) error
	ApplyStatsDelta(ctx context.Context, exec SQLExecutor, userIDs []int, delta models.StatsDelta) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `
	id, display_name, email, password_hash, discord_id, google_id, riot_id, region, bio,
	avatar_key, role, matches_played, matches_won, tournaments_played, tournaments_won,
	current_rank, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.DiscordID, &u.GoogleID, &u.RiotID,
		&u.Region, &u.Bio, &u.AvatarKey, &u.Role,
		&u.Stats.MatchesPlayed, &u.Stats.MatchesWon, &u.Stats.TournamentsPlayed, &u.Stats.TournamentsWon,
		&u.CurrentRank, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RolePlayer
	}
	query := `
		INSERT INTO users (display_name, email, password_hash, discord_id, google_id, riot_id, region, bio, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.DisplayName,
		nilIfEmpty(user.Email),
		user.PasswordHash,
		nilIfEmpty(user.DiscordID),
		nilIfEmpty(user.GoogleID),
		nilIfEmpty(user.RiotID),
		user.Region,
		user.Bio,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)

	return r.handleUserError(err)
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) GetByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0, len(ids))
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func providerColumn(provider string) (string, error) {
	switch provider {
	case "discord":
		return "discord_id", nil
	case "google":
		return "google_id", nil
	}
	return "", ErrUnknownIdentitySource
}

func (r *postgresUserRepository) GetByRiotID(ctx context.Context, riotID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(riot_id) = lower($1)`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, riotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) GetByProviderID(ctx context.Context, provider, providerID string) (*models.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, providerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) LinkProvider(ctx context.Context, userID int, provider, providerID string) error {
	column, err := providerColumn(provider)
	if err != nil {
		return err
	}
	query := `UPDATE users SET ` + column + ` = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, providerID, userID)
	if err != nil {
		return r.handleUserError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			display_name = $1,
			riot_id = $2,
			region = $3,
			bio = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		user.DisplayName, nilIfEmpty(user.RiotID), user.Region, user.Bio, user.ID,
	)
	if err != nil {
		return r.handleUserError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateRole(ctx context.Context, id int, role models.UserRole) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return r.handleUserError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_key = $1 WHERE id = $2`, avatarKey, id)
	if err != nil {
		return fmt.Errorf("failed to update user avatar key: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateRank(ctx context.Context, id int, rank *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET current_rank = $1 WHERE id = $2`, rank, id)
	if err != nil {
		return fmt.Errorf("failed to update user rank: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

// ApplyStatsDelta adds delta to the counters of every listed user. Counters never go below zero.
func (r *postgresUserRepository) ApplyStatsDelta(ctx context.Context, exec SQLExecutor, userIDs []int, delta models.StatsDelta) error {
	if len(userIDs) == 0 || delta.IsZero() {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		UPDATE users SET
			matches_played = GREATEST(matches_played + $1, 0),
			matches_won = GREATEST(matches_won + $2, 0),
			tournaments_played = GREATEST(tournaments_played + $3, 0),
			tournaments_won = GREATEST(tournaments_won + $4, 0)
		WHERE id = ANY($5)`

	_, err := executor.ExecContext(ctx, query,
		delta.MatchesPlayed, delta.MatchesWon, delta.TournamentsPlayed, delta.TournamentsWon,
		pq.Array(userIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to apply stats delta to %d users: %w", len(userIDs), err)
	}
	return nil
}

func (r *postgresUserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var where strings.Builder
	where.WriteString(" WHERE 1=1")
	args := []interface{}{}
	argID := 1

	if s := strings.TrimSpace(filter.Search); s != "" {
		where.WriteString(fmt.Sprintf(" AND (display_name ILIKE $%d OR email ILIKE $%d OR riot_id ILIKE $%d)", argID, argID, argID))
		args = append(args, "%"+s+"%")
		argID++
	}
	if filter.Role != nil {
		where.WriteString(fmt.Sprintf(" AND role = $%d", argID))
		args = append(args, *filter.Role)
		argID++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + userColumns + ` FROM users` + where.String() +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *postgresUserRepository) handleUserError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrUserEmailConflict
			case "users_discord_id_key", "users_google_id_key":
				return ErrUserProviderConflict
			case "users_riot_id_key":
				return ErrUserRiotIDConflict
			}
		case pqCheckViolation:
			if pqErr.Constraint == "chk_users_role" {
				return ErrUserRoleInvalid
			}
		}
	}
	return err
}
