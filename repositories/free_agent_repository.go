package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/lib/pq"
)

var (
	ErrFreeAgentPostNotFound = errors.New("free agent post not found")
	ErrFreeAgentPostConflict = errors.New("user already has an active free agent post")
)

type FreeAgentRepository interface {
	Create(ctx context.Context, post *models.FreeAgentPost) error
	GetByID(ctx context.Context, id int) (*models.FreeAgentPost, error)
	List(ctx context.Context, filter models.FreeAgentFilter) ([]models.FreeAgentPost, error)
	Update(ctx context.Context, post *models.FreeAgentPost) error
	UpdateRank(ctx context.Context, id int, rank string) error
	SetActive(ctx context.Context, id int, active bool) error
	Delete(ctx context.Context, id int) error
}

type postgresFreeAgentRepository struct {
	db *sql.DB
}

func NewPostgresFreeAgentRepository(db *sql.DB) FreeAgentRepository {
	return &postgresFreeAgentRepository{db: db}
}

const freeAgentColumns = `
	id, user_id, riot_id, rank, roles, region, description, active, created_at, updated_at`

func scanFreeAgent(row rowScanner) (*models.FreeAgentPost, error) {
	p := &models.FreeAgentPost{}
	var roles []string
	err := row.Scan(
		&p.ID, &p.UserID, &p.RiotID, &p.Rank, pq.Array(&roles), &p.Region, &p.Description, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Roles = make([]models.AgentRole, len(roles))
	for i, role := range roles {
		p.Roles[i] = models.AgentRole(role)
	}
	return p, nil
}

func rolesToStrings(roles []models.AgentRole) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func (r *postgresFreeAgentRepository) Create(ctx context.Context, p *models.FreeAgentPost) error {
	query := `
		INSERT INTO free_agent_posts (user_id, riot_id, rank, roles, region, description, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, active, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.RiotID, p.Rank, pq.Array(rolesToStrings(p.Roles)), p.Region, p.Description,
	).Scan(&p.ID, &p.Active, &p.CreatedAt, &p.UpdatedAt)

	return r.handleFreeAgentError(err)
}

func (r *postgresFreeAgentRepository) GetByID(ctx context.Context, id int) (*models.FreeAgentPost, error) {
	query := `SELECT ` + freeAgentColumns + ` FROM free_agent_posts WHERE id = $1`
	p, err := scanFreeAgent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFreeAgentPostNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns active posts, newest first.
func (r *postgresFreeAgentRepository) List(ctx context.Context, filter models.FreeAgentFilter) ([]models.FreeAgentPost, error) {
	query := `SELECT ` + freeAgentColumns + ` FROM free_agent_posts WHERE active`
	args := []interface{}{}
	argID := 1

	if filter.Role != nil {
		query += fmt.Sprintf(" AND $%d = ANY(roles)", argID)
		args = append(args, string(*filter.Role))
		argID++
	}
	if filter.Region != "" {
		query += fmt.Sprintf(" AND lower(region) = lower($%d)", argID)
		args = append(args, filter.Region)
		argID++
	}
	if filter.Rank != "" {
		query += fmt.Sprintf(" AND rank ILIKE $%d", argID)
		args = append(args, filter.Rank+"%")
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]models.FreeAgentPost, 0)
	for rows.Next() {
		p, scanErr := scanFreeAgent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		posts = append(posts, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postgresFreeAgentRepository) Update(ctx context.Context, p *models.FreeAgentPost) error {
	query := `
		UPDATE free_agent_posts SET
			riot_id = $1,
			rank = $2,
			roles = $3,
			region = $4,
			description = $5,
			updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.RiotID, p.Rank, pq.Array(rolesToStrings(p.Roles)), p.Region, p.Description, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFreeAgentPostNotFound
		}
		return r.handleFreeAgentError(err)
	}
	return nil
}

func (r *postgresFreeAgentRepository) UpdateRank(ctx context.Context, id int, rank string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE free_agent_posts SET rank = $1, updated_at = NOW() WHERE id = $2`, rank, id)
	if err != nil {
		return fmt.Errorf("failed to update free agent rank: %w", err)
	}
	return checkAffectedRows(result, ErrFreeAgentPostNotFound)
}

func (r *postgresFreeAgentRepository) SetActive(ctx context.Context, id int, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE free_agent_posts SET active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return r.handleFreeAgentError(err)
	}
	return checkAffectedRows(result, ErrFreeAgentPostNotFound)
}

func (r *postgresFreeAgentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM free_agent_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFreeAgentPostNotFound)
}

func (r *postgresFreeAgentRepository) handleFreeAgentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok && pqErr.Code == pqUniqueViolation {
		if pqErr.Constraint == "free_agent_posts_active_user_key" {
			return ErrFreeAgentPostConflict
		}
	}
	return err
}
