package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/valorant-arena/models"
)

type DashboardRepository interface {
	GetStats(ctx context.Context) (*models.DashboardStats, error)
}

type postgresDashboardRepository struct {
	db *sql.DB
}

func NewPostgresDashboardRepository(db *sql.DB) DashboardRepository {
	return &postgresDashboardRepository{db: db}
}

func (r *postgresDashboardRepository) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM tournaments),
			(SELECT COUNT(*) FROM tournaments WHERE status = $1),
			(SELECT COUNT(*) FROM registrations WHERE status = $2),
			(SELECT COUNT(*) FROM payment_requests WHERE status = $3),
			(SELECT COUNT(*) FROM free_agent_posts WHERE active)`

	stats := &models.DashboardStats{}
	err := r.db.QueryRowContext(ctx, query,
		models.StatusActive, models.RegistrationPending, models.PaymentRequestPending,
	).Scan(
		&stats.UsersTotal, &stats.TournamentsTotal, &stats.ActiveTournaments,
		&stats.PendingRegistrations, &stats.PendingPayments, &stats.ActiveFreeAgents,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return stats, nil
}
