package services

import (
	"context"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/repositories"
)

type DashboardService interface {
	GetStats(ctx context.Context) (*models.DashboardStats, error)
}

type dashboardService struct {
	dashboardRepo repositories.DashboardRepository
}

func NewDashboardService(dashboardRepo repositories.DashboardRepository) DashboardService {
	return &dashboardService{dashboardRepo: dashboardRepo}
}

func (s *dashboardService) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	return s.dashboardRepo.GetStats(ctx)
}
