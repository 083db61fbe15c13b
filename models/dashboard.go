package models

type DashboardStats struct {
	UsersTotal           int `json:"users_total"`
	TournamentsTotal     int `json:"tournaments_total"`
	ActiveTournaments    int `json:"active_tournaments"`
	PendingRegistrations int `json:"pending_registrations"`
	PendingPayments      int `json:"pending_payments"`
	ActiveFreeAgents     int `json:"active_free_agents"`
}
