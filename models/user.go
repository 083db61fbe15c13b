package models

import "time"

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RolePlayer:
		return true
	}
	return false
}

// IsStaff reports whether the role may manage tournaments.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleOrganizer
}

type User struct {
	ID           int      `json:"id"`
	DisplayName  string   `json:"display_name"`
	Email        *string  `json:"email,omitempty"`
	PasswordHash *string  `json:"-"`
	DiscordID    *string  `json:"discord_id,omitempty"`
	GoogleID     *string  `json:"-"`
	RiotID       *string  `json:"riot_id,omitempty"`
	Region       string   `json:"region"`
	Bio          string   `json:"bio"`
	Role         UserRole `json:"role"`
	CurrentRank  *string  `json:"current_rank,omitempty"`

	Stats UserStats `json:"stats"`

	CreatedAt time.Time `json:"created_at"`

	AvatarKey *string `json:"-"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type UserStats struct {
	MatchesPlayed     int `json:"matches_played"`
	MatchesWon        int `json:"matches_won"`
	TournamentsPlayed int `json:"tournaments_played"`
	TournamentsWon    int `json:"tournaments_won"`
}

// StatsDelta is applied atomically to a set of users.
type StatsDelta struct {
	MatchesPlayed     int
	MatchesWon        int
	TournamentsPlayed int
	TournamentsWon    int
}

func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// Negate returns the delta that reverts d.
func (d StatsDelta) Negate() StatsDelta {
	return StatsDelta{
		MatchesPlayed:     -d.MatchesPlayed,
		MatchesWon:        -d.MatchesWon,
		TournamentsPlayed: -d.TournamentsPlayed,
		TournamentsWon:    -d.TournamentsWon,
	}
}

type UserFilter struct {
	Search string
	Role   *UserRole
	Page   int
	Limit  int
}

type UserListResponse struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}
