package models

import "time"

// TournamentStatus представляет статусы турнира.
type TournamentStatus string

const (
	StatusSoon         TournamentStatus = "soon"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusSoon, StatusRegistration, StatusActive, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

type BracketType string

const (
	BracketSingleElimination BracketType = "SingleElimination"
	BracketRoundRobin        BracketType = "RoundRobin"
)

func (b BracketType) Valid() bool {
	return b == BracketSingleElimination || b == BracketRoundRobin
}

// Tournament представляет турнир.
type Tournament struct {
	ID                   int              `json:"id"`
	Name                 string           `json:"name"`
	Slug                 string           `json:"slug"`
	Description          *string          `json:"description,omitempty"`
	OrganizerID          int              `json:"organizer_id"`
	BracketType          BracketType      `json:"bracket_type"`
	RoundRobinLegs       int              `json:"round_robin_legs"`
	BestOf               int              `json:"best_of"`
	TeamSize             int              `json:"team_size"`
	MaxTeams             int              `json:"max_teams"`
	EntryFee             int              `json:"entry_fee"`
	PrizePool            string           `json:"prize_pool"`
	MapPool              []string         `json:"map_pool"`
	RegDate              time.Time        `json:"reg_date"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              time.Time        `json:"end_date"`
	Status               TournamentStatus `json:"status"`
	BracketGenerated     bool             `json:"bracket_generated"`
	WinnerRegistrationID *int             `json:"winner_registration_id,omitempty"`
	DiscordCategoryID    *string          `json:"-"`
	AnnouncedAt          *time.Time       `json:"-"`
	CreatedAt            time.Time        `json:"created_at"`

	LogoKey *string `json:"-"`
	LogoURL *string `json:"logo_url,omitempty"`

	// Опциональные связанные сущности
	Organizer         *User `json:"organizer,omitempty"`
	RegistrationCount *int  `json:"registration_count,omitempty"`
}

func (t *Tournament) RequiresPayment() bool {
	return t.EntryFee > 0
}

// IsFinal reports whether no further lifecycle changes are allowed.
func (t *Tournament) IsFinal() bool {
	return t.Status == StatusCompleted || t.Status == StatusCanceled
}

type ListTournamentsFilter struct {
	OrganizerID *int
	Status      *TournamentStatus
	Limit       int
	Offset      int
}
