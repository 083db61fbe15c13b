package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
)

type VetoActionKind string

const (
	VetoBan  VetoActionKind = "ban"
	VetoPick VetoActionKind = "pick"
)

type VetoAction struct {
	Slot   int            `json:"slot"` // 1 or 2
	Action VetoActionKind `json:"action"`
	Map    string         `json:"map"`
}

type Match struct {
	ID                   int          `json:"id"`
	TournamentID         int          `json:"tournament_id"`
	Round                int          `json:"round"`
	OrderInRound         int          `json:"order_in_round"`
	BracketUID           string       `json:"bracket_uid"`
	Team1RegistrationID  *int         `json:"team1_registration_id,omitempty"`
	Team2RegistrationID  *int         `json:"team2_registration_id,omitempty"`
	Score1               int          `json:"score1"`
	Score2               int          `json:"score2"`
	WinnerRegistrationID *int         `json:"winner_registration_id,omitempty"`
	Status               MatchStatus  `json:"status"`
	BestOf               int          `json:"best_of"`
	Veto                 []VetoAction `json:"veto"`
	SelectedMaps         []string     `json:"selected_maps"`
	NextMatchID          *int         `json:"next_match_id,omitempty"`
	WinnerToSlot         *int         `json:"winner_to_slot,omitempty"`
	ScheduledAt          time.Time    `json:"scheduled_at"`
	AnnouncedAt          *time.Time   `json:"-"`
	CreatedAt            time.Time    `json:"created_at"`
}

func (m *Match) HasBothTeams() bool {
	return m.Team1RegistrationID != nil && m.Team2RegistrationID != nil
}

// TeamInSlot returns the registration occupying slot 1 or 2.
func (m *Match) TeamInSlot(slot int) *int {
	switch slot {
	case 1:
		return m.Team1RegistrationID
	case 2:
		return m.Team2RegistrationID
	}
	return nil
}

// LoserRegistrationID is only meaningful for completed matches.
func (m *Match) LoserRegistrationID() *int {
	if m.WinnerRegistrationID == nil || !m.HasBothTeams() {
		return nil
	}
	if *m.WinnerRegistrationID == *m.Team1RegistrationID {
		return m.Team2RegistrationID
	}
	return m.Team1RegistrationID
}
