package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationApproved  RegistrationStatus = "approved"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationWithdrawn RegistrationStatus = "withdrawn"
)

// Active reports whether the registration occupies a slot in the tournament.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationPending || s == RegistrationApproved
}

type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not_required"
	PaymentPending     PaymentStatus = "pending"
	PaymentVerified    PaymentStatus = "verified"
	PaymentRejected    PaymentStatus = "rejected"
)

// Settled reports whether the team may be approved and seeded.
func (s PaymentStatus) Settled() bool {
	return s == PaymentNotRequired || s == PaymentVerified
}

type RosterMember struct {
	RiotID string `json:"riot_id"`
	UserID *int   `json:"user_id,omitempty"`
	IsSub  bool   `json:"is_sub"`
}

// Registration is a team entry into a tournament.
type Registration struct {
	ID                    int                `json:"id"`
	TournamentID          int                `json:"tournament_id"`
	CaptainID             int                `json:"captain_id"`
	TeamName              string             `json:"team_name"`
	Members               []RosterMember     `json:"members"`
	Status                RegistrationStatus `json:"status"`
	PaymentStatus         PaymentStatus      `json:"payment_status"`
	RejectionReason       *string            `json:"rejection_reason,omitempty"`
	Seed                  *int               `json:"seed,omitempty"`
	DiscordTextChannelID  *string            `json:"-"`
	DiscordVoiceChannelID *string            `json:"-"`
	CreatedAt             time.Time          `json:"created_at"`

	Captain *User `json:"captain,omitempty"`
}

// UserIDs returns every distinct account attached to the team, captain included.
func (r *Registration) UserIDs() []int {
	seen := map[int]struct{}{r.CaptainID: {}}
	ids := []int{r.CaptainID}
	for _, m := range r.Members {
		if m.UserID == nil {
			continue
		}
		if _, ok := seen[*m.UserID]; ok {
			continue
		}
		seen[*m.UserID] = struct{}{}
		ids = append(ids, *m.UserID)
	}
	return ids
}

// ChannelIDs returns the Discord channels owned by the registration.
func (r *Registration) ChannelIDs() []string {
	var ids []string
	if r.DiscordTextChannelID != nil && *r.DiscordTextChannelID != "" {
		ids = append(ids, *r.DiscordTextChannelID)
	}
	if r.DiscordVoiceChannelID != nil && *r.DiscordVoiceChannelID != "" {
		ids = append(ids, *r.DiscordVoiceChannelID)
	}
	return ids
}
