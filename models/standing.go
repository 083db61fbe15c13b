package models

type Standing struct {
	RegistrationID int    `json:"registration_id"`
	TeamName       string `json:"team_name"`
	Points         int    `json:"points"`
	Played         int    `json:"played"`
	Wins           int    `json:"wins"`
	Losses         int    `json:"losses"`
	RoundsFor      int    `json:"rounds_for"`
	RoundsAgainst  int    `json:"rounds_against"`
	RoundDiff      int    `json:"round_diff"`
	Rank           int    `json:"rank"`
}
