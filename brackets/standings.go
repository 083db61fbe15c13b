package brackets

import (
	"sort"

	"github.com/Dosada05/valorant-arena/models"
)

const pointsPerWin = 3

// Team is the minimal registration view needed to rank a group.
type Team struct {
	RegistrationID int
	Name           string
	Seed           int
}

// ComputeStandings ranks teams by points, then round difference, then rounds won,
// then seed. Only completed matches count.
func ComputeStandings(teams []Team, matches []models.Match) []models.Standing {
	rows := make(map[int]*models.Standing, len(teams))
	seeds := make(map[int]int, len(teams))
	for _, t := range teams {
		rows[t.RegistrationID] = &models.Standing{RegistrationID: t.RegistrationID, TeamName: t.Name}
		seeds[t.RegistrationID] = t.Seed
	}

	for _, m := range matches {
		if m.Status != models.MatchCompleted || !m.HasBothTeams() || m.WinnerRegistrationID == nil {
			continue
		}
		s1, ok1 := rows[*m.Team1RegistrationID]
		s2, ok2 := rows[*m.Team2RegistrationID]
		if !ok1 || !ok2 {
			continue
		}
		s1.Played++
		s2.Played++
		s1.RoundsFor += m.Score1
		s1.RoundsAgainst += m.Score2
		s2.RoundsFor += m.Score2
		s2.RoundsAgainst += m.Score1
		if *m.WinnerRegistrationID == s1.RegistrationID {
			s1.Wins++
			s1.Points += pointsPerWin
			s2.Losses++
		} else {
			s2.Wins++
			s2.Points += pointsPerWin
			s1.Losses++
		}
	}

	out := make([]models.Standing, 0, len(rows))
	for _, t := range teams {
		s := rows[t.RegistrationID]
		s.RoundDiff = s.RoundsFor - s.RoundsAgainst
		out = append(out, *s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.RoundDiff != b.RoundDiff {
			return a.RoundDiff > b.RoundDiff
		}
		if a.RoundsFor != b.RoundsFor {
			return a.RoundsFor > b.RoundsFor
		}
		return seeds[a.RegistrationID] < seeds[b.RegistrationID]
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
