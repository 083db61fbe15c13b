package brackets

import (
	"testing"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completed(t1, t2, s1, s2 int) models.Match {
	winner := t1
	if s2 > s1 {
		winner = t2
	}
	return models.Match{
		Team1RegistrationID:  &t1,
		Team2RegistrationID:  &t2,
		Score1:               s1,
		Score2:               s2,
		WinnerRegistrationID: &winner,
		Status:               models.MatchCompleted,
	}
}

func TestComputeStandings(t *testing.T) {
	teams := []Team{
		{RegistrationID: 1, Name: "Alpha", Seed: 1},
		{RegistrationID: 2, Name: "Bravo", Seed: 2},
		{RegistrationID: 3, Name: "Charlie", Seed: 3},
	}
	a, b := 1, 2
	matches := []models.Match{
		completed(1, 2, 13, 5),
		completed(2, 3, 13, 11),
		completed(3, 1, 13, 3),
		{Team1RegistrationID: &a, Team2RegistrationID: &b, Status: models.MatchScheduled},
	}

	standings := ComputeStandings(teams, matches)
	require.Len(t, standings, 3)

	// One win each. Round difference: Charlie +8, Alpha -2, Bravo -6.
	assert.Equal(t, "Charlie", standings[0].TeamName)
	assert.Equal(t, 8, standings[0].RoundDiff)
	assert.Equal(t, "Alpha", standings[1].TeamName)
	assert.Equal(t, "Bravo", standings[2].TeamName)
	for i, s := range standings {
		assert.Equal(t, 3, s.Points)
		assert.Equal(t, 2, s.Played)
		assert.Equal(t, i+1, s.Rank)
	}
}

func TestComputeStandings_SeedBreaksFullTie(t *testing.T) {
	teams := []Team{
		{RegistrationID: 7, Name: "Late", Seed: 2},
		{RegistrationID: 8, Name: "Early", Seed: 1},
	}
	standings := ComputeStandings(teams, nil)
	assert.Equal(t, "Early", standings[0].TeamName)
	assert.Equal(t, 0, standings[0].Points)
}
