package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teams(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i + 1
	}
	return ids
}

func byUID(matches []*BracketMatch) map[string]*BracketMatch {
	out := make(map[string]*BracketMatch, len(matches))
	for _, m := range matches {
		out[m.UID] = m
	}
	return out
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(models.BracketSingleElimination)
	require.NoError(t, err)
	assert.Equal(t, models.BracketSingleElimination, g.GetName())

	g, err = NewGenerator(models.BracketRoundRobin)
	require.NoError(t, err)
	assert.Equal(t, models.BracketRoundRobin, g.GetName())

	_, err = NewGenerator("Swiss")
	assert.ErrorIs(t, err, ErrUnknownBracketType)
}

func TestSingleElimination_NotEnoughTeams(t *testing.T) {
	_, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(1)})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}

func TestSingleElimination_TwoTeams(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(2)})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	final := matches[0]
	assert.Equal(t, "R1M1", final.UID)
	assert.Equal(t, 101, *final.Team1ID)
	assert.Equal(t, 102, *final.Team2ID)
	assert.Nil(t, final.NextMatchUID)
}

func TestSingleElimination_PowerOfTwo(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(8)})
	require.NoError(t, err)
	require.Len(t, matches, 7)

	m := byUID(matches)
	// Seed 1 meets seed 8, seed 2 sits in the other half.
	assert.Equal(t, 101, *m["R1M1"].Team1ID)
	assert.Equal(t, 108, *m["R1M1"].Team2ID)
	assert.Equal(t, 102, *m["R1M3"].Team1ID)

	assert.Equal(t, "R2M1", *m["R1M1"].NextMatchUID)
	assert.Equal(t, 1, m["R1M1"].WinnerToSlot)
	assert.Equal(t, "R2M1", *m["R1M2"].NextMatchUID)
	assert.Equal(t, 2, m["R1M2"].WinnerToSlot)
	assert.Equal(t, "R3M1", *m["R2M2"].NextMatchUID)
	assert.Equal(t, 2, m["R2M2"].WinnerToSlot)
	assert.Nil(t, m["R3M1"].NextMatchUID)

	for _, match := range matches {
		if match.Round > 1 {
			assert.Nil(t, match.Team1ID, match.UID)
			assert.Nil(t, match.Team2ID, match.UID)
		}
	}
}

func TestSingleElimination_ByesAdvanceDirectly(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(5)})
	require.NoError(t, err)

	m := byUID(matches)
	// 8 slots, 3 byes: only seeds 4 and 5 play in the first round.
	round1 := 0
	for _, match := range matches {
		if match.Round == 1 {
			round1++
			require.NotNil(t, match.Team1ID)
			require.NotNil(t, match.Team2ID)
		}
	}
	assert.Equal(t, 1, round1)
	assert.Equal(t, 104, *m["R1M2"].Team1ID)
	assert.Equal(t, 105, *m["R1M2"].Team2ID)

	// Seed 1 waits for the winner of 4 v 5; seeds 2 and 3 already meet.
	assert.Equal(t, 101, *m["R2M1"].Team1ID)
	assert.Nil(t, m["R2M1"].Team2ID)
	assert.Equal(t, 102, *m["R2M2"].Team1ID)
	assert.Equal(t, 103, *m["R2M2"].Team2ID)

	assert.Len(t, matches, 4)
	assert.Equal(t, "R3M1", *m["R2M1"].NextMatchUID)
}

func TestSingleElimination_NoByeMeetsBye(t *testing.T) {
	for n := 2; n <= 33; n++ {
		matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(n)})
		require.NoError(t, err)

		seen := map[int]int{}
		finals := 0
		for _, match := range matches {
			if match.Team1ID != nil {
				seen[*match.Team1ID]++
			}
			if match.Team2ID != nil {
				seen[*match.Team2ID]++
			}
			if match.NextMatchUID == nil {
				finals++
			}
		}
		assert.Len(t, seen, n, "every team placed exactly once for n=%d", n)
		for id, count := range seen {
			assert.Equal(t, 1, count, "team %d placed twice for n=%d", id, n)
		}
		assert.Equal(t, 1, finals)
		// A knockout of n teams always needs n-1 played matches.
		assert.Len(t, matches, n-1, "n=%d", n)
	}
}

func TestRoundRobin_EveryPairOncePerLeg(t *testing.T) {
	for _, tc := range []struct {
		teams, legs, rounds int
	}{
		{teams: 4, legs: 1, rounds: 3},
		{teams: 5, legs: 1, rounds: 5},
		{teams: 6, legs: 2, rounds: 10},
		{teams: 3, legs: 2, rounds: 6},
	} {
		matches, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(tc.teams), Legs: tc.legs})
		require.NoError(t, err)

		pairs := map[[2]int]int{}
		maxRound := 0
		perRound := map[int]map[int]bool{}
		for _, m := range matches {
			require.NotNil(t, m.Team1ID)
			require.NotNil(t, m.Team2ID)
			a, b := *m.Team1ID, *m.Team2ID
			if a > b {
				a, b = b, a
			}
			pairs[[2]int{a, b}]++
			if m.Round > maxRound {
				maxRound = m.Round
			}
			if perRound[m.Round] == nil {
				perRound[m.Round] = map[int]bool{}
			}
			assert.False(t, perRound[m.Round][*m.Team1ID], "team plays twice in round %d", m.Round)
			assert.False(t, perRound[m.Round][*m.Team2ID], "team plays twice in round %d", m.Round)
			perRound[m.Round][*m.Team1ID] = true
			perRound[m.Round][*m.Team2ID] = true
			assert.Nil(t, m.NextMatchUID)
		}

		assert.Len(t, pairs, tc.teams*(tc.teams-1)/2)
		for pair, count := range pairs {
			assert.Equal(t, tc.legs, count, "pair %v", pair)
		}
		assert.Equal(t, tc.rounds, maxRound)
	}
}

func TestRoundRobin_SecondLegSwapsSides(t *testing.T) {
	matches, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(2), Legs: 2})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, *matches[0].Team1ID, *matches[1].Team2ID)
	assert.Equal(t, *matches[0].Team2ID, *matches[1].Team1ID)
	assert.Equal(t, "R2M1", matches[1].UID)
}

func TestRoundRobin_InvalidLegs(t *testing.T) {
	_, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Teams: teams(4), Legs: 3})
	assert.Error(t, err)
}
