package services

import (
	"context"
	"testing"

	"github.com/Dosada05/valorant-arena/brackets"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketService_GenerateSingleElimination(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Owner", models.RoleOrganizer)
	tour := env.addTournament(t, owner.ID, nil)
	ctx := context.Background()

	var captains []*models.User
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		_, c := env.addTeam(t, tour.ID, name)
		captains = append(captains, c)
	}
	// Not approved and unpaid teams stay out of the bracket.
	pending, _ := env.addTeam(t, tour.ID, "Pending")
	require.NoError(t, env.regs.UpdateStatus(ctx, nil, pending.ID, models.RegistrationPending, nil))
	unpaid, _ := env.addTeam(t, tour.ID, "Unpaid")
	require.NoError(t, env.regs.UpdatePaymentStatus(ctx, nil, unpaid.ID, models.PaymentPending))

	view, err := env.bracketSvc.Generate(ctx, staff(owner), tour.ID)
	require.NoError(t, err)

	assert.True(t, view.Generated)
	require.Len(t, view.Rounds, 2)
	// Three teams: seed 1 has a bye, so only two matches exist.
	require.Len(t, view.Rounds[0].Matches, 1)
	require.Len(t, view.Rounds[1].Matches, 1)
	semi := view.Rounds[0].Matches[0]
	final := view.Rounds[1].Matches[0]
	assert.Equal(t, "Bravo", semi.Team1.TeamName)
	assert.Equal(t, "Charlie", semi.Team2.TeamName)
	require.NotNil(t, semi.NextMatchID)
	assert.Equal(t, final.ID, *semi.NextMatchID)
	require.NotNil(t, final.Team1, "the bye is placed in the final directly")
	assert.Equal(t, "Alpha", final.Team1.TeamName)
	assert.Equal(t, 1, final.BestOf)

	stored := env.tournament(t, tour.ID)
	assert.True(t, stored.BracketGenerated)
	assert.Equal(t, models.StatusActive, stored.Status)
	for _, c := range captains {
		assert.Equal(t, 1, env.user(t, c.ID).Stats.TournamentsPlayed)
	}
	assert.Nil(t, env.registration(t, pending.ID).Seed)
	assert.Nil(t, env.registration(t, unpaid.ID).Seed)
	assert.Equal(t, []string{brackets.EventBracketGenerated}, env.publisher.types())

	_, err = env.bracketSvc.Generate(ctx, staff(owner), tour.ID)
	assert.ErrorIs(t, err, ErrBracketAlreadyGenerated)
}

func TestBracketService_GenerateGuards(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Owner", models.RoleOrganizer)
	other := env.addUser(t, "Other", models.RoleOrganizer)
	ctx := context.Background()

	tour := env.addTournament(t, owner.ID, nil)
	env.addTeam(t, tour.ID, "Alpha")

	_, err := env.bracketSvc.Generate(ctx, staff(other), tour.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = env.bracketSvc.Generate(ctx, staff(owner), tour.ID)
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	soon := env.addTournament(t, owner.ID, func(t *models.Tournament) { t.Slug, t.Status = "soon", models.StatusSoon })
	_, err = env.bracketSvc.Generate(ctx, staff(owner), soon.ID)
	assert.ErrorIs(t, err, ErrBracketNotAllowed)
}

func TestBracketService_GenerateRoundRobin(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Owner", models.RoleOrganizer)
	tour := env.addTournament(t, owner.ID, func(t *models.Tournament) {
		t.BracketType, t.RoundRobinLegs = models.BracketRoundRobin, 2
	})
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		env.addTeam(t, tour.ID, name)
	}

	view, err := env.bracketSvc.Generate(context.Background(), staff(owner), tour.ID)
	require.NoError(t, err)

	total := 0
	for _, r := range view.Rounds {
		total += len(r.Matches)
		for _, m := range r.Matches {
			assert.Nil(t, m.NextMatchID)
		}
	}
	assert.Equal(t, 12, total, "four teams meet twice")
	assert.Len(t, view.Rounds, 6)
	require.Len(t, view.Standings, 4)
	assert.Equal(t, 0, view.Standings[0].Points)
}

func TestBracketService_ResetRevertsStats(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "Owner", models.RoleOrganizer)
	tour := env.addTournament(t, owner.ID, nil)
	ctx := context.Background()
	alpha, alphaCap := env.addTeam(t, tour.ID, "Alpha")
	_, bravoCap := env.addTeam(t, tour.ID, "Bravo")

	view, err := env.bracketSvc.Generate(ctx, staff(owner), tour.ID)
	require.NoError(t, err)
	_, err = env.matchSvc.ReportResult(ctx, staff(owner), view.Rounds[0].Matches[0].ID, 2, 0)
	require.NoError(t, err)

	stored := env.tournament(t, tour.ID)
	require.Equal(t, models.StatusCompleted, stored.Status)
	require.Equal(t, alpha.ID, *stored.WinnerRegistrationID)
	require.Equal(t, models.UserStats{MatchesPlayed: 1, MatchesWon: 1, TournamentsPlayed: 1, TournamentsWon: 1}, env.user(t, alphaCap.ID).Stats)

	player := env.addUser(t, "Player", models.RolePlayer)
	assert.ErrorIs(t, env.bracketSvc.Reset(ctx, staff(player), tour.ID), ErrForbiddenOperation)

	require.NoError(t, env.bracketSvc.Reset(ctx, staff(owner), tour.ID))

	stored = env.tournament(t, tour.ID)
	assert.False(t, stored.BracketGenerated)
	assert.Equal(t, models.StatusActive, stored.Status, "a completed tournament reopens")
	assert.Nil(t, stored.WinnerRegistrationID)
	assert.Equal(t, models.UserStats{}, env.user(t, alphaCap.ID).Stats)
	assert.Equal(t, models.UserStats{}, env.user(t, bravoCap.ID).Stats)
	assert.Nil(t, env.registration(t, alpha.ID).Seed)

	matches, err := env.matches.ListByTournament(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Contains(t, env.publisher.types(), brackets.EventBracketReset)

	assert.ErrorIs(t, env.bracketSvc.Reset(ctx, staff(owner), tour.ID), ErrBracketNotGenerated)

	// The bracket can be generated again after a reset.
	_, err = env.bracketSvc.Generate(ctx, staff(owner), tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.user(t, alphaCap.ID).Stats.TournamentsPlayed)
}
