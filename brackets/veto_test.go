package brackets

import (
	"testing"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ban(slot int, m string) models.VetoAction {
	return models.VetoAction{Slot: slot, Action: models.VetoBan, Map: m}
}

func pick(slot int, m string) models.VetoAction {
	return models.VetoAction{Slot: slot, Action: models.VetoPick, Map: m}
}

func TestVeto_BestOfOne(t *testing.T) {
	pool := []string{"Ascent", "Bind", "Haven"}
	var actions []models.VetoAction

	actions, state, err := ApplyVeto(1, pool, actions, ban(1, "bind"))
	require.NoError(t, err)
	assert.Equal(t, "Bind", actions[0].Map)
	assert.False(t, state.Complete)
	assert.Equal(t, &VetoStep{Slot: 2, Action: models.VetoBan}, state.Next)

	_, _, err = ApplyVeto(1, pool, actions, ban(1, "Haven"))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, _, err = ApplyVeto(1, pool, actions, pick(2, "Haven"))
	assert.ErrorIs(t, err, ErrVetoActionInvalid)

	_, _, err = ApplyVeto(1, pool, actions, ban(2, "Bind"))
	assert.ErrorIs(t, err, ErrMapUnavailable)

	actions, state, err = ApplyVeto(1, pool, actions, ban(2, "Haven"))
	require.NoError(t, err)
	assert.True(t, state.Complete)
	assert.Equal(t, []string{"Ascent"}, state.Selected)

	_, _, err = ApplyVeto(1, pool, actions, ban(1, "Ascent"))
	assert.ErrorIs(t, err, ErrVetoComplete)
}

func TestVeto_BestOfThreeFullPool(t *testing.T) {
	pool := DefaultMapPool
	steps := []models.VetoAction{
		ban(1, "Ascent"), ban(2, "Bind"),
		pick(1, "Haven"), pick(2, "Lotus"),
		ban(1, "Corrode"), ban(2, "Icebox"),
	}

	var actions []models.VetoAction
	var state VetoState
	var err error
	for _, s := range steps {
		actions, state, err = ApplyVeto(3, pool, actions, s)
		require.NoError(t, err, s)
	}
	assert.True(t, state.Complete)
	assert.Equal(t, []string{"Haven", "Lotus", "Sunset"}, state.Selected)
	assert.Nil(t, state.Next)
}

func TestVeto_BestOfThreeSmallPools(t *testing.T) {
	state, err := EvaluateVeto(3, []string{"Ascent", "Bind", "Haven"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VetoPick, state.Next.Action)

	state, err = EvaluateVeto(3, []string{"Ascent", "Bind", "Haven"}, []models.VetoAction{pick(1, "Bind"), pick(2, "Ascent")})
	require.NoError(t, err)
	assert.True(t, state.Complete)
	assert.Equal(t, []string{"Bind", "Ascent", "Haven"}, state.Selected)

	state, err = EvaluateVeto(3, []string{"Ascent", "Bind", "Haven", "Lotus"}, []models.VetoAction{ban(1, "Lotus")})
	require.NoError(t, err)
	assert.Equal(t, &VetoStep{Slot: 2, Action: models.VetoPick}, state.Next)
}

func TestVeto_InvalidConfigurations(t *testing.T) {
	_, err := EvaluateVeto(5, DefaultMapPool, nil)
	assert.ErrorIs(t, err, ErrVetoUnsupported)

	_, err = EvaluateVeto(3, []string{"Ascent", "Bind"}, nil)
	assert.Error(t, err)

	state, err := EvaluateVeto(1, []string{"Ascent"}, nil)
	require.NoError(t, err)
	assert.True(t, state.Complete)
	assert.Equal(t, []string{"Ascent"}, state.Selected)
}

func TestVeto_ReplayRejectsTamperedLog(t *testing.T) {
	_, err := EvaluateVeto(1, []string{"Ascent", "Bind", "Haven"}, []models.VetoAction{ban(2, "Bind")})
	assert.ErrorIs(t, err, ErrNotYourTurn)
}
