package brackets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/valorant-arena/models"
)

var (
	ErrNotYourTurn       = errors.New("it is not your turn to veto")
	ErrVetoActionInvalid = errors.New("this veto step expects a different action")
	ErrMapUnavailable    = errors.New("map is not available")
	ErrVetoComplete      = errors.New("map veto already finished")
	ErrVetoUnsupported   = errors.New("map veto supports best of 1 or best of 3")
)

// DefaultMapPool is the active competitive map rotation.
var DefaultMapPool = []string{"Ascent", "Bind", "Corrode", "Haven", "Icebox", "Lotus", "Sunset"}

// VetoStep is the action expected next.
type VetoStep struct {
	Slot   int                   `json:"slot"`
	Action models.VetoActionKind `json:"action"`
}

// VetoState is the result of replaying the recorded actions over the pool.
type VetoState struct {
	Remaining []string  `json:"remaining"`
	Picks     []string  `json:"picks"`
	Next      *VetoStep `json:"next,omitempty"`
	Selected  []string  `json:"selected"`
	Complete  bool      `json:"complete"`
}

// vetoAction returns the kind of step i for a pool of poolSize maps.
//
// BO1 bans until one map is left. BO3 opens with up to two bans, then two picks, then
// bans down to the decider; with a small pool the opening bans shrink so both picks fit.
func vetoAction(bestOf, poolSize, i int) models.VetoActionKind {
	if bestOf == 3 {
		openingBans := poolSize - 3
		if openingBans > 2 {
			openingBans = 2
		}
		if i >= openingBans && i < openingBans+2 {
			return models.VetoPick
		}
	}
	return models.VetoBan
}

// vetoSteps is the number of actions in a full veto: each one removes a map
// until only the decider is left.
func vetoSteps(poolSize int) int {
	if poolSize <= 1 {
		return 0
	}
	return poolSize - 1
}

// EvaluateVeto replays actions over pool and reports what is left and what comes next.
func EvaluateVeto(bestOf int, pool []string, actions []models.VetoAction) (VetoState, error) {
	if bestOf != 1 && bestOf != 3 {
		return VetoState{}, ErrVetoUnsupported
	}
	if bestOf == 3 && len(pool) < 3 {
		return VetoState{}, fmt.Errorf("best of 3 needs at least 3 maps, pool has %d", len(pool))
	}
	if len(pool) == 0 {
		return VetoState{}, errors.New("map pool is empty")
	}

	state := VetoState{
		Remaining: append([]string(nil), pool...),
		Picks:     []string{},
	}
	total := vetoSteps(len(pool))
	if len(actions) > total {
		return VetoState{}, ErrVetoComplete
	}

	for i, a := range actions {
		want := vetoAction(bestOf, len(pool), i)
		if a.Slot != turnSlot(i) {
			return VetoState{}, fmt.Errorf("step %d: %w", i+1, ErrNotYourTurn)
		}
		if a.Action != want {
			return VetoState{}, fmt.Errorf("step %d: %w", i+1, ErrVetoActionInvalid)
		}
		idx := indexOfMap(state.Remaining, a.Map)
		if idx < 0 {
			return VetoState{}, fmt.Errorf("step %d: %w: %s", i+1, ErrMapUnavailable, a.Map)
		}
		picked := state.Remaining[idx]
		state.Remaining = append(state.Remaining[:idx], state.Remaining[idx+1:]...)
		if a.Action == models.VetoPick {
			state.Picks = append(state.Picks, picked)
		}
	}

	if len(actions) == total {
		state.Complete = true
		state.Selected = append(append([]string{}, state.Picks...), state.Remaining...)
		return state, nil
	}

	state.Next = &VetoStep{Slot: turnSlot(len(actions)), Action: vetoAction(bestOf, len(pool), len(actions))}
	state.Selected = []string{}
	return state, nil
}

// ApplyVeto validates one more action and returns the new action log and state.
func ApplyVeto(bestOf int, pool []string, actions []models.VetoAction, next models.VetoAction) ([]models.VetoAction, VetoState, error) {
	state, err := EvaluateVeto(bestOf, pool, actions)
	if err != nil {
		return nil, VetoState{}, err
	}
	if state.Complete {
		return nil, VetoState{}, ErrVetoComplete
	}
	if next.Slot != state.Next.Slot {
		return nil, VetoState{}, ErrNotYourTurn
	}
	if next.Action != state.Next.Action {
		return nil, VetoState{}, ErrVetoActionInvalid
	}
	idx := indexOfMap(state.Remaining, next.Map)
	if idx < 0 {
		return nil, VetoState{}, ErrMapUnavailable
	}
	next.Map = state.Remaining[idx]

	updated := append(append([]models.VetoAction{}, actions...), next)
	newState, err := EvaluateVeto(bestOf, pool, updated)
	if err != nil {
		return nil, VetoState{}, err
	}
	return updated, newState, nil
}

func turnSlot(step int) int {
	if step%2 == 0 {
		return 1
	}
	return 2
}

func indexOfMap(maps []string, name string) int {
	for i, m := range maps {
		if strings.EqualFold(m, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}
