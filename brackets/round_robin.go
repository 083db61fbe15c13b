package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/valorant-arena/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() models.BracketType {
	return models.BracketRoundRobin
}

// GenerateBracket schedules every pair with the circle method: one team stays fixed
// while the others rotate. With an odd field a phantom slot is added and whoever
// draws it sits the round out. A second leg repeats the first with sides swapped.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if len(params.Teams) < 2 {
		return nil, ErrNotEnoughTeams
	}
	legs := params.Legs
	if legs == 0 {
		legs = 1
	}
	if legs != 1 && legs != 2 {
		return nil, fmt.Errorf("round robin supports 1 or 2 legs, got %d", legs)
	}

	ring := make([]*int, 0, len(params.Teams)+1)
	for i := range params.Teams {
		id := params.Teams[i]
		ring = append(ring, &id)
	}
	if len(ring)%2 == 1 {
		ring = append(ring, nil)
	}
	n := len(ring)
	roundsPerLeg := n - 1

	matches := make([]*BracketMatch, 0, legs*roundsPerLeg*n/2)
	for leg := 0; leg < legs; leg++ {
		rot := make([]*int, n)
		copy(rot, ring)
		for r := 0; r < roundsPerLeg; r++ {
			round := leg*roundsPerLeg + r + 1
			order := 0
			for i := 0; i < n/2; i++ {
				home, away := rot[i], rot[n-1-i]
				if home == nil || away == nil {
					continue
				}
				// Alternate the fixed team's side so nobody is always team 1.
				if i == 0 && r%2 == 1 {
					home, away = away, home
				}
				if leg == 1 {
					home, away = away, home
				}
				order++
				matches = append(matches, &BracketMatch{
					UID:          matchUID(round, order),
					Round:        round,
					OrderInRound: order,
					Team1ID:      home,
					Team2ID:      away,
				})
			}
			// Keep rot[0] fixed, rotate the rest clockwise.
			last := rot[n-1]
			copy(rot[2:], rot[1:n-1])
			rot[1] = last
		}
	}

	return matches, nil
}
