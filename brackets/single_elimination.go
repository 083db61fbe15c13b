package brackets

import (
	"context"
	"sort"

	"github.com/Dosada05/valorant-arena/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() models.BracketType {
	return models.BracketSingleElimination
}

// GenerateBracket pads the field to the next power of two and pairs seeds in standard
// bracket order (1 v N, with the top seeds kept apart until the late rounds). Seeds
// paired with an empty slot get a bye: no first round match is created for them and
// they are written straight into their second round slot.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	n := len(params.Teams)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}

	size := 1
	rounds := 0
	for size < n {
		size <<= 1
		rounds++
	}

	order := seedOrder(size)
	slots := make([]*int, size)
	for i, seed := range order {
		if seed <= n {
			id := params.Teams[seed-1]
			slots[i] = &id
		}
	}

	matches := make([]*BracketMatch, 0, size-1)
	byUID := make(map[string]*BracketMatch, size-1)

	for r := 1; r <= rounds; r++ {
		count := size >> r
		for o := 1; o <= count; o++ {
			if r == 1 && (slots[2*(o-1)] == nil || slots[2*(o-1)+1] == nil) {
				continue
			}
			m := &BracketMatch{UID: matchUID(r, o), Round: r, OrderInRound: o}
			if r == 1 {
				m.Team1ID = slots[2*(o-1)]
				m.Team2ID = slots[2*(o-1)+1]
			}
			matches = append(matches, m)
			byUID[m.UID] = m
		}
	}

	for _, m := range matches {
		if m.Round == rounds {
			continue
		}
		next := matchUID(m.Round+1, (m.OrderInRound+1)/2)
		m.NextMatchUID = &next
		m.WinnerToSlot = 2 - m.OrderInRound%2
	}

	// Byes: the lone team of an empty first round pair advances directly.
	if rounds > 1 {
		for o := 1; o <= size/2; o++ {
			a, b := slots[2*(o-1)], slots[2*(o-1)+1]
			if a != nil && b != nil {
				continue
			}
			team := a
			if team == nil {
				team = b
			}
			if team == nil {
				continue
			}
			next := byUID[matchUID(2, (o+1)/2)]
			if 2-o%2 == 1 {
				next.Team1ID = team
			} else {
				next.Team2ID = team
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})

	return matches, nil
}

// seedOrder returns the seeds of a bracket of the given size in slot order.
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		total := len(order)*2 + 1
		next := make([]int, 0, len(order)*2)
		for _, s := range order {
			next = append(next, s, total-s)
		}
		order = next
	}
	return order
}
