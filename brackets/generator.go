package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/valorant-arena/models"
)

var (
	ErrNotEnoughTeams     = errors.New("at least two teams are required to generate a bracket")
	ErrUnknownBracketType = errors.New("unknown bracket type")
)

// GenerateBracketParams carries registration IDs in seed order: Teams[0] is seed 1.
type GenerateBracketParams struct {
	Teams []int
	// Legs is the number of times every pair meets in a round robin.
	Legs int
}

// BracketMatch is a generated match before it is persisted. Matches refer to each
// other by UID only; database IDs are assigned later.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Team1ID *int
	Team2ID *int

	NextMatchUID *string
	WinnerToSlot int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() models.BracketType
}

func NewGenerator(bracketType models.BracketType) (BracketGenerator, error) {
	switch bracketType {
	case models.BracketSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.BracketRoundRobin:
		return NewRoundRobinGenerator(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBracketType, bracketType)
}

func matchUID(round, order int) string {
	return fmt.Sprintf("R%dM%d", round, order)
}
