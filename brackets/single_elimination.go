package brackets

import (
	"context"
	"math/bits"
	"math/rand/v2"
)

type SingleEliminationGenerator struct {
	shuffler Shuffler
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

func NewSingleEliminationGenerator(shuffler Shuffler) FixtureGenerator {
	if shuffler == nil {
		shuffler = globalShuffler{}
	}
	return &SingleEliminationGenerator{shuffler: shuffler}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate seeds a random bracket padded with byes to the next power of two.
// Only the first round is produced; later rounds are not materialized.
func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) (*Schedule, error) {
	n := len(params.Participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seeded := make([]int64, n)
	copy(seeded, params.Participants)
	g.shuffler.Shuffle(len(seeded), func(i, j int) {
		seeded[i], seeded[j] = seeded[j], seeded[i]
	})

	// size = 2^rounds, smallest power of two >= n
	rounds := bits.Len(uint(n - 1))
	size := 1 << rounds
	slots := toSlots(seeded, size)

	fixtures := make([]Fixture, 0, n/2)
	for i := 0; i < size; i += 2 {
		a, b := slots[i], slots[i+1]
		if a.bye || b.bye {
			continue
		}
		fixtures = append(fixtures, Fixture{Round: 1, Player1ID: a.userID, Player2ID: b.userID})
	}

	return &Schedule{Fixtures: fixtures, TotalRounds: rounds}, nil
}
