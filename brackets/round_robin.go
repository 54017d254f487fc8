package brackets

import (
	"context"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() FixtureGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Generate builds a circle-method schedule. The first slot stays fixed, the rest rotate
// one position per round. With meetings > 1 the rotation continues and round numbers
// keep counting, so every pair meets exactly meetings times.
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) (*Schedule, error) {
	if len(params.Participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	meetings := params.MeetingsCount
	if meetings < 1 {
		meetings = 1
	}

	size := len(params.Participants)
	if size%2 != 0 {
		size++
	}
	slots := toSlots(params.Participants, size)

	roundsPerCycle := size - 1
	fixtures := make([]Fixture, 0, meetings*len(params.Participants)*(len(params.Participants)-1)/2)
	round := 0

	for cycle := 0; cycle < meetings; cycle++ {
		for r := 0; r < roundsPerCycle; r++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			round++
			for i := 0; i < size/2; i++ {
				home, away := slots[i], slots[size-1-i]
				if home.bye || away.bye {
					continue
				}
				fixtures = append(fixtures, Fixture{Round: round, Player1ID: home.userID, Player2ID: away.userID})
			}
			slots = rotate(slots)
		}
	}

	return &Schedule{Fixtures: fixtures, TotalRounds: round}, nil
}

// rotate keeps slots[0] and moves the last slot into position 1.
func rotate(slots []slot) []slot {
	n := len(slots)
	next := make([]slot, 0, n)
	next = append(next, slots[0], slots[n-1])
	next = append(next, slots[1:n-1]...)
	return next
}
