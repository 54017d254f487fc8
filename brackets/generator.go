package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tleague/models"
)

var (
	ErrNotEnoughParticipants = errors.New("at least two participants are required")
	ErrUnsupportedFormat     = errors.New("tournament format is not supported by the fixture generator")
)

// Fixture - одна пара в конкретном туре. Bye-пары в расписание не попадают.
type Fixture struct {
	Round     int
	Player1ID int64
	Player2ID int64
}

// Schedule is the output of a generator: fixtures ordered by round, plus the round count
// the tournament should expect.
type Schedule struct {
	Fixtures    []Fixture
	TotalRounds int
}

type GenerateParams struct {
	// Participants in registration order.
	Participants  []int64
	MeetingsCount int
}

type FixtureGenerator interface {
	Generate(ctx context.Context, params GenerateParams) (*Schedule, error)
	Name() string
}

// Shuffler is satisfied by *math/rand/v2.Rand.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// ForFormat returns the generator for a tournament format.
func ForFormat(format models.TournamentFormat, shuffler Shuffler) (FixtureGenerator, error) {
	switch format {
	// Групповой этап проводится как обычный круговой турнир
	case models.FormatRoundRobin, models.FormatGroupPlayoff:
		return NewRoundRobinGenerator(), nil
	case models.FormatPlayoff:
		return NewSingleEliminationGenerator(shuffler), nil
	case models.FormatSwiss:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrUnsupportedFormat, format)
	}
}

// slot is a position in a pairing table; bye marks the padding entry for odd or
// non power-of-two fields.
type slot struct {
	userID int64
	bye    bool
}

func toSlots(ids []int64, size int) []slot {
	slots := make([]slot, size)
	for i := range slots {
		if i < len(ids) {
			slots[i] = slot{userID: ids[i]}
		} else {
			slots[i] = slot{bye: true}
		}
	}
	return slots
}
