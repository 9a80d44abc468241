package brackets

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	MinBracketSize = 2
	MaxBracketSize = 16
)

var (
	ErrTooFewPlayers      = errors.New("not enough players to pair a single elimination round (minimum 2)")
	ErrUnsupportedRoster  = errors.New("roster size must be a power of two between 2 and 16")
	ErrOddRoster          = errors.New("cannot pair an odd number of players")
	ErrDuplicateInBracket = errors.New("duplicate player id in bracket round")
)

// ValidBracketSize reports whether n is a supported tournament roster size.
func ValidBracketSize(n int) bool {
	return n >= MinBracketSize && n <= MaxBracketSize && bits.OnesCount(uint(n)) == 1
}

// Rounds returns the number of rounds a full bracket of size n plays.
func Rounds(n int) int {
	if n < MinBracketSize {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

type SingleElimination struct{}

func NewSingleElimination() Generator {
	return &SingleElimination{}
}

func (g *SingleElimination) Name() string {
	return "SingleElimination"
}

// PairRound pairs adjacent players: (ids[0], ids[1]), (ids[2], ids[3]), ...
// Power-of-two rosters guarantee no leftover, so an odd input is a caller bug.
func (g *SingleElimination) PairRound(playerIDs []int) ([]Pair, error) {
	n := len(playerIDs)
	if n < MinBracketSize {
		return nil, ErrTooFewPlayers
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: got %d players", ErrOddRoster, n)
	}

	seen := make(map[int]struct{}, n)
	for _, id := range playerIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: player %d", ErrDuplicateInBracket, id)
		}
		seen[id] = struct{}{}
	}

	pairs := make([]Pair, 0, n/2)
	for i := 0; i < n; i += 2 {
		pairs = append(pairs, Pair{
			Player1ID: playerIDs[i],
			Player2ID: playerIDs[i+1],
		})
	}
	return pairs, nil
}
