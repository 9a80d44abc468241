package brackets

// Pair is a single pairing of two players in one bracket round.
type Pair struct {
	Player1ID int
	Player2ID int
}

// Generator turns an ordered list of player ids into the pairings of one
// round. The input order is authoritative: join order for round 1, game
// creation order for winner rounds.
type Generator interface {
	PairRound(playerIDs []int) ([]Pair, error)

	Name() string
}
