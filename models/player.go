package models

// PlayerStatus mirrors the status ENUM on the players table.
type PlayerStatus string

const (
	PlayerStatusIdle      PlayerStatus = "idle"
	PlayerStatusSearching PlayerStatus = "searching"
	PlayerStatusPlaying   PlayerStatus = "playing"
)

// Player is the matchmaking-relevant projection of a user account.
// Status is mutated exclusively by the matchmaking, game and tournament
// services, never by request handlers.
type Player struct {
	ID       int          `json:"id"`
	Username string       `json:"username"`
	Status   PlayerStatus `json:"status"`
}

// IsActive reports whether the player already occupies a queue slot or a game
// and must be rejected from any new matchmaking request.
func (p *Player) IsActive() bool {
	return p.Status == PlayerStatusSearching || p.Status == PlayerStatusPlaying
}
