package models

import "time"

type GameStatus string

const (
	GameStatusPending   GameStatus = "pending"
	GameStatusReady     GameStatus = "ready"
	GameStatusOngoing   GameStatus = "ongoing"
	GameStatusFinished  GameStatus = "finished"
	GameStatusCancelled GameStatus = "cancelled"
)

// Game is a single match instance. Both players are known at creation time:
// games are only inserted once a pairing exists (public match, lobby join or
// tournament round), so there are no placeholder rows with missing players.
type Game struct {
	ID           int        `json:"id"`
	LobbyID      *string    `json:"lobby_id,omitempty"`
	Player1ID    int        `json:"player1_id"`
	Player2ID    int        `json:"player2_id"`
	Status       GameStatus `json:"status"`
	ScorePlayer1 int        `json:"score_player1"`
	ScorePlayer2 int        `json:"score_player2"`
	WinnerID     *int       `json:"winner_id,omitempty"`
	TournamentID *int       `json:"tournament_id,omitempty"`
	Round        *int       `json:"round,omitempty"`
	P1Ready      bool       `json:"p1_ready"`
	P2Ready      bool       `json:"p2_ready"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// IsTerminal reports whether no further status transition is possible.
func (g *Game) IsTerminal() bool {
	return g.Status == GameStatusFinished || g.Status == GameStatusCancelled
}

func (g *Game) HasParticipant(playerID int) bool {
	return g.Player1ID == playerID || g.Player2ID == playerID
}

// Opponent returns the other participant of the game. The caller must ensure
// playerID is a participant.
func (g *Game) Opponent(playerID int) int {
	if g.Player1ID == playerID {
		return g.Player2ID
	}
	return g.Player1ID
}

func (g *Game) BothReady() bool {
	return g.P1Ready && g.P2Ready
}
