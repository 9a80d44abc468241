package models

import "time"

// Participant is a user's registration in a tournament. Join order (JoinedAt,
// then insertion order) determines the round-1 pairing.
type Participant struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	UserID       int       `json:"user_id"`
	JoinedAt     time.Time `json:"joined_at"`
}
