package models

import "time"

// QueueEntry is a single player waiting for an opponent. A nil LobbyID means
// the entry belongs to the public random pool; a non-nil LobbyID names a
// private lobby awaiting its second participant.
type QueueEntry struct {
	ID       int       `json:"id"`
	PlayerID int       `json:"player_id"`
	LobbyID  *string   `json:"lobby_id,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

func (e *QueueEntry) IsPrivate() bool {
	return e.LobbyID != nil
}
