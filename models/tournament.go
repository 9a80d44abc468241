package models

import "time"

// TournamentStatus mirrors the status ENUM on the tournaments table.
type TournamentStatus string

const (
	TournamentStatusOpen     TournamentStatus = "open"
	TournamentStatusOngoing  TournamentStatus = "ongoing"
	TournamentStatusFinished TournamentStatus = "finished"
	TournamentStatusCanceled TournamentStatus = "canceled"
)

// Tournament is a single-elimination bracket with a fixed power-of-two roster
// size. It opens on creation, turns ongoing the instant the roster fills and
// finishes once a single undefeated participant remains.
type Tournament struct {
	ID              int              `json:"id"`
	Name            string           `json:"name"`
	MaxParticipants int              `json:"max_participants"`
	Status          TournamentStatus `json:"status"`
	WinnerID        *int             `json:"winner_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
}

func (t *Tournament) IsTerminal() bool {
	return t.Status == TournamentStatusFinished || t.Status == TournamentStatusCanceled
}
