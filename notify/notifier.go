package notify

import "github.com/google/uuid"

// Event types pushed to connected clients after a state transition commits.
const (
	EventMatchFound         = "match_found"
	EventLobbyHosted        = "lobby_hosted"
	EventGameReady          = "game_ready"
	EventGameCancelled      = "game_cancelled"
	EventTournamentStarted  = "tournament_started"
	EventNextRound          = "next_round"
	EventTournamentFinished = "tournament_finished"
)

type Event struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewEvent(eventType string, payload interface{}) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Payload: payload,
	}
}

// Notifier delivers events to connected clients. Delivery is fire-and-forget:
// implementations must never block the caller or report delivery failure back
// into the transaction that produced the event.
type Notifier interface {
	Notify(userID int, event Event)
	Broadcast(event Event)
}

// NopNotifier discards all events. Used in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(int, Event) {}
func (NopNotifier) Broadcast(Event)   {}
