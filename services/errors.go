package services

import "errors"

// Errors shared across services and mapped to HTTP statuses by the handlers.
var (
	// A player may occupy at most one queue slot or game at a time.
	ErrPlayerAlreadyActive = errors.New("player is already searching or playing")

	ErrLobbyNotFound = errors.New("lobby not found")

	// Game lifecycle errors
	ErrNotAParticipant  = errors.New("player is not a participant of this game")
	ErrInvalidGameState = errors.New("operation not valid for the game's current state")

	// Tournament errors
	ErrTournamentFull       = errors.New("tournament roster is full")
	ErrTournamentNotOpen    = errors.New("tournament is not open")
	ErrTournamentNotOngoing = errors.New("tournament is not ongoing")
	ErrInvalidBracketSize   = errors.New("max participants must be a power of two between 2 and 16")
	ErrNameRequired         = errors.New("tournament name is required")
	ErrAlreadyJoined        = errors.New("user is already registered for this tournament")
	ErrGameNotInTournament  = errors.New("game does not belong to this tournament")

	// Generic "no rows affected" outcome for targeted updates and deletes.
	ErrNotFound = errors.New("requested resource not found")

	// Lock contention or timeout in the persistence layer, safe to retry.
	ErrTransientStorage = errors.New("temporary storage contention, retry the request")
)
