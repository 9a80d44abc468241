package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robertrinh/transcendence-sub001/models"
	"github.com/robertrinh/transcendence-sub001/notify"
	"github.com/robertrinh/transcendence-sub001/repositories"
)

// A searching player polling their own status is dropped from the pool after
// this long without a match.
const matchmakingStatusTimeout = 30 * time.Second

const maxLobbyIDAttempts = 5

// EnqueueResult is the outcome of an enqueue or lobby request: either a game
// was created on the spot, or the player is now waiting in the queue.
type EnqueueResult struct {
	Matched bool               `json:"matched"`
	Game    *models.Game       `json:"game,omitempty"`
	Entry   *models.QueueEntry `json:"entry,omitempty"`
	Message string             `json:"message"`
}

// MatchmakingStatus is the player's current matchmaking state: idle,
// searching with queue metadata, or playing with the game.
type MatchmakingStatus struct {
	Status models.PlayerStatus `json:"status"`
	Entry  *models.QueueEntry  `json:"entry,omitempty"`
	Game   *models.Game        `json:"game,omitempty"`
}

// MatchmakingService manages the waiting-for-opponent queue, both the public
// random pool and named private lobbies. Pairing, status updates and entry
// deletion always happen in one transaction, so two concurrent requests can
// never both match the same waiting player.
type MatchmakingService struct {
	conn       *sql.DB
	queueRepo  repositories.QueueRepository
	playerRepo repositories.PlayerRepository
	gameRepo   repositories.GameRepository
	games      *GameService
	notifier   notify.Notifier
	logger     *slog.Logger
}

func NewMatchmakingService(
	conn *sql.DB,
	queueRepo repositories.QueueRepository,
	playerRepo repositories.PlayerRepository,
	gameRepo repositories.GameRepository,
	games *GameService,
	notifier notify.Notifier,
	logger *slog.Logger,
) *MatchmakingService {
	return &MatchmakingService{
		conn:       conn,
		queueRepo:  queueRepo,
		playerRepo: playerRepo,
		gameRepo:   gameRepo,
		games:      games,
		notifier:   notifier,
		logger:     logger,
	}
}

// EnqueueRandom matches the player against the longest-waiting public entry,
// or inserts a new entry when the pool is empty.
func (s *MatchmakingService) EnqueueRandom(ctx context.Context, playerID int) (*EnqueueResult, error) {
	var result *EnqueueResult
	var events []pendingEvent

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		if err := s.requireInactive(ctx, tx, playerID); err != nil {
			return err
		}

		waiting, err := s.queueRepo.FindOldestPublic(ctx, tx, playerID)
		if err != nil {
			return err
		}

		if waiting == nil {
			entry := &models.QueueEntry{PlayerID: playerID, JoinedAt: time.Now().UTC()}
			if err := s.queueRepo.Insert(ctx, tx, entry); err != nil {
				return err
			}
			if err := s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusSearching, playerID); err != nil {
				return err
			}
			result = &EnqueueResult{Entry: entry, Message: "waiting for an opponent"}
			return nil
		}

		game, err := s.games.CreateGameTx(ctx, tx, waiting.PlayerID, playerID, nil, nil, nil)
		if err != nil {
			return err
		}

		events = append(events, pendingEvent{
			userIDs: []int{game.Player1ID, game.Player2ID},
			event:   notify.NewEvent(notify.EventMatchFound, game),
		})
		result = &EnqueueResult{Matched: true, Game: game, Message: "match found, connect to the game server"}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dispatch(s.notifier, events)
	return result, nil
}

// HostLobby creates a private queue entry under a freshly generated lobby id,
// which the host shares out of band.
func (s *MatchmakingService) HostLobby(ctx context.Context, playerID int) (*models.QueueEntry, error) {
	var entry *models.QueueEntry

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		if err := s.requireInactive(ctx, tx, playerID); err != nil {
			return err
		}

		lobbyID, err := s.uniqueLobbyID(ctx, tx)
		if err != nil {
			return err
		}

		entry = &models.QueueEntry{PlayerID: playerID, LobbyID: &lobbyID, JoinedAt: time.Now().UTC()}
		if err := s.queueRepo.Insert(ctx, tx, entry); err != nil {
			return err
		}
		return s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusSearching, playerID)
	})
	if err != nil {
		return nil, err
	}

	dispatch(s.notifier, []pendingEvent{{
		userIDs: []int{playerID},
		event:   notify.NewEvent(notify.EventLobbyHosted, entry),
	}})
	return entry, nil
}

// JoinLobby pairs the joiner against the lobby's host. Joining an already
// matched lobby returns the existing game; a host rejoining their own lobby
// gets a "still waiting" result.
func (s *MatchmakingService) JoinLobby(ctx context.Context, playerID int, lobbyID string) (*EnqueueResult, error) {
	var result *EnqueueResult
	var events []pendingEvent

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		// the lobby may already have turned into a game (double join race)
		existing, err := s.gameRepo.FindByLobby(ctx, tx, lobbyID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &EnqueueResult{Matched: true, Game: existing, Message: "game found, connect to the game server"}
			return nil
		}

		entry, err := s.queueRepo.FindByLobby(ctx, tx, lobbyID)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%w: %q", ErrLobbyNotFound, lobbyID)
		}
		if entry.PlayerID == playerID {
			result = &EnqueueResult{Entry: entry, Message: "waiting for your opponent to join"}
			return nil
		}

		if err := s.requireInactive(ctx, tx, playerID); err != nil {
			return err
		}

		game, err := s.games.CreateGameTx(ctx, tx, entry.PlayerID, playerID, &lobbyID, nil, nil)
		if err != nil {
			return err
		}

		events = append(events, pendingEvent{
			userIDs: []int{game.Player1ID, game.Player2ID},
			event:   notify.NewEvent(notify.EventMatchFound, game),
		})
		result = &EnqueueResult{Matched: true, Game: game, Message: "match found, connect to the game server"}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dispatch(s.notifier, events)
	return result, nil
}

// Cancel removes the player's queue entry, public or private. Calling it
// without an entry is a no-op, not an error, and a playing player's status is
// left alone.
func (s *MatchmakingService) Cancel(ctx context.Context, playerID int) error {
	return withTx(ctx, s.conn, func(tx *sql.Tx) error {
		removed, err := s.queueRepo.DeleteByPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return nil
		}
		return s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusIdle, playerID)
	})
}

// Status reports the player's matchmaking state. A searching player whose
// public entry aged past the status timeout is dropped back to idle here
// rather than waiting for the reaper.
func (s *MatchmakingService) Status(ctx context.Context, playerID int) (*MatchmakingStatus, error) {
	var status *MatchmakingStatus

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		player, err := s.playerRepo.GetByID(ctx, tx, playerID)
		if err != nil {
			return err
		}

		switch player.Status {
		case models.PlayerStatusPlaying:
			game, err := s.gameRepo.FindLatestByPlayer(ctx, tx, playerID)
			if err != nil {
				return err
			}
			status = &MatchmakingStatus{Status: player.Status, Game: game}
			return nil

		case models.PlayerStatusSearching:
			entry, err := s.queueRepo.FindByPlayer(ctx, tx, playerID)
			if err != nil {
				return err
			}
			if entry == nil {
				// status says searching but the entry is gone, repair it
				if err := s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusIdle, playerID); err != nil {
					return err
				}
				status = &MatchmakingStatus{Status: models.PlayerStatusIdle}
				return nil
			}
			if !entry.IsPrivate() && time.Since(entry.JoinedAt) > matchmakingStatusTimeout {
				if _, err := s.queueRepo.DeleteByPlayer(ctx, tx, playerID); err != nil {
					return err
				}
				if err := s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusIdle, playerID); err != nil {
					return err
				}
				s.logger.Info("matchmaking search timed out", slog.Int("player_id", playerID))
				status = &MatchmakingStatus{Status: models.PlayerStatusIdle}
				return nil
			}
			status = &MatchmakingStatus{Status: player.Status, Entry: entry}
			return nil

		default:
			status = &MatchmakingStatus{Status: player.Status}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// ListQueue exposes the raw queue contents for the debug surface.
func (s *MatchmakingService) ListQueue(ctx context.Context) ([]*models.QueueEntry, error) {
	return s.queueRepo.List(ctx, s.conn)
}

// requireInactive rejects players that already occupy a queue slot or a game.
func (s *MatchmakingService) requireInactive(ctx context.Context, exec repositories.SQLExecutor, playerID int) error {
	player, err := s.playerRepo.GetByID(ctx, exec, playerID)
	if err != nil {
		return err
	}
	if player.IsActive() {
		return fmt.Errorf("%w: player %d is %s", ErrPlayerAlreadyActive, playerID, player.Status)
	}
	return nil
}

// uniqueLobbyID generates a lobby code taken by no waiting lobby and no game.
func (s *MatchmakingService) uniqueLobbyID(ctx context.Context, exec repositories.SQLExecutor) (string, error) {
	for attempt := 0; attempt < maxLobbyIDAttempts; attempt++ {
		lobbyID, err := generateLobbyID()
		if err != nil {
			return "", err
		}
		taken, err := s.lobbyIDTaken(ctx, exec, lobbyID)
		if err != nil {
			return "", err
		}
		if !taken {
			return lobbyID, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique lobby id after %d attempts", maxLobbyIDAttempts)
}

// lobbyIDTaken checks both queue entries and games: JoinLobby resolves a code
// against games first, so a code matching any historical game would hand new
// joiners that old game.
func (s *MatchmakingService) lobbyIDTaken(ctx context.Context, exec repositories.SQLExecutor, lobbyID string) (bool, error) {
	exists, err := s.queueRepo.LobbyIDExists(ctx, exec, lobbyID)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	game, err := s.gameRepo.FindByLobby(ctx, exec, lobbyID)
	if err != nil {
		return false, err
	}
	return game != nil, nil
}
