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

// bracketAdvancer is how a finished tournament game hands control to the
// bracket engine. Implemented by TournamentService; a separate interface
// keeps the wiring direction explicit (games never reach back into
// tournaments except through this seam).
type bracketAdvancer interface {
	advanceTx(ctx context.Context, tx *sql.Tx, game *models.Game,
		scorePlayer1, scorePlayer2, winnerID int, finishedAt time.Time) (*ResultOutcome, []pendingEvent, error)
}

// ReadyStatus reports each participant's readiness signal for a game.
type ReadyStatus struct {
	GameID       int               `json:"game_id"`
	Player1Ready bool              `json:"player1_ready"`
	Player2Ready bool              `json:"player2_ready"`
	Status       models.GameStatus `json:"status"`
}

// GameService owns the state machine of a single match:
// pending -> ready -> ongoing -> finished, with cancelled reachable from any
// non-terminal state. It is the sole creation path for game rows.
type GameService struct {
	conn       *sql.DB
	gameRepo   repositories.GameRepository
	playerRepo repositories.PlayerRepository
	queueRepo  repositories.QueueRepository
	bracket    bracketAdvancer
	notifier   notify.Notifier
	logger     *slog.Logger
}

func NewGameService(
	conn *sql.DB,
	gameRepo repositories.GameRepository,
	playerRepo repositories.PlayerRepository,
	queueRepo repositories.QueueRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		conn:       conn,
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		queueRepo:  queueRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

// SetBracketEngine wires the tournament service in after both services are
// constructed. Must be called once during startup, before serving requests.
func (s *GameService) SetBracketEngine(engine bracketAdvancer) {
	s.bracket = engine
}

// CreateGameTx inserts a pending game and flips both players to 'playing'
// inside the caller's transaction. Only the matchmaking queue and the bracket
// engine call this. Any queue entries the participants still hold are deleted
// here, so a player entering a game never keeps a live matchmaking slot (a
// tournament start may pull in players who were waiting in the public pool).
func (s *GameService) CreateGameTx(ctx context.Context, exec repositories.SQLExecutor,
	player1ID, player2ID int, lobbyID *string, tournamentID, round *int) (*models.Game, error) {

	if player1ID == player2ID {
		return nil, fmt.Errorf("%w: a player cannot play against themselves", ErrPlayerAlreadyActive)
	}

	for _, playerID := range []int{player1ID, player2ID} {
		if _, err := s.queueRepo.DeleteByPlayer(ctx, exec, playerID); err != nil {
			return nil, fmt.Errorf("failed to clear queue entry for player %d: %w", playerID, err)
		}
	}

	game := &models.Game{
		LobbyID:      lobbyID,
		Player1ID:    player1ID,
		Player2ID:    player2ID,
		Status:       models.GameStatusPending,
		TournamentID: tournamentID,
		Round:        round,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.gameRepo.Create(ctx, exec, game); err != nil {
		return nil, fmt.Errorf("failed to create game for players %d and %d: %w", player1ID, player2ID, err)
	}

	if err := s.playerRepo.UpdateStatus(ctx, exec, models.PlayerStatusPlaying, player1ID, player2ID); err != nil {
		return nil, fmt.Errorf("failed to mark players %d and %d as playing: %w", player1ID, player2ID, err)
	}

	return game, nil
}

// SetReady records a participant's readiness signal. When both participants
// have signalled, the game transitions pending -> ready.
func (s *GameService) SetReady(ctx context.Context, gameID, playerID int) (*ReadyStatus, error) {
	var status *ReadyStatus
	var events []pendingEvent

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		game, err := s.gameRepo.GetByID(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if !game.HasParticipant(playerID) {
			return fmt.Errorf("%w: player %d, game %d", ErrNotAParticipant, playerID, gameID)
		}
		if game.Status != models.GameStatusPending {
			return fmt.Errorf("%w: game %d is %s, readiness requires pending", ErrInvalidGameState, gameID, game.Status)
		}

		slot := 1
		if game.Player2ID == playerID {
			slot = 2
		}
		if err := s.gameRepo.SetReadyFlag(ctx, tx, gameID, slot); err != nil {
			return err
		}
		if slot == 1 {
			game.P1Ready = true
		} else {
			game.P2Ready = true
		}

		if game.BothReady() {
			if err := s.gameRepo.UpdateStatus(ctx, tx, gameID, models.GameStatusReady); err != nil {
				return err
			}
			game.Status = models.GameStatusReady
			events = append(events, pendingEvent{
				userIDs: []int{game.Player1ID, game.Player2ID},
				event:   notify.NewEvent(notify.EventGameReady, game),
			})
		}

		status = &ReadyStatus{
			GameID:       game.ID,
			Player1Ready: game.P1Ready,
			Player2Ready: game.P2Ready,
			Status:       game.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dispatch(s.notifier, events)
	return status, nil
}

func (s *GameService) GetReadyStatus(ctx context.Context, gameID int) (*ReadyStatus, error) {
	game, err := s.gameRepo.GetByID(ctx, s.conn, gameID)
	if err != nil {
		return nil, err
	}
	return &ReadyStatus{
		GameID:       game.ID,
		Player1Ready: game.P1Ready,
		Player2Ready: game.P2Ready,
		Status:       game.Status,
	}, nil
}

// StartGame transitions ready -> ongoing, reported by the realtime game
// server once play begins.
func (s *GameService) StartGame(ctx context.Context, gameID int) (*models.Game, error) {
	var game *models.Game

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		var err error
		game, err = s.gameRepo.GetByID(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusReady {
			return fmt.Errorf("%w: game %d is %s, start requires ready", ErrInvalidGameState, gameID, game.Status)
		}
		if err := s.gameRepo.UpdateStatus(ctx, tx, gameID, models.GameStatusOngoing); err != nil {
			return err
		}
		game.Status = models.GameStatusOngoing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// FinishGame records the result of a ready or ongoing game. Regular games
// reset both players to idle; tournament games hand control to the bracket
// engine, which defers the idle reset until it knows who advances.
func (s *GameService) FinishGame(ctx context.Context, gameID, scorePlayer1, scorePlayer2, winnerID int,
	finishedAt time.Time) (*ResultOutcome, error) {

	var outcome *ResultOutcome
	var events []pendingEvent

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		game, err := s.gameRepo.GetByID(ctx, tx, gameID)
		if err != nil {
			return err
		}

		if game.TournamentID != nil {
			outcome, events, err = s.bracket.advanceTx(ctx, tx, game, scorePlayer1, scorePlayer2, winnerID, finishedAt)
			return err
		}

		if err := s.finishGameRowTx(ctx, tx, game, scorePlayer1, scorePlayer2, winnerID, finishedAt); err != nil {
			return err
		}
		if err := s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusIdle, game.Player1ID, game.Player2ID); err != nil {
			return err
		}

		outcome = &ResultOutcome{Game: game, Message: "game finished"}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dispatch(s.notifier, events)
	return outcome, nil
}

// finishGameRowTx validates the state transition and updates the game row
// in place; player status is the caller's responsibility.
func (s *GameService) finishGameRowTx(ctx context.Context, exec repositories.SQLExecutor, game *models.Game,
	scorePlayer1, scorePlayer2, winnerID int, finishedAt time.Time) error {

	if game.Status != models.GameStatusReady && game.Status != models.GameStatusOngoing {
		return fmt.Errorf("%w: game %d is %s, finish requires ready or ongoing", ErrInvalidGameState, game.ID, game.Status)
	}
	if !game.HasParticipant(winnerID) {
		return fmt.Errorf("%w: winner %d is not in game %d", ErrNotAParticipant, winnerID, game.ID)
	}

	finishedAt = finishedAt.UTC()
	if err := s.gameRepo.Finish(ctx, exec, game.ID, scorePlayer1, scorePlayer2, winnerID, finishedAt); err != nil {
		return err
	}

	game.Status = models.GameStatusFinished
	game.ScorePlayer1 = scorePlayer1
	game.ScorePlayer2 = scorePlayer2
	game.WinnerID = &winnerID
	game.FinishedAt = &finishedAt
	return nil
}

// CancelGameTx cancels a non-terminal game and resets both players to idle
// inside the caller's transaction. Used by the reaper and the admin surface.
func (s *GameService) CancelGameTx(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) ([]pendingEvent, error) {
	if game.IsTerminal() {
		return nil, fmt.Errorf("%w: game %d is already %s", ErrInvalidGameState, game.ID, game.Status)
	}

	if err := s.gameRepo.UpdateStatus(ctx, exec, game.ID, models.GameStatusCancelled); err != nil {
		return nil, err
	}
	if err := s.playerRepo.UpdateStatus(ctx, exec, models.PlayerStatusIdle, game.Player1ID, game.Player2ID); err != nil {
		return nil, err
	}
	game.Status = models.GameStatusCancelled

	return []pendingEvent{{
		userIDs: []int{game.Player1ID, game.Player2ID},
		event:   notify.NewEvent(notify.EventGameCancelled, game),
	}}, nil
}

func (s *GameService) CancelGame(ctx context.Context, gameID int) error {
	var events []pendingEvent

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		game, err := s.gameRepo.GetByID(ctx, tx, gameID)
		if err != nil {
			return err
		}
		events, err = s.CancelGameTx(ctx, tx, game)
		return err
	})
	if err != nil {
		return err
	}

	dispatch(s.notifier, events)
	return nil
}

func (s *GameService) GetGame(ctx context.Context, gameID int) (*models.Game, error) {
	return s.gameRepo.GetByID(ctx, s.conn, gameID)
}

func (s *GameService) ListGames(ctx context.Context) ([]*models.Game, error) {
	return s.gameRepo.List(ctx, s.conn)
}

// DeleteGame removes a game row outright. Administrative surface only.
func (s *GameService) DeleteGame(ctx context.Context, gameID int) error {
	return withTx(ctx, s.conn, func(tx *sql.Tx) error {
		return s.gameRepo.Delete(ctx, tx, gameID)
	})
}
