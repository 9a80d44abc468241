package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robertrinh/transcendence-sub001/models"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameConflict = errors.New("game conflicts with an existing row")
)

const gameColumns = `id, lobby_id, player1_id, player2_id, status, score_player1, score_player2,
	winner_id, tournament_id, round, p1_ready, p2_ready, created_at, finished_at`

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	FindByLobby(ctx context.Context, exec SQLExecutor, lobbyID string) (*models.Game, error)
	FindLatestByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.Game, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.GameStatus) error
	SetReadyFlag(ctx context.Context, exec SQLExecutor, id, slot int) error
	Finish(ctx context.Context, exec SQLExecutor, id, scorePlayer1, scorePlayer2, winnerID int, finishedAt time.Time) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int) ([]*models.Game, error)
	FindStale(ctx context.Context, exec SQLExecutor, before time.Time) ([]*models.Game, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Game, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type sqliteGameRepository struct{}

func NewSQLiteGameRepository() GameRepository {
	return &sqliteGameRepository{}
}

func (r *sqliteGameRepository) Create(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	query := `
		INSERT INTO games
			(lobby_id, player1_id, player2_id, status, score_player1, score_player2,
			 winner_id, tournament_id, round, p1_ready, p2_ready, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, query,
		game.LobbyID,
		game.Player1ID,
		game.Player2ID,
		game.Status,
		game.ScorePlayer1,
		game.ScorePlayer2,
		game.WinnerID,
		game.TournamentID,
		game.Round,
		game.P1Ready,
		game.P2Ready,
		game.CreatedAt,
		game.FinishedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrGameConflict
		}
		return fmt.Errorf("failed to insert game: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read game insert id: %w", err)
	}
	game.ID = int(id)
	return nil
}

func (r *sqliteGameRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = ?`

	game, err := r.scanOne(exec.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

func (r *sqliteGameRepository) FindByLobby(ctx context.Context, exec SQLExecutor, lobbyID string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE lobby_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.scanOne(exec.QueryRowContext(ctx, query, lobbyID))
}

// FindLatestByPlayer returns the player's most recent game, or nil if the
// player never played.
func (r *sqliteGameRepository) FindLatestByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE player1_id = ? OR player2_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	return r.scanOne(exec.QueryRowContext(ctx, query, playerID, playerID))
}

func (r *sqliteGameRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.GameStatus) error {
	query := `UPDATE games SET status = ? WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of game %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

// SetReadyFlag marks the readiness column for slot 1 or 2.
func (r *sqliteGameRepository) SetReadyFlag(ctx context.Context, exec SQLExecutor, id, slot int) error {
	if slot != 1 && slot != 2 {
		return fmt.Errorf("invalid ready slot %d for game %d", slot, id)
	}

	query := fmt.Sprintf(`UPDATE games SET p%d_ready = 1 WHERE id = ?`, slot)
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set ready flag on game %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *sqliteGameRepository) Finish(ctx context.Context, exec SQLExecutor, id, scorePlayer1, scorePlayer2, winnerID int, finishedAt time.Time) error {
	query := `
		UPDATE games
		SET status = ?, score_player1 = ?, score_player2 = ?, winner_id = ?, finished_at = ?
		WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, models.GameStatusFinished, scorePlayer1, scorePlayer2, winnerID, finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish game %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *sqliteGameRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, roundFilter *int) ([]*models.Game, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + gameColumns + ` FROM games WHERE tournament_id = ?`)

	args := []interface{}{tournamentID}
	if roundFilter != nil {
		queryBuilder.WriteString(` AND round = ?`)
		args = append(args, *roundFilter)
	}
	// id ASC keeps the round's creation order, which seeds the next round
	queryBuilder.WriteString(` ORDER BY round ASC, id ASC`)

	return r.scanMany(ctx, exec, queryBuilder.String(), args...)
}

// FindStale returns games still in a non-terminal state with no finish
// timestamp, created before the cutoff.
func (r *sqliteGameRepository) FindStale(ctx context.Context, exec SQLExecutor, before time.Time) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status NOT IN (?, ?)
		AND finished_at IS NULL
		AND created_at < ?
		ORDER BY created_at ASC`
	return r.scanMany(ctx, exec, query, models.GameStatusFinished, models.GameStatusCancelled, before)
}

func (r *sqliteGameRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY created_at DESC, id DESC`
	return r.scanMany(ctx, exec, query)
}

func (r *sqliteGameRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM games WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete game %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *sqliteGameRepository) scanOne(row *sql.Row) (*models.Game, error) {
	game := &models.Game{}
	err := row.Scan(
		&game.ID,
		&game.LobbyID,
		&game.Player1ID,
		&game.Player2ID,
		&game.Status,
		&game.ScorePlayer1,
		&game.ScorePlayer2,
		&game.WinnerID,
		&game.TournamentID,
		&game.Round,
		&game.P1Ready,
		&game.P2Ready,
		&game.CreatedAt,
		&game.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	return game, nil
}

func (r *sqliteGameRepository) scanMany(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Game, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		game := &models.Game{}
		if scanErr := rows.Scan(
			&game.ID,
			&game.LobbyID,
			&game.Player1ID,
			&game.Player2ID,
			&game.Status,
			&game.ScorePlayer1,
			&game.ScorePlayer2,
			&game.WinnerID,
			&game.TournamentID,
			&game.Round,
			&game.P1Ready,
			&game.P2Ready,
			&game.CreatedAt,
			&game.FinishedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", scanErr)
		}
		games = append(games, game)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during game rows iteration: %w", err)
	}
	return games, nil
}
