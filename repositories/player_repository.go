package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/robertrinh/transcendence-sub001/models"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNameConflict = errors.New("player username is already in use")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, status models.PlayerStatus, playerIDs ...int) error
	ResetOrphanedPlaying(ctx context.Context, exec SQLExecutor) (int64, error)
}

type sqlitePlayerRepository struct{}

func NewSQLitePlayerRepository() PlayerRepository {
	return &sqlitePlayerRepository{}
}

func (r *sqlitePlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	if player.Status == "" {
		player.Status = models.PlayerStatusIdle
	}

	query := `INSERT INTO players (username, status) VALUES (?, ?)`
	result, err := exec.ExecContext(ctx, query, player.Username, player.Status)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrPlayerNameConflict
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read player insert id: %w", err)
	}
	player.ID = int(id)
	return nil
}

func (r *sqlitePlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	query := `SELECT id, username, status FROM players WHERE id = ?`

	player := &models.Player{}
	err := exec.QueryRowContext(ctx, query, id).Scan(&player.ID, &player.Username, &player.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %d: %w", id, err)
	}
	return player, nil
}

func (r *sqlitePlayerRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, status models.PlayerStatus, playerIDs ...int) error {
	if len(playerIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(playerIDs)), ", ")
	query := fmt.Sprintf(`UPDATE players SET status = ? WHERE id IN (%s)`, placeholders)

	args := make([]interface{}, 0, len(playerIDs)+1)
	args = append(args, status)
	for _, id := range playerIDs {
		args = append(args, id)
	}

	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update player status: %w", err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

// ResetOrphanedPlaying flips players stuck in 'playing' back to 'idle' when
// they participate in no live game and no ongoing tournament. Tournament
// winners waiting for their next pairing stay 'playing' between rounds, which
// is why the second exclusion is needed.
func (r *sqlitePlayerRepository) ResetOrphanedPlaying(ctx context.Context, exec SQLExecutor) (int64, error) {
	query := `
		UPDATE players SET status = 'idle'
		WHERE status = 'playing'
		AND id NOT IN (
			SELECT player1_id FROM games WHERE status IN ('pending', 'ready', 'ongoing')
			UNION
			SELECT player2_id FROM games WHERE status IN ('pending', 'ready', 'ongoing')
		)
		AND id NOT IN (
			SELECT tp.user_id
			FROM tournament_participants tp
			JOIN tournaments t ON t.id = tp.tournament_id
			WHERE t.status = 'ongoing'
		)`

	result, err := exec.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reset orphaned playing status: %w", err)
	}
	return result.RowsAffected()
}
