package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robertrinh/transcendence-sub001/models"
)

var (
	ErrQueueEntryNotFound = errors.New("queue entry not found")
	ErrQueueEntryConflict = errors.New("player already has a queue entry")
)

type QueueRepository interface {
	Insert(ctx context.Context, exec SQLExecutor, entry *models.QueueEntry) error
	FindByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.QueueEntry, error)
	FindByLobby(ctx context.Context, exec SQLExecutor, lobbyID string) (*models.QueueEntry, error)
	FindOldestPublic(ctx context.Context, exec SQLExecutor, excludePlayerID int) (*models.QueueEntry, error)
	LobbyIDExists(ctx context.Context, exec SQLExecutor, lobbyID string) (bool, error)
	DeleteByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (int64, error)
	FindStale(ctx context.Context, exec SQLExecutor, publicBefore, lobbyBefore time.Time) ([]*models.QueueEntry, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.QueueEntry, error)
}

type sqliteQueueRepository struct{}

func NewSQLiteQueueRepository() QueueRepository {
	return &sqliteQueueRepository{}
}

func (r *sqliteQueueRepository) Insert(ctx context.Context, exec SQLExecutor, entry *models.QueueEntry) error {
	query := `INSERT INTO queue_entries (player_id, lobby_id, joined_at) VALUES (?, ?, ?)`

	result, err := exec.ExecContext(ctx, query, entry.PlayerID, entry.LobbyID, entry.JoinedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrQueueEntryConflict
		}
		return fmt.Errorf("failed to insert queue entry for player %d: %w", entry.PlayerID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read queue entry insert id: %w", err)
	}
	entry.ID = int(id)
	return nil
}

func (r *sqliteQueueRepository) FindByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.QueueEntry, error) {
	query := `SELECT id, player_id, lobby_id, joined_at FROM queue_entries WHERE player_id = ?`
	return r.scanOne(exec.QueryRowContext(ctx, query, playerID))
}

func (r *sqliteQueueRepository) FindByLobby(ctx context.Context, exec SQLExecutor, lobbyID string) (*models.QueueEntry, error) {
	query := `SELECT id, player_id, lobby_id, joined_at FROM queue_entries WHERE lobby_id = ?`
	return r.scanOne(exec.QueryRowContext(ctx, query, lobbyID))
}

// FindOldestPublic returns the longest-waiting entry in the random pool,
// excluding the requesting player. A nil entry means the pool is empty.
func (r *sqliteQueueRepository) FindOldestPublic(ctx context.Context, exec SQLExecutor, excludePlayerID int) (*models.QueueEntry, error) {
	query := `
		SELECT id, player_id, lobby_id, joined_at
		FROM queue_entries
		WHERE lobby_id IS NULL AND player_id != ?
		ORDER BY joined_at ASC, id ASC
		LIMIT 1`
	return r.scanOne(exec.QueryRowContext(ctx, query, excludePlayerID))
}

func (r *sqliteQueueRepository) LobbyIDExists(ctx context.Context, exec SQLExecutor, lobbyID string) (bool, error) {
	query := `SELECT COUNT(*) FROM queue_entries WHERE lobby_id = ?`

	var count int
	if err := exec.QueryRowContext(ctx, query, lobbyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check lobby id %q: %w", lobbyID, err)
	}
	return count > 0, nil
}

func (r *sqliteQueueRepository) DeleteByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (int64, error) {
	query := `DELETE FROM queue_entries WHERE player_id = ?`

	result, err := exec.ExecContext(ctx, query, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete queue entry for player %d: %w", playerID, err)
	}
	return result.RowsAffected()
}

// FindStale returns public entries older than publicBefore and private lobby
// entries older than lobbyBefore.
func (r *sqliteQueueRepository) FindStale(ctx context.Context, exec SQLExecutor, publicBefore, lobbyBefore time.Time) ([]*models.QueueEntry, error) {
	query := `
		SELECT id, player_id, lobby_id, joined_at
		FROM queue_entries
		WHERE (lobby_id IS NULL AND joined_at < ?)
		   OR (lobby_id IS NOT NULL AND joined_at < ?)
		ORDER BY joined_at ASC`
	return r.scanMany(ctx, exec, query, publicBefore, lobbyBefore)
}

func (r *sqliteQueueRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.QueueEntry, error) {
	query := `SELECT id, player_id, lobby_id, joined_at FROM queue_entries ORDER BY joined_at ASC, id ASC`
	return r.scanMany(ctx, exec, query)
}

func (r *sqliteQueueRepository) scanOne(row *sql.Row) (*models.QueueEntry, error) {
	entry := &models.QueueEntry{}
	err := row.Scan(&entry.ID, &entry.PlayerID, &entry.LobbyID, &entry.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan queue entry: %w", err)
	}
	return entry, nil
}

func (r *sqliteQueueRepository) scanMany(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.QueueEntry, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.QueueEntry, 0)
	for rows.Next() {
		entry := &models.QueueEntry{}
		if scanErr := rows.Scan(&entry.ID, &entry.PlayerID, &entry.LobbyID, &entry.JoinedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan queue entry row: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during queue entry rows iteration: %w", err)
	}
	return entries, nil
}
