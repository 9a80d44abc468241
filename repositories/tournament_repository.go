package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robertrinh/transcendence-sub001/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Finish(ctx context.Context, exec SQLExecutor, id, winnerID int, finishedAt time.Time) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error)
}

type sqliteTournamentRepository struct{}

func NewSQLiteTournamentRepository() TournamentRepository {
	return &sqliteTournamentRepository{}
}

func (r *sqliteTournamentRepository) Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, max_participants, status, winner_id, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, query,
		tournament.Name,
		tournament.MaxParticipants,
		tournament.Status,
		tournament.WinnerID,
		tournament.CreatedAt,
		tournament.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read tournament insert id: %w", err)
	}
	tournament.ID = int(id)
	return nil
}

func (r *sqliteTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, max_participants, status, winner_id, created_at, finished_at
		FROM tournaments
		WHERE id = ?`

	tournament := &models.Tournament{}
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.MaxParticipants,
		&tournament.Status,
		&tournament.WinnerID,
		&tournament.CreatedAt,
		&tournament.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (r *sqliteTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = ? WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqliteTournamentRepository) Finish(ctx context.Context, exec SQLExecutor, id, winnerID int, finishedAt time.Time) error {
	query := `UPDATE tournaments SET status = ?, winner_id = ?, finished_at = ? WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, models.TournamentStatusFinished, winnerID, finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqliteTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM tournaments WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqliteTournamentRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error) {
	query := `
		SELECT id, name, max_participants, status, winner_id, created_at, finished_at
		FROM tournaments
		ORDER BY created_at DESC, id DESC`

	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		tournament := &models.Tournament{}
		if scanErr := rows.Scan(
			&tournament.ID,
			&tournament.Name,
			&tournament.MaxParticipants,
			&tournament.Status,
			&tournament.WinnerID,
			&tournament.CreatedAt,
			&tournament.FinishedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, tournament)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}
