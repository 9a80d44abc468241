package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/robertrinh/transcendence-sub001/models"
)

var (
	ErrParticipantNotFound = errors.New("tournament participant not found")
	ErrParticipantConflict = errors.New("user is already registered for this tournament")
)

type ParticipantRepository interface {
	Insert(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error
}

type sqliteParticipantRepository struct{}

func NewSQLiteParticipantRepository() ParticipantRepository {
	return &sqliteParticipantRepository{}
}

func (r *sqliteParticipantRepository) Insert(ctx context.Context, exec SQLExecutor, participant *models.Participant) error {
	query := `INSERT INTO tournament_participants (tournament_id, user_id, joined_at) VALUES (?, ?, ?)`

	result, err := exec.ExecContext(ctx, query, participant.TournamentID, participant.UserID, participant.JoinedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrParticipantConflict
		}
		return fmt.Errorf("failed to insert participant %d into tournament %d: %w",
			participant.UserID, participant.TournamentID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read participant insert id: %w", err)
	}
	participant.ID = int(id)
	return nil
}

// ListByTournament returns participants in join order, which is also the
// round-1 pairing order.
func (r *sqliteParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, joined_at
		FROM tournament_participants
		WHERE tournament_id = ?
		ORDER BY joined_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		participant := &models.Participant{}
		if scanErr := rows.Scan(
			&participant.ID,
			&participant.TournamentID,
			&participant.UserID,
			&participant.JoinedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, participant)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *sqliteParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = ?`

	var count int
	if err := exec.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *sqliteParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error {
	query := `DELETE FROM tournament_participants WHERE tournament_id = ? AND user_id = ?`

	result, err := exec.ExecContext(ctx, query, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete participant %d from tournament %d: %w", userID, tournamentID, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
