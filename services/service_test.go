package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/robertrinh/transcendence-sub001/brackets"
	"github.com/robertrinh/transcendence-sub001/db"
	"github.com/robertrinh/transcendence-sub001/models"
	"github.com/robertrinh/transcendence-sub001/notify"
	"github.com/robertrinh/transcendence-sub001/repositories"
)

// testEnv wires all services against a fresh in-memory database.
type testEnv struct {
	conn *sql.DB

	playerRepo      repositories.PlayerRepository
	queueRepo       repositories.QueueRepository
	gameRepo        repositories.GameRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository

	games       *GameService
	matchmaking *MatchmakingService
	tournaments *TournamentService
	reaper      *Reaper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(context.Background(), conn))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NopNotifier{}

	env := &testEnv{
		conn:            conn,
		playerRepo:      repositories.NewSQLitePlayerRepository(),
		queueRepo:       repositories.NewSQLiteQueueRepository(),
		gameRepo:        repositories.NewSQLiteGameRepository(),
		tournamentRepo:  repositories.NewSQLiteTournamentRepository(),
		participantRepo: repositories.NewSQLiteParticipantRepository(),
	}

	env.games = NewGameService(conn, env.gameRepo, env.playerRepo, env.queueRepo, notifier, logger)
	env.matchmaking = NewMatchmakingService(conn, env.queueRepo, env.playerRepo, env.gameRepo,
		env.games, notifier, logger)
	env.tournaments = NewTournamentService(conn, env.tournamentRepo, env.participantRepo,
		env.gameRepo, env.playerRepo, env.games, brackets.NewSingleElimination(), notifier, logger)
	env.games.SetBracketEngine(env.tournaments)
	env.reaper = NewReaper(conn, env.queueRepo, env.gameRepo, env.playerRepo,
		env.games, notifier, logger, DefaultReapInterval)

	return env
}

func (e *testEnv) createPlayer(t *testing.T, username string) int {
	t.Helper()
	player := &models.Player{Username: username}
	require.NoError(t, e.playerRepo.Create(context.Background(), e.conn, player))
	return player.ID
}

func (e *testEnv) createPlayers(t *testing.T, n int) []int {
	t.Helper()
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, e.createPlayer(t, fmt.Sprintf("player-%s-%d", t.Name(), i)))
	}
	return ids
}

func (e *testEnv) playerStatus(t *testing.T, playerID int) models.PlayerStatus {
	t.Helper()
	player, err := e.playerRepo.GetByID(context.Background(), e.conn, playerID)
	require.NoError(t, err)
	return player.Status
}

func (e *testEnv) gameByID(t *testing.T, gameID int) *models.Game {
	t.Helper()
	game, err := e.gameRepo.GetByID(context.Background(), e.conn, gameID)
	require.NoError(t, err)
	return game
}

// seedPublicEntry puts a player into the public pool with a joined_at in the
// past, bypassing EnqueueRandom so multiple waiting players can coexist.
func (e *testEnv) seedPublicEntry(t *testing.T, playerID int, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	entry := &models.QueueEntry{PlayerID: playerID, JoinedAt: time.Now().UTC().Add(-age)}
	require.NoError(t, e.queueRepo.Insert(ctx, e.conn, entry))
	require.NoError(t, e.playerRepo.UpdateStatus(ctx, e.conn, models.PlayerStatusSearching, playerID))
}

// backdateQueueEntry shifts joined_at into the past so reaper and status
// timeout paths can be exercised without sleeping.
func (e *testEnv) backdateQueueEntry(t *testing.T, playerID int, age time.Duration) {
	t.Helper()
	joinedAt := time.Now().UTC().Add(-age)
	_, err := e.conn.ExecContext(context.Background(),
		`UPDATE queue_entries SET joined_at = ? WHERE player_id = ?`, joinedAt, playerID)
	require.NoError(t, err)
}

func (e *testEnv) backdateGame(t *testing.T, gameID int, age time.Duration) {
	t.Helper()
	createdAt := time.Now().UTC().Add(-age)
	_, err := e.conn.ExecContext(context.Background(),
		`UPDATE games SET created_at = ? WHERE id = ?`, createdAt, gameID)
	require.NoError(t, err)
}
