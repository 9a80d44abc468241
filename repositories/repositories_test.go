package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertrinh/transcendence-sub001/db"
	"github.com/robertrinh/transcendence-sub001/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

func createTestPlayer(t *testing.T, conn *sql.DB, username string) int {
	t.Helper()
	player := &models.Player{Username: username}
	require.NoError(t, NewSQLitePlayerRepository().Create(context.Background(), conn, player))
	return player.ID
}

func TestPlayerUsernameConflict(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLitePlayerRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, conn, &models.Player{Username: "taken"}))
	err := repo.Create(ctx, conn, &models.Player{Username: "taken"})
	assert.ErrorIs(t, err, ErrPlayerNameConflict)
}

func TestPlayerGetByIDNotFound(t *testing.T) {
	conn := newTestDB(t)

	_, err := NewSQLitePlayerRepository().GetByID(context.Background(), conn, 404)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerUpdateStatusMultipleIDs(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLitePlayerRepository()
	ctx := context.Background()

	id1 := createTestPlayer(t, conn, "alice")
	id2 := createTestPlayer(t, conn, "bob")

	require.NoError(t, repo.UpdateStatus(ctx, conn, models.PlayerStatusPlaying, id1, id2))

	for _, id := range []int{id1, id2} {
		player, err := repo.GetByID(ctx, conn, id)
		require.NoError(t, err)
		assert.Equal(t, models.PlayerStatusPlaying, player.Status)
	}
}

func TestQueueEntrySecondEnqueueConflicts(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteQueueRepository()
	ctx := context.Background()
	playerID := createTestPlayer(t, conn, "queued")

	require.NoError(t, repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: playerID, JoinedAt: time.Now().UTC()}))
	err := repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: playerID, JoinedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, ErrQueueEntryConflict)
}

func TestQueueFindOldestPublicSkipsLobbiesAndSelf(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteQueueRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	hostID := createTestPlayer(t, conn, "host")
	oldID := createTestPlayer(t, conn, "old-public")
	newID := createTestPlayer(t, conn, "new-public")

	lobby := "aabbccdd00"
	require.NoError(t, repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: hostID, LobbyID: &lobby, JoinedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: oldID, JoinedAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: newID, JoinedAt: now}))

	entry, err := repo.FindOldestPublic(ctx, conn, newID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, oldID, entry.PlayerID)

	entry, err = repo.FindOldestPublic(ctx, conn, oldID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, newID, entry.PlayerID, "a player never matches their own entry")
}

func TestQueueFindOldestPublicEmptyPool(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteQueueRepository()

	entry, err := repo.FindOldestPublic(context.Background(), conn, 1)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestQueueFindStaleSplitsTimeouts(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteQueueRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	freshID := createTestPlayer(t, conn, "fresh")
	staleID := createTestPlayer(t, conn, "stale")
	hostID := createTestPlayer(t, conn, "graced-host")

	lobby := "1122334455"
	require.NoError(t, repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: freshID, JoinedAt: now.Add(-30 * time.Second)}))
	require.NoError(t, repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: staleID, JoinedAt: now.Add(-60 * time.Second)}))
	require.NoError(t, repo.Insert(ctx, conn, &models.QueueEntry{PlayerID: hostID, LobbyID: &lobby, JoinedAt: now.Add(-60 * time.Second)}))

	stale, err := repo.FindStale(ctx, conn, now.Add(-45*time.Second), now.Add(-120*time.Second))
	require.NoError(t, err)

	require.Len(t, stale, 1)
	assert.Equal(t, staleID, stale[0].PlayerID)
}

func TestGameUpdateStatusNotFound(t *testing.T) {
	conn := newTestDB(t)

	err := NewSQLiteGameRepository().UpdateStatus(context.Background(), conn, 404, models.GameStatusReady)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameRoundTrip(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteGameRepository()
	ctx := context.Background()

	p1 := createTestPlayer(t, conn, "left")
	p2 := createTestPlayer(t, conn, "right")

	game := &models.Game{
		Player1ID: p1,
		Player2ID: p2,
		Status:    models.GameStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, conn, game))
	require.NotZero(t, game.ID)

	stored, err := repo.GetByID(ctx, conn, game.ID)
	require.NoError(t, err)
	assert.Equal(t, p1, stored.Player1ID)
	assert.Equal(t, p2, stored.Player2ID)
	assert.Equal(t, models.GameStatusPending, stored.Status)
	assert.Nil(t, stored.WinnerID)
	assert.Nil(t, stored.FinishedAt)

	require.NoError(t, repo.SetReadyFlag(ctx, conn, game.ID, 1))
	require.NoError(t, repo.SetReadyFlag(ctx, conn, game.ID, 2))
	stored, err = repo.GetByID(ctx, conn, game.ID)
	require.NoError(t, err)
	assert.True(t, stored.P1Ready)
	assert.True(t, stored.P2Ready)

	finishedAt := time.Now().UTC()
	require.NoError(t, repo.Finish(ctx, conn, game.ID, 11, 8, p1, finishedAt))
	stored, err = repo.GetByID(ctx, conn, game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusFinished, stored.Status)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, p1, *stored.WinnerID)
	assert.Equal(t, 11, stored.ScorePlayer1)
	assert.Equal(t, 8, stored.ScorePlayer2)
	require.NotNil(t, stored.FinishedAt)
}

func TestGameFindByLobbyAbsent(t *testing.T) {
	conn := newTestDB(t)

	game, err := NewSQLiteGameRepository().FindByLobby(context.Background(), conn, "missing123")
	require.NoError(t, err)
	assert.Nil(t, game)
}

func TestParticipantDuplicateConflicts(t *testing.T) {
	conn := newTestDB(t)
	tournamentRepo := NewSQLiteTournamentRepository()
	participantRepo := NewSQLiteParticipantRepository()
	ctx := context.Background()

	playerID := createTestPlayer(t, conn, "joiner")
	tournament := &models.Tournament{
		Name:            "conflict check",
		MaxParticipants: 4,
		Status:          models.TournamentStatusOpen,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, tournamentRepo.Create(ctx, conn, tournament))

	entry := &models.Participant{TournamentID: tournament.ID, UserID: playerID, JoinedAt: time.Now().UTC()}
	require.NoError(t, participantRepo.Insert(ctx, conn, entry))

	dup := &models.Participant{TournamentID: tournament.ID, UserID: playerID, JoinedAt: time.Now().UTC()}
	err := participantRepo.Insert(ctx, conn, dup)
	assert.ErrorIs(t, err, ErrParticipantConflict)

	count, err := participantRepo.CountByTournament(ctx, conn, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTournamentFinish(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteTournamentRepository()
	ctx := context.Background()

	winnerID := createTestPlayer(t, conn, "champion")
	tournament := &models.Tournament{
		Name:            "finish check",
		MaxParticipants: 2,
		Status:          models.TournamentStatusOngoing,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, conn, tournament))

	finishedAt := time.Now().UTC()
	require.NoError(t, repo.Finish(ctx, conn, tournament.ID, winnerID, finishedAt))

	stored, err := repo.GetByID(ctx, conn, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusFinished, stored.Status)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, winnerID, *stored.WinnerID)
	require.NotNil(t, stored.FinishedAt)
}

func TestResetOrphanedPlaying(t *testing.T) {
	conn := newTestDB(t)
	playerRepo := NewSQLitePlayerRepository()
	gameRepo := NewSQLiteGameRepository()
	ctx := context.Background()

	orphanID := createTestPlayer(t, conn, "orphan")
	liveID1 := createTestPlayer(t, conn, "in-game-1")
	liveID2 := createTestPlayer(t, conn, "in-game-2")

	require.NoError(t, playerRepo.UpdateStatus(ctx, conn, models.PlayerStatusPlaying, orphanID, liveID1, liveID2))
	game := &models.Game{
		Player1ID: liveID1,
		Player2ID: liveID2,
		Status:    models.GameStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, gameRepo.Create(ctx, conn, game))

	reset, err := playerRepo.ResetOrphanedPlaying(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)

	orphan, err := playerRepo.GetByID(ctx, conn, orphanID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusIdle, orphan.Status)

	live, err := playerRepo.GetByID(ctx, conn, liveID1)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusPlaying, live.Status)
}
