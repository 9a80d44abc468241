package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertrinh/transcendence-sub001/brackets"
	"github.com/robertrinh/transcendence-sub001/models"
	"github.com/robertrinh/transcendence-sub001/repositories"
)

// fillTournament joins players until the roster is full and returns the
// round-1 games from the join that started the bracket.
func fillTournament(t *testing.T, env *testEnv, tournamentID int, userIDs []int) []*models.Game {
	t.Helper()
	ctx := context.Background()
	for i, userID := range userIDs {
		outcome, err := env.tournaments.Join(ctx, tournamentID, userID)
		require.NoError(t, err)
		if i == len(userIDs)-1 {
			require.True(t, outcome.Started)
			return outcome.Games
		}
		require.False(t, outcome.Started)
	}
	return nil
}

// readyUp flags both participants and leaves the game in the ready state.
func readyUp(t *testing.T, env *testEnv, game *models.Game) {
	t.Helper()
	ctx := context.Background()
	_, err := env.games.SetReady(ctx, game.ID, game.Player1ID)
	require.NoError(t, err)
	_, err = env.games.SetReady(ctx, game.ID, game.Player2ID)
	require.NoError(t, err)
}

func TestCreateTournamentAutoJoinsCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creatorID := env.createPlayer(t, "organizer")

	tournament, err := env.tournaments.Create(ctx, "friday night bracket", 4, creatorID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusOpen, tournament.Status)

	detail, err := env.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, detail.Participants, 1)
	assert.Equal(t, creatorID, detail.Participants[0].UserID)
}

func TestCreateTournamentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creatorID := env.createPlayer(t, "sloppy-organizer")

	_, err := env.tournaments.Create(ctx, "", 4, creatorID)
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = env.tournaments.Create(ctx, "odd bracket", 3, creatorID)
	assert.ErrorIs(t, err, ErrInvalidBracketSize)

	_, err = env.tournaments.Create(ctx, "giant bracket", 32, creatorID)
	assert.ErrorIs(t, err, ErrInvalidBracketSize)

	_, err = env.tournaments.Create(ctx, "lonely bracket", 1, creatorID)
	assert.ErrorIs(t, err, ErrInvalidBracketSize)
}

func TestJoinDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 2)

	tournament, err := env.tournaments.Create(ctx, "dup check", 4, ids[0])
	require.NoError(t, err)

	_, err = env.tournaments.Join(ctx, tournament.ID, ids[1])
	require.NoError(t, err)
	_, err = env.tournaments.Join(ctx, tournament.ID, ids[1])
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestJoinUnknownTournament(t *testing.T) {
	env := newTestEnv(t)
	playerID := env.createPlayer(t, "wanderer")

	_, err := env.tournaments.Join(context.Background(), 9999, playerID)
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)
}

func TestFillingRosterStartsBracket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 4)

	tournament, err := env.tournaments.Create(ctx, "auto start", 4, ids[0])
	require.NoError(t, err)

	games := fillTournament(t, env, tournament.ID, ids[1:])
	require.Len(t, games, 2)

	for _, game := range games {
		assert.Equal(t, models.GameStatusPending, game.Status)
		require.NotNil(t, game.TournamentID)
		assert.Equal(t, tournament.ID, *game.TournamentID)
		require.NotNil(t, game.Round)
		assert.Equal(t, 1, *game.Round)
	}
	// join order seeds the bracket
	assert.Equal(t, ids[0], games[0].Player1ID)
	assert.Equal(t, ids[1], games[0].Player2ID)
	assert.Equal(t, ids[2], games[1].Player1ID)
	assert.Equal(t, ids[3], games[1].Player2ID)

	for _, id := range ids {
		assert.Equal(t, models.PlayerStatusPlaying, env.playerStatus(t, id))
	}

	detail, err := env.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusOngoing, detail.Tournament.Status)
}

func TestTournamentStartClearsQueueEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 3)

	// ids[0] waits in the public pool, then gets pulled into a bracket
	_, err := env.matchmaking.EnqueueRandom(ctx, ids[0])
	require.NoError(t, err)

	tournament, err := env.tournaments.Create(ctx, "pool crossover", 2, ids[1])
	require.NoError(t, err)
	outcome, err := env.tournaments.Join(ctx, tournament.ID, ids[0])
	require.NoError(t, err)
	require.True(t, outcome.Started)

	assert.Equal(t, models.PlayerStatusPlaying, env.playerStatus(t, ids[0]))
	entries, err := env.matchmaking.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "entering a game must consume the player's queue slot")

	// with the stale entry gone, a new searcher waits instead of being
	// paired against a player who is already in a tournament game
	result, err := env.matchmaking.EnqueueRandom(ctx, ids[2])
	require.NoError(t, err)
	assert.False(t, result.Matched)

	require.NoError(t, env.matchmaking.Cancel(ctx, ids[0]))
	assert.Equal(t, models.PlayerStatusPlaying, env.playerStatus(t, ids[0]),
		"cancel after the entry is gone must not reset a game participant")
}

func TestJoinAfterStartRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 3)

	tournament, err := env.tournaments.Create(ctx, "closed door", 2, ids[0])
	require.NoError(t, err)
	fillTournament(t, env, tournament.ID, ids[1:2])

	_, err = env.tournaments.Join(ctx, tournament.ID, ids[2])
	assert.ErrorIs(t, err, ErrTournamentNotOpen)
}

func TestFourPlayerTournamentFullRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 4)

	tournament, err := env.tournaments.Create(ctx, "full run", 4, ids[0])
	require.NoError(t, err)
	round1 := fillTournament(t, env, tournament.ID, ids[1:])
	require.Len(t, round1, 2)

	// first semifinal: bracket waits on the sibling game
	readyUp(t, env, round1[0])
	outcome, err := env.tournaments.RecordResult(ctx, tournament.ID, round1[0].ID, 11, 5, ids[0])
	require.NoError(t, err)
	assert.False(t, outcome.RoundComplete)
	assert.Empty(t, outcome.NextGames)

	assert.Equal(t, models.PlayerStatusIdle, env.playerStatus(t, ids[1]), "loser drops to idle")
	assert.Equal(t, models.PlayerStatusPlaying, env.playerStatus(t, ids[0]), "winner stays playing until paired")

	// second semifinal completes the round and pairs the final
	readyUp(t, env, round1[1])
	outcome, err = env.tournaments.RecordResult(ctx, tournament.ID, round1[1].ID, 7, 11, ids[3])
	require.NoError(t, err)
	require.True(t, outcome.RoundComplete)
	assert.False(t, outcome.TournamentFinished)
	require.Len(t, outcome.NextGames, 1)

	final := outcome.NextGames[0]
	require.NotNil(t, final.Round)
	assert.Equal(t, 2, *final.Round)
	assert.Equal(t, ids[0], final.Player1ID)
	assert.Equal(t, ids[3], final.Player2ID)

	// final declares the champion
	readyUp(t, env, final)
	outcome, err = env.tournaments.RecordResult(ctx, tournament.ID, final.ID, 11, 9, ids[0])
	require.NoError(t, err)
	require.True(t, outcome.TournamentFinished)
	require.NotNil(t, outcome.ChampionID)
	assert.Equal(t, ids[0], *outcome.ChampionID)

	for _, id := range ids {
		assert.Equal(t, models.PlayerStatusIdle, env.playerStatus(t, id))
	}

	detail, err := env.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusFinished, detail.Tournament.Status)
	require.NotNil(t, detail.Tournament.WinnerID)
	assert.Equal(t, ids[0], *detail.Tournament.WinnerID)
	require.NotNil(t, detail.Tournament.FinishedAt)
	assert.Len(t, detail.Games, 3)
}

func TestTwoPlayerTournamentFinishesInOneGame(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 2)

	tournament, err := env.tournaments.Create(ctx, "best of one", 2, ids[0])
	require.NoError(t, err)
	games := fillTournament(t, env, tournament.ID, ids[1:])
	require.Len(t, games, 1)

	readyUp(t, env, games[0])
	outcome, err := env.tournaments.RecordResult(ctx, tournament.ID, games[0].ID, 11, 2, ids[1])
	require.NoError(t, err)

	require.True(t, outcome.TournamentFinished)
	require.NotNil(t, outcome.ChampionID)
	assert.Equal(t, ids[1], *outcome.ChampionID)
	assert.Equal(t, models.PlayerStatusIdle, env.playerStatus(t, ids[0]))
	assert.Equal(t, models.PlayerStatusIdle, env.playerStatus(t, ids[1]))
}

func TestFinishGameRoutesTournamentGamesThroughBracket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 2)

	tournament, err := env.tournaments.Create(ctx, "via game surface", 2, ids[0])
	require.NoError(t, err)
	games := fillTournament(t, env, tournament.ID, ids[1:])
	require.Len(t, games, 1)

	readyUp(t, env, games[0])
	outcome, err := env.games.FinishGame(ctx, games[0].ID, 11, 6, ids[0], time.Now().UTC())
	require.NoError(t, err)

	require.True(t, outcome.TournamentFinished)
	require.NotNil(t, outcome.ChampionID)
	assert.Equal(t, ids[0], *outcome.ChampionID)

	detail, err := env.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusFinished, detail.Tournament.Status)
}

func TestRecordResultGameMustBelongToTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 4)

	tournament, err := env.tournaments.Create(ctx, "strict bracket", 2, ids[0])
	require.NoError(t, err)
	fillTournament(t, env, tournament.ID, ids[1:2])

	outsider := matchPair(t, env, ids[2], ids[3])
	readyUp(t, env, outsider)

	_, err = env.tournaments.RecordResult(ctx, tournament.ID, outsider.ID, 11, 4, ids[2])
	assert.ErrorIs(t, err, ErrGameNotInTournament)
}

func TestRecordResultRequiresOngoingTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 2)

	tournament, err := env.tournaments.Create(ctx, "early result", 2, ids[0])
	require.NoError(t, err)
	games := fillTournament(t, env, tournament.ID, ids[1:])

	readyUp(t, env, games[0])
	_, err = env.tournaments.RecordResult(ctx, tournament.ID, games[0].ID, 11, 2, ids[0])
	require.NoError(t, err)

	// tournament is finished now, replays are rejected
	_, err = env.tournaments.RecordResult(ctx, tournament.ID, games[0].ID, 11, 2, ids[0])
	assert.ErrorIs(t, err, ErrTournamentNotOngoing)
}

func TestLeaveOpenTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 2)

	tournament, err := env.tournaments.Create(ctx, "revolving door", 4, ids[0])
	require.NoError(t, err)
	_, err = env.tournaments.Join(ctx, tournament.ID, ids[1])
	require.NoError(t, err)

	require.NoError(t, env.tournaments.Leave(ctx, tournament.ID, ids[1]))

	detail, err := env.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Participants, 1)

	err = env.tournaments.Leave(ctx, tournament.ID, ids[1])
	assert.ErrorIs(t, err, repositories.ErrParticipantNotFound)
}

func TestLeaveAfterStartRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 2)

	tournament, err := env.tournaments.Create(ctx, "no forfeits", 2, ids[0])
	require.NoError(t, err)
	fillTournament(t, env, tournament.ID, ids[1:])

	err = env.tournaments.Leave(ctx, tournament.ID, ids[1])
	assert.ErrorIs(t, err, ErrTournamentNotOpen)
}

func TestDeleteTournamentCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createPlayers(t, 2)

	tournament, err := env.tournaments.Create(ctx, "doomed bracket", 2, ids[0])
	require.NoError(t, err)
	games := fillTournament(t, env, tournament.ID, ids[1:])
	require.Len(t, games, 1)

	require.NoError(t, env.tournaments.Delete(ctx, tournament.ID))

	_, err = env.tournaments.Get(ctx, tournament.ID)
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)

	_, err = env.games.GetGame(ctx, games[0].ID)
	assert.ErrorIs(t, err, repositories.ErrGameNotFound)
}

func TestBracketSizeBounds(t *testing.T) {
	assert.True(t, brackets.ValidBracketSize(2))
	assert.True(t, brackets.ValidBracketSize(4))
	assert.True(t, brackets.ValidBracketSize(8))
	assert.True(t, brackets.ValidBracketSize(16))
	assert.False(t, brackets.ValidBracketSize(0))
	assert.False(t, brackets.ValidBracketSize(6))
	assert.False(t, brackets.ValidBracketSize(32))
}
