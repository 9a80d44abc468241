package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robertrinh/transcendence-sub001/brackets"
	"github.com/robertrinh/transcendence-sub001/models"
	"github.com/robertrinh/transcendence-sub001/notify"
	"github.com/robertrinh/transcendence-sub001/repositories"
	"golang.org/x/sync/errgroup"
)

// JoinOutcome is the result of a tournament join. Started is true when this
// join filled the roster and the bracket was generated in the same
// transaction.
type JoinOutcome struct {
	Tournament *models.Tournament  `json:"tournament"`
	Started    bool                `json:"started"`
	Games      []*models.Game      `json:"games,omitempty"`
	Entry      *models.Participant `json:"participant"`
}

// ResultOutcome describes what a recorded result led to: waiting on sibling
// games, a freshly paired next round, or tournament completion.
type ResultOutcome struct {
	Game               *models.Game   `json:"game"`
	RoundComplete      bool           `json:"round_complete"`
	TournamentFinished bool           `json:"tournament_finished"`
	NextGames          []*models.Game `json:"next_games,omitempty"`
	ChampionID         *int           `json:"champion_id,omitempty"`
	Message            string         `json:"message"`
}

// TournamentDetail bundles everything a bracket view needs.
type TournamentDetail struct {
	Tournament   *models.Tournament    `json:"tournament"`
	Participants []*models.Participant `json:"participants"`
	Games        []*models.Game        `json:"games"`
}

// TournamentService builds single-elimination brackets from fixed rosters,
// advances winners round by round and detects completion. Round N+1 games are
// created only once every round-N game has finished.
type TournamentService struct {
	conn            *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	gameRepo        repositories.GameRepository
	playerRepo      repositories.PlayerRepository
	games           *GameService
	generator       brackets.Generator
	notifier        notify.Notifier
	logger          *slog.Logger
}

func NewTournamentService(
	conn *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	gameRepo repositories.GameRepository,
	playerRepo repositories.PlayerRepository,
	games *GameService,
	generator brackets.Generator,
	notifier notify.Notifier,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		conn:            conn,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		gameRepo:        gameRepo,
		playerRepo:      playerRepo,
		games:           games,
		generator:       generator,
		notifier:        notifier,
		logger:          logger,
	}
}

var _ bracketAdvancer = (*TournamentService)(nil)

// Create opens a tournament and auto-joins the creator.
func (s *TournamentService) Create(ctx context.Context, name string, maxParticipants, creatorID int) (*models.Tournament, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if !brackets.ValidBracketSize(maxParticipants) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBracketSize, maxParticipants)
	}

	tournament := &models.Tournament{
		Name:            name,
		MaxParticipants: maxParticipants,
		Status:          models.TournamentStatusOpen,
		CreatedAt:       time.Now().UTC(),
	}

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.Create(ctx, tx, tournament); err != nil {
			return err
		}
		creator := &models.Participant{
			TournamentID: tournament.ID,
			UserID:       creatorID,
			JoinedAt:     time.Now().UTC(),
		}
		return s.participantRepo.Insert(ctx, tx, creator)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("max_participants", maxParticipants),
		slog.Int("creator_id", creatorID))
	return tournament, nil
}

// Join registers a user. The join that fills the roster triggers the bracket
// start synchronously, inside the same transaction.
func (s *TournamentService) Join(ctx context.Context, tournamentID, userID int) (*JoinOutcome, error) {
	var outcome *JoinOutcome
	var events []pendingEvent

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.TournamentStatusOpen {
			return fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotOpen, tournamentID, tournament.Status)
		}

		count, err := s.participantRepo.CountByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if count >= tournament.MaxParticipants {
			return fmt.Errorf("%w: tournament %d", ErrTournamentFull, tournamentID)
		}

		participant := &models.Participant{
			TournamentID: tournamentID,
			UserID:       userID,
			JoinedAt:     time.Now().UTC(),
		}
		if err := s.participantRepo.Insert(ctx, tx, participant); err != nil {
			if errors.Is(err, repositories.ErrParticipantConflict) {
				return fmt.Errorf("%w: user %d, tournament %d", ErrAlreadyJoined, userID, tournamentID)
			}
			return err
		}

		outcome = &JoinOutcome{Tournament: tournament, Entry: participant}
		if count+1 < tournament.MaxParticipants {
			return nil
		}

		games, startEvents, err := s.startTournamentTx(ctx, tx, tournament)
		if err != nil {
			return err
		}
		events = startEvents
		outcome.Started = true
		outcome.Games = games
		return nil
	})
	if err != nil {
		return nil, err
	}

	dispatch(s.notifier, events)
	return outcome, nil
}

// startTournamentTx pairs the full roster in join order into round-1 games
// and flips the tournament to ongoing.
func (s *TournamentService) startTournamentTx(ctx context.Context, tx *sql.Tx,
	tournament *models.Tournament) ([]*models.Game, []pendingEvent, error) {

	participants, err := s.participantRepo.ListByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return nil, nil, err
	}

	userIDs := make([]int, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}

	pairs, err := s.generator.PairRound(userIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pair round 1 of tournament %d: %w", tournament.ID, err)
	}

	round := 1
	games := make([]*models.Game, 0, len(pairs))
	for _, pair := range pairs {
		game, err := s.games.CreateGameTx(ctx, tx, pair.Player1ID, pair.Player2ID, nil, &tournament.ID, &round)
		if err != nil {
			return nil, nil, err
		}
		games = append(games, game)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournament.ID, models.TournamentStatusOngoing); err != nil {
		return nil, nil, err
	}
	tournament.Status = models.TournamentStatusOngoing

	s.logger.Info("tournament started",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("participants", len(participants)),
		slog.Int("round_1_games", len(games)))

	events := []pendingEvent{{
		userIDs: userIDs,
		event: notify.NewEvent(notify.EventTournamentStarted, map[string]interface{}{
			"tournament": tournament,
			"games":      games,
		}),
	}}
	return games, events, nil
}

// RecordResult finishes a tournament game and advances the bracket: it waits
// for sibling games, pairs round winners in game-creation order, or declares
// the champion.
func (s *TournamentService) RecordResult(ctx context.Context, tournamentID, gameID,
	scorePlayer1, scorePlayer2, winnerID int) (*ResultOutcome, error) {

	var outcome *ResultOutcome
	var events []pendingEvent

	err := withTx(ctx, s.conn, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		game, err := s.gameRepo.GetByID(ctx, tx, gameID)
		if err != nil {
			return err
		}

		outcome, events, err = s.recordResultTx(ctx, tx, tournament, game,
			scorePlayer1, scorePlayer2, winnerID, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	dispatch(s.notifier, events)
	return outcome, nil
}

// advanceTx lets GameService.FinishGame hand a tournament game over to the
// bracket engine inside its own transaction.
func (s *TournamentService) advanceTx(ctx context.Context, tx *sql.Tx, game *models.Game,
	scorePlayer1, scorePlayer2, winnerID int, finishedAt time.Time) (*ResultOutcome, []pendingEvent, error) {

	tournament, err := s.tournamentRepo.GetByID(ctx, tx, *game.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	return s.recordResultTx(ctx, tx, tournament, game, scorePlayer1, scorePlayer2, winnerID, finishedAt)
}

func (s *TournamentService) recordResultTx(ctx context.Context, tx *sql.Tx,
	tournament *models.Tournament, game *models.Game,
	scorePlayer1, scorePlayer2, winnerID int, finishedAt time.Time) (*ResultOutcome, []pendingEvent, error) {

	if game.TournamentID == nil || *game.TournamentID != tournament.ID {
		return nil, nil, fmt.Errorf("%w: game %d, tournament %d", ErrGameNotInTournament, game.ID, tournament.ID)
	}
	if tournament.Status != models.TournamentStatusOngoing {
		return nil, nil, fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotOngoing, tournament.ID, tournament.Status)
	}

	if err := s.games.finishGameRowTx(ctx, tx, game, scorePlayer1, scorePlayer2, winnerID, finishedAt); err != nil {
		return nil, nil, err
	}

	// the loser drops to idle now; the winner stays 'playing' until paired
	// into the next round or declared champion
	loserID := game.Opponent(winnerID)
	if err := s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusIdle, loserID); err != nil {
		return nil, nil, err
	}

	roundGames, err := s.gameRepo.ListByTournament(ctx, tx, tournament.ID, game.Round)
	if err != nil {
		return nil, nil, err
	}

	// winners collected in game-creation order seed the next round
	winners := make([]int, 0, len(roundGames))
	for _, g := range roundGames {
		if g.Status != models.GameStatusFinished {
			outcome := &ResultOutcome{Game: game, Message: "waiting for the remaining games in this round"}
			return outcome, nil, nil
		}
		winners = append(winners, *g.WinnerID)
	}

	if len(winners) == 1 {
		return s.finishTournamentTx(ctx, tx, tournament, game, winnerID, finishedAt)
	}

	pairs, err := s.generator.PairRound(winners)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pair round %d of tournament %d: %w", *game.Round+1, tournament.ID, err)
	}

	nextRound := *game.Round + 1
	nextGames := make([]*models.Game, 0, len(pairs))
	events := make([]pendingEvent, 0, len(pairs))
	for _, pair := range pairs {
		next, err := s.games.CreateGameTx(ctx, tx, pair.Player1ID, pair.Player2ID, nil, &tournament.ID, &nextRound)
		if err != nil {
			return nil, nil, err
		}
		nextGames = append(nextGames, next)
		events = append(events, pendingEvent{
			userIDs: []int{pair.Player1ID, pair.Player2ID},
			event:   notify.NewEvent(notify.EventNextRound, next),
		})
	}

	s.logger.Info("tournament round complete",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("round", *game.Round),
		slog.Int("next_round_games", len(nextGames)))

	outcome := &ResultOutcome{
		Game:          game,
		RoundComplete: true,
		NextGames:     nextGames,
		Message:       "next round in tournament ready",
	}
	return outcome, events, nil
}

func (s *TournamentService) finishTournamentTx(ctx context.Context, tx *sql.Tx,
	tournament *models.Tournament, game *models.Game, championID int, finishedAt time.Time) (*ResultOutcome, []pendingEvent, error) {

	if err := s.tournamentRepo.Finish(ctx, tx, tournament.ID, championID, finishedAt); err != nil {
		return nil, nil, err
	}
	if err := s.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusIdle, championID); err != nil {
		return nil, nil, err
	}
	tournament.Status = models.TournamentStatusFinished
	tournament.WinnerID = &championID
	tournament.FinishedAt = &finishedAt

	participants, err := s.participantRepo.ListByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return nil, nil, err
	}
	userIDs := make([]int, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}

	s.logger.Info("tournament finished",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("winner_id", championID))

	events := []pendingEvent{{
		userIDs: userIDs,
		event:   notify.NewEvent(notify.EventTournamentFinished, tournament),
	}}
	outcome := &ResultOutcome{
		Game:               game,
		RoundComplete:      true,
		TournamentFinished: true,
		ChampionID:         &championID,
		Message:            "tournament finished",
	}
	return outcome, events, nil
}

// Leave removes a participant. Only open tournaments can be left; departure
// from a running bracket is rejected rather than treated as a forfeit.
func (s *TournamentService) Leave(ctx context.Context, tournamentID, userID int) error {
	return withTx(ctx, s.conn, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.TournamentStatusOpen {
			return fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotOpen, tournamentID, tournament.Status)
		}
		return s.participantRepo.Delete(ctx, tx, tournamentID, userID)
	})
}

// Delete removes a tournament outright; participants and linked games go with
// it via cascade. Administrative surface only.
func (s *TournamentService) Delete(ctx context.Context, tournamentID int) error {
	return withTx(ctx, s.conn, func(tx *sql.Tx) error {
		return s.tournamentRepo.Delete(ctx, tx, tournamentID)
	})
}

// Get loads the tournament, its participants and its games concurrently.
func (s *TournamentService) Get(ctx context.Context, tournamentID int) (*TournamentDetail, error) {
	detail := &TournamentDetail{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tournament, err := s.tournamentRepo.GetByID(ctx, s.conn, tournamentID)
		if err != nil {
			return err
		}
		detail.Tournament = tournament
		return nil
	})
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(ctx, s.conn, tournamentID)
		if err != nil {
			return err
		}
		detail.Participants = participants
		return nil
	})
	g.Go(func() error {
		games, err := s.gameRepo.ListByTournament(ctx, s.conn, tournamentID, nil)
		if err != nil {
			return err
		}
		detail.Games = games
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *TournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx, s.conn)
}
