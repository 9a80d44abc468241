package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robertrinh/transcendence-sub001/models"
	"github.com/robertrinh/transcendence-sub001/notify"
	"github.com/robertrinh/transcendence-sub001/repositories"
)

const (
	DefaultReapInterval = 15 * time.Second

	publicQueueTimeout = 45 * time.Second
	lobbyQueueTimeout  = 120 * time.Second
	staleGameTimeout   = 2 * time.Minute
)

// Reaper periodically reclaims what crashed or vanished clients leave behind:
// stale queue entries, abandoned games and players stuck in 'playing'. Each
// tick runs in a single transaction so it never races a live matchmaking
// request halfway.
type Reaper struct {
	conn       *sql.DB
	queueRepo  repositories.QueueRepository
	gameRepo   repositories.GameRepository
	playerRepo repositories.PlayerRepository
	games      *GameService
	notifier   notify.Notifier
	logger     *slog.Logger
	interval   time.Duration

	scheduler gocron.Scheduler
}

func NewReaper(
	conn *sql.DB,
	queueRepo repositories.QueueRepository,
	gameRepo repositories.GameRepository,
	playerRepo repositories.PlayerRepository,
	games *GameService,
	notifier notify.Notifier,
	logger *slog.Logger,
	interval time.Duration,
) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{
		conn:       conn,
		queueRepo:  queueRepo,
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		games:      games,
		notifier:   notifier,
		logger:     logger,
		interval:   interval,
	}
}

// Start schedules the periodic sweep. A failing tick is logged and the next
// tick runs as usual; the reaper never takes the process down.
func (r *Reaper) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create reaper scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if tickErr := r.RunTick(context.Background()); tickErr != nil {
				r.logger.Error("reaper tick failed", slog.Any("error", tickErr))
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reaper job: %w", err)
	}

	r.scheduler = scheduler
	scheduler.Start()
	r.logger.Info("reaper started", slog.Duration("interval", r.interval))
	return nil
}

func (r *Reaper) Stop() {
	if r.scheduler == nil {
		return
	}
	if err := r.scheduler.Shutdown(); err != nil {
		r.logger.Error("failed to shut down reaper scheduler", slog.Any("error", err))
	}
}

// RunTick performs one sweep. Exported so tests and the startup path can
// trigger a sweep directly.
func (r *Reaper) RunTick(ctx context.Context) error {
	var events []pendingEvent
	now := time.Now().UTC()

	err := withTx(ctx, r.conn, func(tx *sql.Tx) error {
		if err := r.reapQueueEntriesTx(ctx, tx, now); err != nil {
			return err
		}

		gameEvents, err := r.reapGamesTx(ctx, tx, now)
		if err != nil {
			return err
		}
		events = gameEvents

		reset, err := r.playerRepo.ResetOrphanedPlaying(ctx, tx)
		if err != nil {
			return err
		}
		if reset > 0 {
			r.logger.Warn("reset players stuck in playing with no live game", slog.Int64("count", reset))
		}
		return nil
	})
	if err != nil {
		return err
	}

	dispatch(r.notifier, events)
	return nil
}

func (r *Reaper) reapQueueEntriesTx(ctx context.Context, tx *sql.Tx, now time.Time) error {
	stale, err := r.queueRepo.FindStale(ctx, tx,
		now.Add(-publicQueueTimeout), now.Add(-lobbyQueueTimeout))
	if err != nil {
		return err
	}

	for _, entry := range stale {
		if _, err := r.queueRepo.DeleteByPlayer(ctx, tx, entry.PlayerID); err != nil {
			return err
		}
		if err := r.playerRepo.UpdateStatus(ctx, tx, models.PlayerStatusIdle, entry.PlayerID); err != nil {
			return err
		}
		r.logger.Info("removed stale queue entry",
			slog.Int("player_id", entry.PlayerID),
			slog.Bool("private", entry.IsPrivate()))
	}
	return nil
}

func (r *Reaper) reapGamesTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]pendingEvent, error) {
	stale, err := r.gameRepo.FindStale(ctx, tx, now.Add(-staleGameTimeout))
	if err != nil {
		return nil, err
	}

	var events []pendingEvent
	for _, game := range stale {
		cancelEvents, err := r.games.CancelGameTx(ctx, tx, game)
		if err != nil {
			return nil, err
		}
		events = append(events, cancelEvents...)
		r.logger.Info("cancelled abandoned game",
			slog.Int("game_id", game.ID),
			slog.Time("created_at", game.CreatedAt))
	}
	return events, nil
}
