package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/robertrinh/transcendence-sub001/notify"
	"github.com/robertrinh/transcendence-sub001/repositories"
)

const lobbyIDLength = 10

// pendingEvent is a notification collected during a transaction and delivered
// only after a successful commit, so clients never learn about rolled-back
// state.
type pendingEvent struct {
	userIDs []int
	event   notify.Event
}

func dispatch(notifier notify.Notifier, events []pendingEvent) {
	for _, pe := range events {
		for _, userID := range pe.userIDs {
			notifier.Notify(userID, pe.event)
		}
	}
}

// withTx runs fn inside a transaction. Rollback on error or panic, commit
// otherwise. Every orchestration operation goes through here so that a fresh
// read of authoritative state and the writes it justifies are atomic.
func withTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		if repositories.IsBusy(err) {
			return fmt.Errorf("%w: %v", ErrTransientStorage, err)
		}
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		if repositories.IsBusy(err) {
			return fmt.Errorf("%w: %v", ErrTransientStorage, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if repositories.IsBusy(err) {
			return fmt.Errorf("%w: %v", ErrTransientStorage, err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// generateLobbyID returns a short shareable lowercase hex code.
func generateLobbyID() (string, error) {
	buf := make([]byte, (lobbyIDLength+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate lobby id: %w", err)
	}
	return hex.EncodeToString(buf)[:lobbyIDLength], nil
}
