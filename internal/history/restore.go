package history

import (
	"context"
	"fmt"

	"relaybot/internal/llm"
)

// Source provides prior dialogue from durable storage. Implemented by
// logstore.Store.
type Source interface {
	DistinctUsersWithHistory(ctx context.Context) ([]int64, error)
	RecentDialogue(ctx context.Context, userID int64, limit int) ([]llm.Message, error)
}

// Restore rebuilds the window of every user with prior dialogue. It runs
// once, before live traffic is accepted; any storage error is returned to the
// caller and should abort startup.
func Restore(ctx context.Context, src Source, m *Manager) error {
	users, err := src.DistinctUsersWithHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users with history: %w", err)
	}
	for _, userID := range users {
		msgs, err := src.RecentDialogue(ctx, userID, WindowSize)
		if err != nil {
			return fmt.Errorf("failed to restore dialogue for user %d: %w", userID, err)
		}
		m.Install(userID, msgs)
	}
	return nil
}
