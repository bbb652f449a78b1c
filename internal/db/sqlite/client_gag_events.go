package sqlite

import (
	"context"
	"time"

	"github.com/iamwavecut/gagbot/internal/db"
)

func (c *sqliteClient) AddGagEvent(ctx context.Context, event *db.GagEvent) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO gag_events (chat_id, user_id, issuer_id, action, duration_seconds, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		event.ChatID,
		event.UserID,
		event.IssuerID,
		event.Action,
		event.DurationSeconds,
		event.ExpiresAt,
		event.CreatedAt,
	)
	return err
}

func (c *sqliteClient) ListGagEvents(ctx context.Context, chatID int64, limit int) ([]*db.GagEvent, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var events []*db.GagEvent
	err := c.db.SelectContext(ctx, &events, `
		SELECT id, chat_id, user_id, issuer_id, action, duration_seconds, expires_at, created_at
		FROM gag_events
		WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}
