package db

import "context"

// Client defines the database interface
type Client interface {
	Close() error

	GetSettings(ctx context.Context, chatID int64) (*Settings, error)
	SetSettings(ctx context.Context, settings *Settings) error

	// Gag audit trail, append-only. Never consulted for moderation
	// decisions; the in-memory store owns those.
	AddGagEvent(ctx context.Context, event *GagEvent) error
	ListGagEvents(ctx context.Context, chatID int64, limit int) ([]*GagEvent, error)
}
