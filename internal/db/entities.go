package db

import (
	"time"
)

const (
	GagActionGag     = "gag"
	GagActionUngag   = "ungag"
	GagActionEnforce = "enforce"
)

type (
	Settings struct {
		ID       int64  `db:"id"`
		Enabled  bool   `db:"enabled"`
		Language string `db:"language"`
	}

	// GagEvent is one row of the moderation audit trail.
	GagEvent struct {
		ID              int64     `db:"id"`
		ChatID          int64     `db:"chat_id"`
		UserID          int64     `db:"user_id"`
		IssuerID        int64     `db:"issuer_id"`
		Action          string    `db:"action"`
		DurationSeconds int64     `db:"duration_seconds"`
		ExpiresAt       time.Time `db:"expires_at"`
		CreatedAt       time.Time `db:"created_at"`
	}
)

func DefaultSettings(chatID int64) *Settings {
	return &Settings{
		ID:       chatID,
		Enabled:  true,
		Language: "en",
	}
}
