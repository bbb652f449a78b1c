package handlers

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gagbot/internal/bot"
	"github.com/iamwavecut/gagbot/internal/db"
	"github.com/iamwavecut/gagbot/internal/mute"
	"github.com/iamwavecut/gagbot/internal/observability"
)

type command int

const (
	cmdNone command = iota
	cmdGag
	cmdUngag
	cmdUnknown
)

const (
	gagCommand   = "/cumcumber"
	ungagCommand = "/uncumcumber"
)

// messenger is the slice of the Telegram surface the gag handler needs.
type messenger interface {
	SendReply(ctx context.Context, chatID int64, replyToMessageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	GetAdministrators(ctx context.Context, chatID int64) ([]api.ChatMember, error)
}

type auditStore interface {
	AddGagEvent(ctx context.Context, event *db.GagEvent) error
}

// Gag interprets the /cumcumber and /uncumcumber reply-commands and enforces
// gags locally by deleting whatever a gagged user sends before expiry.
type Gag struct {
	s     bot.Service
	tg    messenger
	store *mute.Store
	audit auditStore
}

func NewGag(s bot.Service, tg messenger, store *mute.Store) *Gag {
	g := &Gag{
		s:     s,
		tg:    tg,
		store: store,
		audit: s.GetDB(),
	}
	g.getLogEntry().Debug("created new gag handler")
	return g
}

func (g *Gag) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u == nil {
		return true, nil
	}
	if u.Message == nil {
		g.getLogEntry().Trace("not a message update")
		return true, nil
	}
	if chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message

	settings, err := g.getOrCreateSettings(ctx, chat)
	if err != nil {
		return false, errors.WithMessage(err, "cant load chat settings")
	}
	if settings != nil && !settings.Enabled {
		return true, nil
	}

	switch classify(msg.Text) {
	case cmdNone:
		return g.enforce(ctx, msg, chat, user)
	case cmdGag:
		return false, g.handleGag(ctx, msg, chat, user)
	case cmdUngag:
		return false, g.handleUngag(ctx, msg, chat, user)
	default:
		return false, g.replyUsage(ctx, msg, chat, user)
	}
}

// classify resolves the first whitespace-delimited token, with any
// @botname suffix stripped, into a command tag. Non-command text (including
// captionless media, which has no text at all) maps to cmdNone.
func classify(text string) command {
	if !strings.HasPrefix(text, "/") {
		return cmdNone
	}
	token := text
	if i := strings.IndexAny(token, " \t\n"); i != -1 {
		token = token[:i]
	}
	if at := strings.IndexByte(token, '@'); at != -1 {
		token = token[:at]
	}
	switch token {
	case gagCommand:
		return cmdGag
	case ungagCommand:
		return cmdUngag
	}
	return cmdUnknown
}

// enforce deletes ordinary messages of currently gagged senders. Lapsed
// records are cleared lazily by the store itself.
func (g *Gag) enforce(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) (bool, error) {
	if !g.store.IsMuted(user.ID) {
		return true, nil
	}
	if err := g.tg.DeleteMessage(ctx, chat.ID, msg.MessageID); err != nil {
		return false, errors.WithMessage(err, "cant delete gagged user message")
	}
	observability.RecordEnforcedDeletion()
	g.recordAudit(ctx, &db.GagEvent{
		ChatID: chat.ID,
		UserID: user.ID,
		Action: db.GagActionEnforce,
	})
	return false, nil
}

func (g *Gag) getOrCreateSettings(ctx context.Context, chat *api.Chat) (*db.Settings, error) {
	settings, err := g.s.GetSettings(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = db.DefaultSettings(chat.ID)
		if err := g.s.SetSettings(ctx, settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

func (g *Gag) recordAudit(ctx context.Context, event *db.GagEvent) {
	if g.audit == nil {
		return
	}
	if err := g.audit.AddGagEvent(ctx, event); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Error("cant record audit event")
	}
}

func (g *Gag) getLogEntry() *log.Entry {
	return log.WithField("object", "Gag")
}
