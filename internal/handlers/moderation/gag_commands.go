package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	pkgerrors "github.com/pkg/errors"

	"github.com/iamwavecut/gagbot/internal/bot"
	"github.com/iamwavecut/gagbot/internal/db"
	"github.com/iamwavecut/gagbot/internal/i18n"
	"github.com/iamwavecut/gagbot/internal/mute"
	"github.com/iamwavecut/gagbot/internal/observability"
	"github.com/iamwavecut/gagbot/internal/policy/permissions"
)

const (
	minGagDuration     = time.Minute
	maxGagDuration     = 365 * mute.Day
	defaultGagDuration = 2 * time.Minute
)

const (
	usageText         = "Usage:\n/cumcumber [duration] - gag a user for a while, e.g. 10m, 1h 30m, 2w\n/uncumcumber - release a gagged user"
	gagUsageText      = "/cumcumber must be sent as a reply to the message of the person you want to gag. You cannot gag bots or yourself."
	ungagUsageText    = "/uncumcumber must be sent as a reply to the message of the person you want to release."
	refusalText       = "You have no power here."
	gaggedText        = "@{{ .user_name }} is gagged for {{ .duration }}"
	releasedText      = "@{{ .user_name }} was released."
	alreadyGaggedText = "@{{ .user_name }} is already gagged. Don't you think a second gag would be a bit much?"
	notGaggedText     = "@{{ .user_name }} is not gagged. Cannot release the unrestrained."
)

func (g *Gag) handleGag(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	language := g.s.GetLanguage(ctx, chat.ID, user)

	target := moderationTarget(msg, user)
	if target == nil {
		observability.RecordCommand("gag", "precondition_failed")
		return g.reply(ctx, msg, chat, i18n.Get(gagUsageText, language))
	}

	allowed, err := g.authorize(ctx, chat.ID, user.ID, target.ID)
	if err != nil {
		return err
	}
	if !allowed {
		observability.RecordCommand("gag", "unauthorized")
		return g.reply(ctx, msg, chat, i18n.Get(refusalText, language))
	}

	if g.store.IsMuted(target.ID) {
		observability.RecordCommand("gag", "already_gagged")
		text := tool.ExecTemplate(i18n.Get(alreadyGaggedText, language), map[string]any{
			"user_name": bot.GetUN(target),
		})
		return g.reply(ctx, msg, chat, text)
	}

	duration, err := requestedDuration(msg.Text)
	if err != nil {
		observability.RecordCommand("gag", "parse_rejected")
		return g.reply(ctx, msg, chat, i18n.Get(usageText, language))
	}

	expiresAt := g.store.Mute(target.ID, duration)
	observability.RecordCommand("gag", "ok")
	g.recordAudit(ctx, &db.GagEvent{
		ChatID:          chat.ID,
		UserID:          target.ID,
		IssuerID:        user.ID,
		Action:          db.GagActionGag,
		DurationSeconds: int64(duration / time.Second),
		ExpiresAt:       expiresAt,
	})

	text := tool.ExecTemplate(i18n.Get(gaggedText, language), map[string]any{
		"user_name": bot.GetUN(target),
		"duration":  mute.FormatDuration(duration),
	})
	return g.reply(ctx, msg, chat, text)
}

func (g *Gag) handleUngag(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	language := g.s.GetLanguage(ctx, chat.ID, user)

	target := moderationTarget(msg, user)
	if target == nil {
		observability.RecordCommand("ungag", "precondition_failed")
		return g.reply(ctx, msg, chat, i18n.Get(ungagUsageText, language))
	}

	allowed, err := g.authorize(ctx, chat.ID, user.ID, target.ID)
	if err != nil {
		return err
	}
	if !allowed {
		observability.RecordCommand("ungag", "unauthorized")
		return g.reply(ctx, msg, chat, i18n.Get(refusalText, language))
	}

	if !g.store.Unmute(target.ID) {
		observability.RecordCommand("ungag", "not_gagged")
		text := tool.ExecTemplate(i18n.Get(notGaggedText, language), map[string]any{
			"user_name": bot.GetUN(target),
		})
		return g.reply(ctx, msg, chat, text)
	}

	observability.RecordCommand("ungag", "ok")
	g.recordAudit(ctx, &db.GagEvent{
		ChatID:   chat.ID,
		UserID:   target.ID,
		IssuerID: user.ID,
		Action:   db.GagActionUngag,
	})

	text := tool.ExecTemplate(i18n.Get(releasedText, language), map[string]any{
		"user_name": bot.GetUN(target),
	})
	return g.reply(ctx, msg, chat, text)
}

func (g *Gag) replyUsage(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	observability.RecordCommand("unknown", "usage")
	language := g.s.GetLanguage(ctx, chat.ID, user)
	return g.reply(ctx, msg, chat, i18n.Get(usageText, language))
}

func (g *Gag) reply(ctx context.Context, msg *api.Message, chat *api.Chat, text string) error {
	if err := g.tg.SendReply(ctx, chat.ID, msg.MessageID, text); err != nil {
		return pkgerrors.WithMessage(err, "cant send reply")
	}
	return nil
}

func (g *Gag) authorize(ctx context.Context, chatID, senderID, targetID int64) (bool, error) {
	members, err := g.tg.GetAdministrators(ctx, chatID)
	if err != nil {
		return false, pkgerrors.WithMessage(err, "cant fetch administrators")
	}
	return permissions.CanModerate(members, senderID, targetID), nil
}

// moderationTarget validates the command's shape and returns the sender of
// the replied-to message, or nil when any precondition fails: the command
// must be a reply, must carry at least one entity, and must not target the
// sender themselves or a bot. The "Channel" pseudo-account is exempt from
// the bot guard so channel posts stay moderatable.
func moderationTarget(msg *api.Message, sender *api.User) *api.User {
	if len(msg.Entities) < 1 || msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		return nil
	}
	target := msg.ReplyToMessage.From
	if target.ID == sender.ID {
		return nil
	}
	if target.IsBot && !strings.EqualFold(target.FirstName, "Channel") {
		return nil
	}
	return target
}

// requestedDuration parses everything after the command token, split on
// the same delimiter set classify uses. A bare command gags for the fixed
// default; anything outside the sane range is replaced by the default
// rather than rejected.
func requestedDuration(text string) (time.Duration, error) {
	var args string
	if i := strings.IndexAny(text, " \t\n"); i != -1 {
		args = text[i+1:]
	}
	duration, err := mute.ParseDuration(args)
	if err != nil {
		if errors.Is(err, mute.ErrEmptyInput) {
			return defaultGagDuration, nil
		}
		return 0, err
	}
	if duration < minGagDuration || duration > maxGagDuration {
		return defaultGagDuration, nil
	}
	return duration, nil
}
