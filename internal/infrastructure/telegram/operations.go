package telegram

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Operations provides the Telegram operations the moderation core relies on.
type Operations struct {
	bot *api.BotAPI
}

// NewOperations creates a new Operations instance
func NewOperations(bot *api.BotAPI) *Operations {
	return &Operations{bot: bot}
}

// SendReply sends text into a chat as a reply to an existing message.
func (o *Operations) SendReply(ctx context.Context, chatID int64, replyToMessageID int, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := api.NewMessage(chatID, text)
	msg.ReplyParameters.MessageID = replyToMessageID
	msg.ReplyParameters.ChatID = chatID
	msg.ReplyParameters.AllowSendingWithoutReply = true
	if _, err := o.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// DeleteMessage deletes a message from a chat
func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := o.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// GetAdministrators fetches the chat's administrator list, owner included.
func (o *Operations) GetAdministrators(ctx context.Context, chatID int64) ([]api.ChatMember, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	members, err := o.bot.GetChatAdministrators(api.ChatAdministratorsConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat administrators: %w", err)
	}
	return members, nil
}
