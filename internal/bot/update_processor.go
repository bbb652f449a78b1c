package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gagbot/internal/config"
)

// UpdateTimeout drops replayed or backlogged updates after downtime instead
// of acting on stale moderation commands.
const UpdateTimeout = 1 * time.Hour

type UpdateProcessor struct {
	s              Service
	updateHandlers []Handler
}

var registeredHandlers = make(map[string]Handler)

func RegisterUpdateHandler(title string, handler Handler) {
	registeredHandlers[title] = handler
}

func NewUpdateProcessor(s Service) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0)
	for _, handlerName := range config.Get().EnabledHandlers {
		if _, ok := registeredHandlers[handlerName]; !ok || registeredHandlers[handlerName] == nil {
			log.Warnf("no registered handler: %s", handlerName)
			continue
		}
		enabledHandlers = append(enabledHandlers, registeredHandlers[handlerName])
	}

	return &UpdateProcessor{
		s:              s,
		updateHandlers: enabledHandlers,
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var updateTime time.Time
	switch {
	case u.Message != nil:
		updateTime = time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil:
		updateTime = time.Unix(int64(u.EditedMessage.Date), 0)
	default:
		updateTime = time.Now()
	}

	if time.Since(updateTime) > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_time": updateTime,
			"age":         time.Since(updateTime),
		}).Debug("Skipping outdated update")
		return nil
	}

	chat := u.FromChat()
	user := u.SentFrom()

	for _, handler := range up.updateHandlers {
		if handler == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			proceed, err := handler.Handle(ctx, u, chat, user)
			if err != nil {
				return errors.WithMessage(err, "handling error")
			}
			if !proceed {
				log.Trace("not proceeding")
				return nil
			}
		}
	}
	return nil
}

const (
	pollRetryDelay    = 3 * time.Second
	pollRetryDelayMax = time.Minute
)

// GetUpdatesChans long-polls the bot API and feeds updates into the returned
// channel. Transient poll failures are retried with growing delay, so the
// feed only ends when ctx is cancelled.
func GetUpdatesChans(ctx context.Context, bot *api.BotAPI, config api.UpdateConfig) api.UpdatesChannel {
	ch := make(chan api.Update, bot.Buffer)

	go func() {
		defer close(ch)
		retryDelay := pollRetryDelay
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			updates, err := bot.GetUpdates(config)
			if err != nil {
				log.WithError(err).WithField("retry_in", retryDelay).Error("bot api get updates error")
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryDelay):
				}
				if retryDelay *= 2; retryDelay > pollRetryDelayMax {
					retryDelay = pollRetryDelayMax
				}
				continue
			}
			retryDelay = pollRetryDelay

			for _, update := range updates {
				if update.UpdateID >= config.Offset {
					config.Offset = update.UpdateID + 1
					select {
					case ch <- update:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch
}

func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = user.FirstName + " " + user.LastName
		userName = strings.TrimSpace(userName)
	}
	return userName
}
