package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/conversation"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const (
	baseContextKey = "base_context"

	// DefaultSystemUser names the bot in the conversation buffer.
	DefaultSystemUser = "tasker"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev core.TriggerEvent) core.RunOutcome
}

type Bot struct {
	bot        *tele.Bot
	cfg        *config.TelegramConfig
	dispatcher Dispatcher
	buffer     *conversation.Buffer
	sender     *Sender
	startedAt  time.Time
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	dispatcher Dispatcher,
	buffer *conversation.Buffer,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	systemUser := cfg.SystemUsername
	if systemUser == "" {
		systemUser = DefaultSystemUser
	}

	bot := &Bot{
		bot:        b,
		cfg:        cfg,
		dispatcher: dispatcher,
		buffer:     buffer,
		sender:     NewSender(b, cfg.ChatID, buffer, systemUser),
		startedAt:  time.Now(),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Middleware: only the owner in the configured chat
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !bot.accept(c.Message()) {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

// Sender delivers dispatcher notifications to the configured chat.
func (b *Bot) Sender() *Sender {
	return b.sender
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Int64("chat_id", b.cfg.ChatID).Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

// accept drops messages from strangers, other chats and messages sent
// before the bot started.
func (b *Bot) accept(m *tele.Message) bool {
	if m == nil || m.Sender == nil || m.Chat == nil {
		return false
	}
	if m.Sender.ID != b.cfg.OwnerID {
		return false
	}
	if m.Chat.ID != b.cfg.ChatID {
		return false
	}
	return !m.Time().Before(b.startedAt.Truncate(time.Second))
}

func senderID(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)

	msg := core.ConversationMessage{
		SenderID:   senderID(c.Sender()),
		Body:       c.Text(),
		ReceivedAt: c.Message().Time(),
	}
	b.buffer.Append(msg)

	// Notify user we are working
	_ = c.Notify(tele.Typing)

	out := b.dispatcher.Dispatch(ctx, core.TriggerEvent{
		Kind:       core.TriggerChat,
		Payload:    msg.Body,
		SenderID:   msg.SenderID,
		ReceivedAt: msg.ReceivedAt,
	})

	if out.Outcome == core.OutcomeError {
		logger.Error().Str("detail", out.Detail).Msg("chat run failed")
		return b.sender.Send(ctx, core.ApologyMessage)
	}
	return nil
}
