package telegram

import (
	"context"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/conversation"
	"github.com/Alpha200/ha-ai-tasker/pkg/conv"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

var _ core.Sender = (*Sender)(nil)

// Sender posts to one chat and records what it sent in the conversation
// buffer, so later runs can see it.
type Sender struct {
	bot        *tele.Bot
	chat       tele.Recipient
	buffer     *conversation.Buffer
	systemUser string
}

func NewSender(bot *tele.Bot, chatID int64, buffer *conversation.Buffer, systemUser string) *Sender {
	return &Sender{
		bot:        bot,
		chat:       &tele.Chat{ID: chatID},
		buffer:     buffer,
		systemUser: systemUser,
	}
}

func (s *Sender) Send(ctx context.Context, text string) error {
	if err := s.sendMarkdown(ctx, s.chat, text, false); err != nil {
		return err
	}
	if s.buffer != nil {
		s.buffer.Append(core.ConversationMessage{
			SenderID:   s.systemUser,
			Body:       text,
			ReceivedAt: time.Now(),
		})
	}
	return nil
}

// sendMarkdown converts Markdown to Telegram HTML and sends it in chunks if needed.
func (s *Sender) sendMarkdown(ctx context.Context, to tele.Recipient, md string, silent bool) error {
	logger := log.FromCtx(ctx)
	html := strings.TrimSpace(conv.MarkdownToTelegramHTML(md))

	chunks := splitHTML(html, maxTelegramMsgLen)
	for i, chunk := range chunks {
		opts := []interface{}{tele.ModeHTML}
		if silent && i == 0 {
			opts = append(opts, tele.Silent)
		}

		if _, err := s.bot.Send(to, chunk, opts...); err != nil {
			logger.Error().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("failed to send telegram chunk")
			return err
		}
	}
	return nil
}

// splitHTML splits text into chunks respecting Telegram's limit.
// It tries to split at newlines to preserve formatting.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		// Try to find a good break point (newline) in the second half of the chunk
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}
