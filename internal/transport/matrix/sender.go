package matrix

import (
	"context"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/conversation"
	"github.com/Alpha200/ha-ai-tasker/pkg/conv"
)

var _ core.Sender = (*Sender)(nil)

type Sender struct {
	client *mautrix.Client
	room   id.RoomID
	buffer *conversation.Buffer
	self   string
}

func NewSender(client *mautrix.Client, room id.RoomID, buffer *conversation.Buffer, self string) *Sender {
	return &Sender{client: client, room: room, buffer: buffer, self: self}
}

func (s *Sender) Send(ctx context.Context, text string) error {
	if _, err := s.client.SendMessageEvent(ctx, s.room, event.EventMessage, messageContent(text)); err != nil {
		return err
	}
	if s.buffer != nil {
		s.buffer.Append(core.ConversationMessage{
			SenderID:   s.self,
			Body:       text,
			ReceivedAt: time.Now(),
		})
	}
	return nil
}

// messageContent carries a plain body for old clients and sanitized HTML
// for the rest.
func messageContent(md string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    strings.TrimSpace(conv.MarkdownToPlain(md)),
	}
	if html := strings.TrimSpace(conv.MarkdownToTelegramHTML(md)); html != "" && html != content.Body {
		content.Format = event.FormatHTML
		content.FormattedBody = html
	}
	return content
}
