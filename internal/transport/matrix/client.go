// Package matrix connects the dispatcher to a single Matrix room.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/conversation"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
	"github.com/Alpha200/ha-ai-tasker/pkg/retry"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev core.TriggerEvent) core.RunOutcome
}

// Client logs in with a password and listens to one room. Every message is
// buffered. All but the client's own echoes are answered, including those
// from the system account.
type Client struct {
	cfg        *config.MatrixConfig
	client     *mautrix.Client
	dispatcher Dispatcher
	buffer     *conversation.Buffer
	sender     *Sender
	retrier    *retry.Retrier

	self      id.UserID
	room      id.RoomID
	startedAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewClient(cfg *config.MatrixConfig, dispatcher Dispatcher, buffer *conversation.Buffer) (*Client, error) {
	self := id.UserID(cfg.UserID)
	cli, err := mautrix.NewClient(cfg.Homeserver, self, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create matrix client: %w", err)
	}

	c := &Client{
		cfg:        cfg,
		client:     cli,
		dispatcher: dispatcher,
		buffer:     buffer,
		retrier:    retry.NewDefaultRetrier(),
		self:       self,
		room:       id.RoomID(cfg.RoomID),
		startedAt:  time.Now(),
	}
	// Sent messages come back through sync and are buffered there.
	c.sender = NewSender(cli, c.room, nil, string(self))
	return c, nil
}

// Sender delivers dispatcher notifications to the configured room.
func (c *Client) Sender() *Sender {
	return c.sender
}

func (c *Client) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "matrix")
	logger := log.FromCtx(ctx)
	c.client.Log = logger.With().Logger()

	err := c.retrier.Do(ctx, func() error {
		_, err := c.client.Login(ctx, &mautrix.ReqLogin{
			Type: mautrix.AuthTypePassword,
			Identifier: mautrix.UserIdentifier{
				Type: mautrix.IdentifierTypeUser,
				User: string(c.self),
			},
			Password:         c.cfg.Password,
			StoreCredentials: true,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("matrix login failed: %w", err)
	}

	if err := c.join(ctx); err != nil {
		return err
	}

	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected matrix syncer %T", c.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, func(_ context.Context, evt *event.Event) {
		c.handleEvent(ctx, evt)
	})

	syncCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.retrier.Supervise(syncCtx, "matrix-sync", c.client.SyncWithContext)
	}()

	logger.Info().Str("room", string(c.room)).Str("user", string(c.self)).Msg("matrix client started")
	return nil
}

// join enters the configured room, retrying transient homeserver errors.
func (c *Client) join(ctx context.Context) error {
	err := c.retrier.Do(ctx, func() error {
		_, err := c.client.JoinRoomByID(ctx, c.room)
		if errors.Is(err, mautrix.MForbidden) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to join room %s: %w", c.room, err)
	}
	return nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.client.StopSync()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// accept filters events to text messages in our room sent after startup.
func (c *Client) accept(evt *event.Event) (*event.MessageEventContent, bool) {
	if evt == nil || evt.RoomID != c.room {
		return nil, false
	}
	if time.UnixMilli(evt.Timestamp).Before(c.startedAt) {
		return nil, false
	}
	msg := evt.Content.AsMessage()
	if msg == nil || strings.TrimSpace(msg.Body) == "" {
		return nil, false
	}
	switch msg.MsgType {
	case event.MsgText, event.MsgNotice:
		return msg, true
	default:
		return nil, false
	}
}

func (c *Client) handleEvent(ctx context.Context, evt *event.Event) {
	msg, ok := c.accept(evt)
	if !ok {
		return
	}

	cm := core.ConversationMessage{
		SenderID:   string(evt.Sender),
		Body:       msg.Body,
		ReceivedAt: time.UnixMilli(evt.Timestamp),
	}
	c.buffer.Append(cm)

	// Our own posts are context, not questions.
	if evt.Sender == c.self {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		out := c.dispatcher.Dispatch(ctx, core.TriggerEvent{
			Kind:       core.TriggerChat,
			Payload:    cm.Body,
			Room:       string(c.room),
			SenderID:   cm.SenderID,
			ReceivedAt: cm.ReceivedAt,
		})
		if out.Outcome != core.OutcomeError {
			return
		}

		log.FromCtx(ctx).Error().Str("detail", out.Detail).Msg("chat run failed")
		if err := c.sender.Send(context.WithoutCancel(ctx), core.ApologyMessage); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msg("failed to send apology")
		}
	}()
}
