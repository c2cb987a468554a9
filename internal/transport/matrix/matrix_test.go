package matrix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/conversation"
	"github.com/Alpha200/ha-ai-tasker/pkg/retry"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []core.TriggerEvent
}

func (r *recordingDispatcher) Dispatch(_ context.Context, ev core.TriggerEvent) core.RunOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return core.RunOutcome{Outcome: core.OutcomeSuccess}
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

const (
	room   = id.RoomID("!home:example.org")
	self   = id.UserID("@tasker:example.org")
	system = id.UserID("@homeassistant:example.org")
	owner  = id.UserID("@alice:example.org")
)

func newTestClient(d Dispatcher) *Client {
	return &Client{
		dispatcher: d,
		buffer:     conversation.NewBuffer(10, string(system), string(self)),
		self:       self,
		room:       room,
		startedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func textEvent(sender id.UserID, roomID id.RoomID, at time.Time, body string) *event.Event {
	return &event.Event{
		Sender:    sender,
		RoomID:    roomID,
		Type:      event.EventMessage,
		Timestamp: at.UnixMilli(),
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    body,
		}},
	}
}

func TestClient_Accept(t *testing.T) {
	c := newTestClient(nil)
	after := c.startedAt.Add(time.Minute)

	_, ok := c.accept(textEvent(owner, room, after, "hi"))
	assert.True(t, ok)

	_, ok = c.accept(textEvent(owner, "!other:example.org", after, "hi"))
	assert.False(t, ok, "other room")

	_, ok = c.accept(textEvent(owner, room, c.startedAt.Add(-time.Minute), "hi"))
	assert.False(t, ok, "history replay")

	_, ok = c.accept(textEvent(owner, room, after, "   "))
	assert.False(t, ok, "blank")

	_, ok = c.accept(nil)
	assert.False(t, ok)
}

func TestClient_HandleEvent(t *testing.T) {
	d := &recordingDispatcher{}
	c := newTestClient(d)
	after := c.startedAt.Add(time.Minute)

	c.handleEvent(context.Background(), textEvent(system, room, after, "Door opened"))
	c.handleEvent(context.Background(), textEvent(self, room, after, "Reminder: bins"))
	c.handleEvent(context.Background(), textEvent(owner, room, after, "what's next?"))
	c.wg.Wait()

	require.Equal(t, 2, d.count(), "own messages are buffered, not answered")
	payloads := map[string]string{}
	for _, ev := range d.events {
		assert.Equal(t, core.TriggerChat, ev.Kind)
		assert.Equal(t, string(room), ev.Room)
		payloads[ev.SenderID] = ev.Payload
	}
	assert.Equal(t, map[string]string{
		string(system): "Door opened",
		string(owner):  "what's next?",
	}, payloads)

	msgs := c.buffer.Messages(0)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Door opened", msgs[0].Body)
	assert.Equal(t, "Reminder: bins", msgs[1].Body)
	assert.True(t, c.buffer.SentWithin(after.Add(-time.Minute), func(body string) bool {
		return body == "Reminder: bins"
	}))
}

func TestClient_JoinRetriesTransientErrors(t *testing.T) {
	var joins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/join") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if joins.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"errcode":"M_UNKNOWN","error":"busy"}`))
			return
		}
		_, _ = w.Write([]byte(`{"room_id":"` + string(room) + `"}`))
	}))
	defer srv.Close()

	cli, err := mautrix.NewClient(srv.URL, self, "token")
	require.NoError(t, err)
	c := newTestClient(nil)
	c.client = cli
	c.retrier = retry.NewRetrier(&retry.Config{
		MaxRetries:    3,
		BackoffFactor: 2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		Jitter:        time.Millisecond,
	})

	require.NoError(t, c.join(context.Background()))
	assert.Equal(t, int32(2), joins.Load())
}

func TestMessageContent(t *testing.T) {
	c := messageContent("**Hello** there")
	assert.Equal(t, event.MsgText, c.MsgType)
	assert.Equal(t, "Hello there", c.Body)
	assert.Equal(t, event.FormatHTML, c.Format)
	assert.Contains(t, c.FormattedBody, "<strong>Hello</strong>")

	plain := messageContent("just text")
	assert.Empty(t, plain.Format)
}
