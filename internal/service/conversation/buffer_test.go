package conversation

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

func msg(sender, body string, at time.Time) core.ConversationMessage {
	return core.ConversationMessage{SenderID: sender, Body: body, ReceivedAt: at}
}

func TestBuffer_EvictsOldest(t *testing.T) {
	b := NewBuffer(5, "", "")
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 7; i++ {
		b.Append(msg("@alice:example.org", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	got := b.Context(10, false)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Recent conversation history:", lines[0])
	assert.Equal(t, []string{
		"alice: m3", "alice: m4", "alice: m5", "alice: m6", "alice: m7",
	}, lines[1:])
	assert.NotContains(t, got, "m1")
	assert.NotContains(t, got, "m2")
}

func TestBuffer_ContextLimitAndTimestamps(t *testing.T) {
	b := NewBuffer(10, "@tasker:example.org", "")
	base := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	b.Append(msg("@alice:example.org", "first", base))
	b.Append(msg("@tasker:example.org", "reminder", base.Add(time.Minute)))
	b.Append(msg("@alice:example.org", "thanks", base.Add(2*time.Minute)))

	got := b.Context(2, true)
	assert.Equal(t, "Recent conversation history:\n"+
		"[2024-05-01 09:31] system: reminder\n"+
		"[2024-05-01 09:32] alice: thanks", got)
}

func TestBuffer_EmptyContext(t *testing.T) {
	b := NewBuffer(3, "", "")
	assert.Equal(t, "", b.Context(5, true))
	assert.Empty(t, b.Messages(5))
}

func TestBuffer_Role(t *testing.T) {
	b := NewBuffer(3, "tasker", "")
	assert.Equal(t, "system", b.Role("@tasker:matrix.org"))
	assert.Equal(t, "bob", b.Role("@bob:matrix.org"))
	assert.Equal(t, "carol", b.Role("carol"))
}

func TestBuffer_SentWithin(t *testing.T) {
	b := NewBuffer(5, "tasker", "tasker")
	now := time.Now()
	b.Append(msg("@tasker:x", "Take out the trash", now.Add(-3*time.Hour)))
	b.Append(msg("@tasker:x", "Water the plants", now.Add(-30*time.Minute)))
	b.Append(msg("@alice:x", "Buy milk", now.Add(-10*time.Minute)))

	eq := func(want string) func(string) bool {
		return func(body string) bool { return body == want }
	}
	since := now.Add(-2 * time.Hour)
	assert.True(t, b.SentWithin(since, eq("Water the plants")))
	assert.False(t, b.SentWithin(since, eq("Take out the trash")))
	assert.False(t, b.SentWithin(since, eq("Buy milk")))
}

func TestBuffer_SentWithinCountsOwnAndSystemAccounts(t *testing.T) {
	b := NewBuffer(10, "@homeassistant:example.org", "@tasker:example.org")
	now := time.Now()
	b.Append(msg("@tasker:example.org", "Water the plants", now.Add(-20*time.Minute)))
	b.Append(msg("@homeassistant:example.org", "Garage door left open", now.Add(-15*time.Minute)))
	b.Append(msg("@alice:example.org", "Buy milk", now.Add(-10*time.Minute)))

	eq := func(want string) func(string) bool {
		return func(body string) bool { return body == want }
	}
	since := now.Add(-2 * time.Hour)
	assert.True(t, b.SentWithin(since, eq("Water the plants")))
	assert.True(t, b.SentWithin(since, eq("Garage door left open")))
	assert.False(t, b.SentWithin(since, eq("Buy milk")))

	assert.Equal(t, "assistant", b.Role("@tasker:example.org"))
	assert.Equal(t, "system", b.Role("@homeassistant:example.org"))
}

func TestBuffer_ConcurrentAppend(t *testing.T) {
	b := NewBuffer(DefaultCapacity, "", "")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Append(msg("u", fmt.Sprintf("%d", i), time.Time{}))
			_ = b.Context(DefaultContext, true)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, DefaultCapacity, b.Len())
}
