// Package conversation keeps the recent chat activity a run can look back on.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

const (
	DefaultCapacity = 10
	DefaultContext  = 5

	contextHeader   = "Recent conversation history:"
	timestampLayout = "2006-01-02 15:04"
)

// Buffer is a fixed-capacity FIFO of chat messages. The listener appends and
// dispatcher runs read concurrently.
type Buffer struct {
	mu         sync.RWMutex
	items      []core.ConversationMessage
	head       int
	size       int
	systemUser string
	selfUser   string
}

// NewBuffer creates a buffer holding capacity messages. systemUser is the
// account posting automation messages and selfUser the account the agent
// sends from. Either may be empty, and they may be the same account.
func NewBuffer(capacity int, systemUser, selfUser string) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		items:      make([]core.ConversationMessage, capacity),
		systemUser: normalizeSender(systemUser),
		selfUser:   normalizeSender(selfUser),
	}
}

// Append stores msg, evicting the oldest message when full.
func (b *Buffer) Append(msg core.ConversationMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	idx := (b.head + b.size) % len(b.items)
	b.items[idx] = msg
	if b.size < len(b.items) {
		b.size++
		return
	}
	b.head = (b.head + 1) % len(b.items)
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *Buffer) Capacity() int {
	return len(b.items)
}

// Messages returns up to limit most recent messages, oldest first.
func (b *Buffer) Messages(limit int) []core.ConversationMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.recent(limit)
}

func (b *Buffer) recent(limit int) []core.ConversationMessage {
	n := b.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.ConversationMessage, 0, n)
	for i := b.size - n; i < b.size; i++ {
		out = append(out, b.items[(b.head+i)%len(b.items)])
	}
	return out
}

// Context renders the most recent limit messages, newest last. It returns ""
// for an empty buffer.
func (b *Buffer) Context(limit int, withTimestamps bool) string {
	msgs := b.Messages(limit)
	if len(msgs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(contextHeader)
	for _, m := range msgs {
		sb.WriteString("\n")
		if withTimestamps {
			sb.WriteString("[")
			sb.WriteString(m.ReceivedAt.Format(timestampLayout))
			sb.WriteString("] ")
		}
		sb.WriteString(b.Role(m.SenderID))
		sb.WriteString(": ")
		sb.WriteString(m.Body)
	}
	return sb.String()
}

// Role maps a transport sender id to the name shown in the context.
func (b *Buffer) Role(senderID string) string {
	name := normalizeSender(senderID)
	switch {
	case b.systemUser != "" && name == b.systemUser:
		return core.RoleSystem
	case b.selfUser != "" && name == b.selfUser:
		return core.RoleAssistant
	}
	return name
}

// ownMessage reports whether a message with the normalized sender name came
// from the agent's side of the chat. Without configured accounts every
// message counts.
func (b *Buffer) ownMessage(name string) bool {
	if b.systemUser == "" && b.selfUser == "" {
		return true
	}
	return (b.systemUser != "" && name == b.systemUser) || (b.selfUser != "" && name == b.selfUser)
}

// SentWithin reports whether a message sent by the agent or the system
// account since the given time matches text.
func (b *Buffer) SentWithin(since time.Time, match func(body string) bool) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, m := range b.recent(0) {
		if m.ReceivedAt.Before(since) {
			continue
		}
		if !b.ownMessage(normalizeSender(m.SenderID)) {
			continue
		}
		if match(m.Body) {
			return true
		}
	}
	return false
}

// normalizeSender turns "@alice:example.org" into "alice".
func normalizeSender(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "@")
	if i := strings.Index(id, ":"); i >= 0 {
		id = id[:i]
	}
	return id
}
