package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

type fakeAI struct {
	reply string
	err   error
	seen  []core.Message
}

func (f *fakeAI) Chat(_ context.Context, history []core.Message) (core.Message, error) {
	f.seen = history
	if f.err != nil {
		return core.Message{}, f.err
	}
	return core.Message{Role: core.RoleAssistant, Content: f.reply}, nil
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestReply_JSON(t *testing.T) {
	ai := &fakeAI{reply: "```json\n{\"reply\":\"Noted!\",\"remember\":[{\"type\":\"fact\",\"content\":\"Dentist\",\"relevance_date\":\"tomorrow 15:00\"},{\"content\":\"  \"}]}\n```"}
	a := NewAgent(ai, nil, "", time.UTC)

	out, err := a.Reply(context.Background(), core.ChatRequest{
		Message: "remind me of the dentist tomorrow at 3",
		Entries: []core.VisibleEntry{{ID: "1", Type: core.EntryFact, Content: "Buy milk", Place: "supermarket"}},
		Now:     now,
	})
	require.NoError(t, err)
	assert.Equal(t, "Noted!", out.Text)
	require.Len(t, out.Remember, 1)
	assert.Equal(t, "Dentist", out.Remember[0].Content)
	assert.Equal(t, "tomorrow 15:00", out.Remember[0].RelevanceDate)

	var prompt string
	for _, m := range ai.seen {
		prompt += m.Content + "\n"
	}
	assert.Contains(t, prompt, "Buy milk")
	assert.Contains(t, prompt, "@supermarket")
	assert.Contains(t, prompt, "2024-05-01T12:00:00Z")
	assert.Equal(t, "remind me of the dentist tomorrow at 3", ai.seen[len(ai.seen)-1].Content)
}

func TestReply_PlainTextFallback(t *testing.T) {
	a := NewAgent(&fakeAI{reply: "Sure, happy to help."}, nil, "", time.UTC)
	out, err := a.Reply(context.Background(), core.ChatRequest{Message: "hi", Now: now})
	require.NoError(t, err)
	assert.Equal(t, "Sure, happy to help.", out.Text)
	assert.Empty(t, out.Remember)
}

func TestReply_Error(t *testing.T) {
	a := NewAgent(&fakeAI{err: errors.New("boom")}, nil, "", time.UTC)
	_, err := a.Reply(context.Background(), core.ChatRequest{Message: "hi", Now: now})
	assert.ErrorContains(t, err, "boom")
}

func TestReply_Profile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProfileFile), []byte("Lives in Berlin"), 0o600))

	ai := &fakeAI{reply: `{"reply":"ok"}`}
	a := NewAgent(ai, nil, dir, time.UTC)
	_, err := a.Reply(context.Background(), core.ChatRequest{Message: "hi", Now: now})
	require.NoError(t, err)

	found := false
	for _, m := range ai.seen {
		if m.Content == "ABOUT THE USER:\nLives in Berlin" {
			found = true
		}
	}
	assert.True(t, found)
}

type halfBudget struct{}

func (halfBudget) Fit(msgs []core.Message) []core.Message {
	return msgs[len(msgs)-1:]
}

func TestReply_BudgetApplied(t *testing.T) {
	ai := &fakeAI{reply: `{"reply":"ok"}`}
	a := NewAgent(ai, halfBudget{}, "", time.UTC)
	_, err := a.Reply(context.Background(), core.ChatRequest{Message: "hi", Conversation: "history", Now: now})
	require.NoError(t, err)
	assert.Len(t, ai.seen, 1)
}
