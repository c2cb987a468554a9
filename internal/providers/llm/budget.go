package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

// perMessageOverhead approximates the role and separator tokens the chat
// format adds around each message.
const perMessageOverhead = 4

var (
	tk     *tiktoken.Tiktoken
	tkOnce sync.Once
)

func getTokenizer() *tiktoken.Tiktoken {
	tkOnce.Do(func() {
		// The encoding may need a download. Without it CountTokens estimates.
		tk, _ = tiktoken.GetEncoding("cl100k_base")
	})
	return tk
}

// CountTokens returns the cl100k token count of text, or an estimate of one
// token per four runes when the encoding is unavailable.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if enc := getTokenizer(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// Budget caps the prompt size sent to the model.
type Budget struct {
	limit int
	count func(string) int
}

func NewBudget(limit int) *Budget {
	return &Budget{limit: limit, count: CountTokens}
}

func (b *Budget) Count(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		total += b.count(m.Content) + perMessageOverhead
	}
	return total
}

// Fit drops the oldest non-system messages until msgs fits the budget. System
// messages and the final message are always kept. A non-positive limit
// disables the budget.
func (b *Budget) Fit(msgs []core.Message) []core.Message {
	if b.limit <= 0 || len(msgs) == 0 || b.Count(msgs) <= b.limit {
		return msgs
	}

	keep := make([]bool, len(msgs))
	total := 0
	for i, m := range msgs {
		if m.Role == core.RoleSystem || i == len(msgs)-1 {
			keep[i] = true
			total += b.count(m.Content) + perMessageOverhead
		}
	}

	// newest first, so the most recent turns survive
	for i := len(msgs) - 2; i >= 0; i-- {
		if keep[i] {
			continue
		}
		cost := b.count(msgs[i].Content) + perMessageOverhead
		if total+cost > b.limit {
			break
		}
		keep[i] = true
		total += cost
	}

	out := make([]core.Message, 0, len(msgs))
	for i, m := range msgs {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}
