package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToPlain(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:  "empty",
			input: "   ",
		},
		{
			name:        "list items keep their text",
			input:       "- buy milk\n- call mom",
			contains:    []string{"buy milk", "call mom"},
			notContains: []string{"<li>", "<ul>"},
		},
		{
			name:        "emphasis markers are dropped",
			input:       "**Dentist** at 15:00",
			contains:    []string{"Dentist", "15:00"},
			notContains: []string{"**", "<strong>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownToPlain(tt.input)
			if len(tt.contains) == 0 {
				assert.Empty(t, got)
			}
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
		})
	}
}
