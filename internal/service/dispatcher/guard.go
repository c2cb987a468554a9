package dispatcher

import (
	"strings"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

const minGuardedLine = 8

// checkOutbound refuses text that repeats a system note, in full or any of
// its longer lines.
func checkOutbound(text string, notes []core.MemoryEntry) error {
	lower := strings.ToLower(text)
	for _, n := range notes {
		content := strings.TrimSpace(n.Content)
		if content == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(content)) {
			return &core.PolicyViolation{EntryID: n.ID}
		}
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimSpace(line)
			if len(line) >= minGuardedLine && strings.Contains(lower, strings.ToLower(line)) {
				return &core.PolicyViolation{EntryID: n.ID}
			}
		}
	}
	return nil
}
