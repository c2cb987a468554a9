package memory

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an and are at be by do for from i in is it me my of on or please remind
		reminder remember should that the this to today tomorrow up we with you your
		am an auf bei das dem den der die ein eine einen erinnere erinnern für heute
		ich im in ist mich mir morgen mit noch nicht um und von zu zum zur`) {
		stopwords[w] = struct{}{}
	}
}

// IntentSignature reduces text to a canonical token set so that two phrasings
// of the same reminder compare equal.
func IntentSignature(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) < 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

// EntrySignature prefers the explicit intent over the content.
func EntrySignature(e core.MemoryEntry) string {
	if e.Intent != "" {
		return IntentSignature(e.Intent)
	}
	return IntentSignature(e.Content)
}

func VisibleSignature(e core.VisibleEntry) string {
	if e.Intent != "" {
		return IntentSignature(e.Intent)
	}
	return IntentSignature(e.Content)
}

// dateKey is the calendar day part of an absolute date, "" when absent.
func dateKey(value string) string {
	if len(value) >= len(DateLayout) && IsAbsolute(value) {
		return value[:len(DateLayout)]
	}
	return ""
}
