package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

var _ core.MemoryStore = (*MemoryStore)(nil)

// MemoryStore keeps entries on a remote MCP memory server. Tool names come
// from config so any server exposing the four operations can be used.
type MemoryStore struct {
	caller Caller
	tools  config.MCPConfig
	now    func() time.Time
}

func NewMemoryStore(caller Caller, tools config.MCPConfig) *MemoryStore {
	return &MemoryStore{caller: caller, tools: tools, now: time.Now}
}

// wireEntry accepts the field spellings memory servers commonly use.
type wireEntry struct {
	ID            json.RawMessage `json:"id"`
	Type          string          `json:"type"`
	MemoryType    string          `json:"memory_type"`
	Content       string          `json:"content"`
	CreatedAt     string          `json:"created_at"`
	ModifiedAt    string          `json:"modified_at"`
	RelevanceDate string          `json:"relevance_date"`
	Intent        string          `json:"intent"`
	Place         string          `json:"place"`
	Recurrence    string          `json:"recurrence"`
	Deadline      string          `json:"deadline"`
	Flagged       bool            `json:"flagged"`
	LastNotified  string          `json:"last_notified"`
}

func (w wireEntry) toEntry() core.MemoryEntry {
	t := w.Type
	if t == "" {
		t = w.MemoryType
	}
	return core.MemoryEntry{
		ID:            rawID(w.ID),
		Type:          core.EntryType(strings.ToLower(t)),
		Content:       w.Content,
		CreatedAt:     parseTime(w.CreatedAt),
		ModifiedAt:    parseTime(w.ModifiedAt),
		RelevanceDate: w.RelevanceDate,
		Intent:        w.Intent,
		Place:         w.Place,
		Recurrence:    w.Recurrence,
		Deadline:      w.Deadline,
		Flagged:       w.Flagged,
		LastNotified:  w.LastNotified,
	}
}

// rawID accepts string and numeric ids.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func entryArgs(e core.MemoryEntry) map[string]any {
	args := map[string]any{
		"type":    string(e.Type),
		"content": e.Content,
	}
	for k, v := range map[string]string{
		"relevance_date": e.RelevanceDate,
		"intent":         e.Intent,
		"place":          e.Place,
		"recurrence":     e.Recurrence,
		"deadline":       e.Deadline,
		"last_notified":  e.LastNotified,
	} {
		if v != "" {
			args[k] = v
		}
	}
	if e.Flagged {
		args["flagged"] = true
	}
	if !e.CreatedAt.IsZero() {
		args["created_at"] = e.CreatedAt.Format(time.RFC3339)
	}
	if !e.ModifiedAt.IsZero() {
		args["modified_at"] = e.ModifiedAt.Format(time.RFC3339)
	}
	return args
}

func (s *MemoryStore) Create(ctx context.Context, entry core.MemoryEntry) (core.MemoryEntry, error) {
	if !entry.Type.Valid() {
		return core.MemoryEntry{}, &core.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", entry.Type)}
	}
	now := s.now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ModifiedAt.IsZero() {
		entry.ModifiedAt = entry.CreatedAt
	}

	out, err := callText(ctx, s.caller, s.tools.CreateTool, entryArgs(entry))
	if err != nil {
		return core.MemoryEntry{}, err
	}

	var created wireEntry
	if err := json.Unmarshal([]byte(out), &created); err == nil && rawID(created.ID) != "" {
		entry.ID = rawID(created.ID)
	} else if id := strings.Trim(out, "\" \n"); id != "" && !strings.ContainsAny(id, " {}") {
		entry.ID = id
	} else {
		return core.MemoryEntry{}, fmt.Errorf("create memory: no id in reply %q", out)
	}
	return entry, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]core.MemoryEntry, error) {
	out, err := callText(ctx, s.caller, s.tools.ListTool, map[string]any{})
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var items []wireEntry
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		var wrapped struct {
			Memories []wireEntry `json:"memories"`
		}
		if err2 := json.Unmarshal([]byte(out), &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode memories: %w", err)
		}
		items = wrapped.Memories
	}

	logger := log.FromCtx(ctx)
	entries := make([]core.MemoryEntry, 0, len(items))
	for _, it := range items {
		e := it.toEntry()
		if e.ID == "" {
			logger.Warn().Str("content", e.Content).Msg("skipping memory without id")
			continue
		}
		// Entries written by other clients may carry their own types.
		if !e.Type.Valid() {
			logger.Warn().Str("id", e.ID).Str("type", string(e.Type)).Msg("unknown memory type, treating as fact")
			e.Type = core.EntryFact
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *MemoryStore) Update(ctx context.Context, entry core.MemoryEntry) error {
	if entry.ID == "" {
		return &core.ValidationError{Field: "id", Reason: "missing"}
	}
	if entry.ModifiedAt.IsZero() {
		entry.ModifiedAt = s.now()
	}
	args := entryArgs(entry)
	args["id"] = entry.ID
	_, err := callText(ctx, s.caller, s.tools.UpdateTool, args)
	return err
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	_, err := callText(ctx, s.caller, s.tools.DeleteTool, map[string]any{"id": id})
	return err
}
