package core

import (
	"context"
	"time"
)

// AIProvider is the reasoning component.
type AIProvider interface {
	Chat(ctx context.Context, history []Message) (Message, error)
}

// Sender delivers plain text to the configured chat room.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Location is the last known geofence state.
type Location struct {
	Place     string    `json:"place"`
	Entered   bool      `json:"entered"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LocationProvider interface {
	Current(ctx context.Context) (Location, error)
}

type Weather struct {
	Condition     string  `json:"condition"`
	TemperatureC  float64 `json:"temperature_c"`
	Precipitation float64 `json:"precipitation_mm"`
	Anomalous     bool    `json:"anomalous"`
}

type WeatherProvider interface {
	Current(ctx context.Context) (*Weather, error)
}

type CalendarEvent struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type CalendarProvider interface {
	Upcoming(ctx context.Context, from, to time.Time) ([]CalendarEvent, error)
}

// ChatRequest is what the responder sees when answering a chat message.
type ChatRequest struct {
	Message      string
	Sender       string
	Conversation string
	Entries      []VisibleEntry
	Now          time.Time
}

// ChatReply is the answer plus any memories the responder wants stored.
type ChatReply struct {
	Text     string
	Remember []MemoryEntry
}

// Responder answers direct chat messages.
type Responder interface {
	Reply(ctx context.Context, req ChatRequest) (ChatReply, error)
}
