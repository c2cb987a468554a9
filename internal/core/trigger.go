package core

import "time"

type TriggerKind string

const (
	TriggerTimer    TriggerKind = "timer"
	TriggerGeofence TriggerKind = "geofence"
	TriggerChat     TriggerKind = "chat"
)

// TriggerEvent starts exactly one dispatcher run and is never persisted.
type TriggerEvent struct {
	Kind    TriggerKind `json:"kind"`
	Payload string      `json:"payload"`
	Place   string      `json:"place,omitempty"`
	// Left is set when a geofence was exited rather than entered.
	Left       bool      `json:"left,omitempty"`
	Room       string    `json:"room,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeNoAction Outcome = "no_action"
	OutcomeError    Outcome = "error"
)

// RunOutcome is the result of one dispatcher run.
type RunOutcome struct {
	Outcome  Outcome  `json:"outcome"`
	Detail   string   `json:"detail"`
	Messages []string `json:"messages,omitempty"`
}
