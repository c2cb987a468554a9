package core

import "time"

const (
	ServiceName    = "HA AI Tasker"
	ServiceVersion = "0.2.0"
	UserAgent      = "HA-AI-Tasker/0.2"
	RepositoryURL  = "https://github.com/Alpha200/ha-ai-tasker"

	// ApologyMessage is sent to the chat room instead of error details.
	ApologyMessage = "Sorry, I encountered an unexpected error."
)

// Message roles used when talking to the reasoning component.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage is one chat message as seen by the listener.
type ConversationMessage struct {
	SenderID   string    `json:"sender_id"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Message is a single chat turn exchanged with the reasoning component.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
