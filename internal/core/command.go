package core

import "context"

// Command is a slash command typed into the chat room.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, room string, args []string) (string, error)
}
