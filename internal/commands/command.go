package commands

import (
	"context"

	"github.com/open-builders/giveaway-bot/internal/features/dialogue"
)

type Command interface {
	Name() string
	Aliases() []string
	Handle(ctx context.Context, c *Context) error
}

// Context is what a command sees of the message that invoked it.
type Context struct {
	Event dialogue.Event
	Out   Replier

	Raw  string
	Args []string
}

// Reply answers in the channel the command came from.
func (c *Context) Reply(ctx context.Context, content string) error {
	_, err := c.Out.Send(ctx, c.Event.ChannelID, content)
	return err
}

// Replier posts a message to a channel.
type Replier interface {
	Send(ctx context.Context, channelID, content string) (string, error)
}
