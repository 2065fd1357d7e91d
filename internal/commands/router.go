package commands

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-bot/internal/features/dialogue"
)

// Dispatcher receives every inbound message before command parsing so an
// active dialogue sees its replies.
type Dispatcher interface {
	Dispatch(ev dialogue.Event) bool
}

type Router struct {
	prefix     string
	cmdIndex   map[string]Command
	dispatcher Dispatcher
	out        Replier
	logger     zerolog.Logger
}

func NewRouter(prefix string, dispatcher Dispatcher, out Replier, logger zerolog.Logger) *Router {
	return &Router{
		prefix:     prefix,
		cmdIndex:   make(map[string]Command),
		dispatcher: dispatcher,
		out:        out,
		logger:     logger.With().Str("component", "router").Logger(),
	}
}

func (r *Router) Register(cmd Command) {
	r.cmdIndex[strings.ToLower(cmd.Name())] = cmd
	for _, alias := range cmd.Aliases() {
		r.cmdIndex[strings.ToLower(alias)] = cmd
	}
}

// Handle routes one inbound message. Messages consumed by a waiting dialogue
// are never parsed as commands; unknown commands are ignored.
func (r *Router) Handle(ctx context.Context, ev dialogue.Event) error {
	if r.dispatcher != nil && r.dispatcher.Dispatch(ev) {
		return nil
	}

	text := strings.TrimSpace(ev.Content)
	if text == "" || !strings.HasPrefix(strings.ToLower(text), strings.ToLower(r.prefix)) {
		return nil
	}

	withoutPrefix := strings.TrimSpace(text[len(r.prefix):])
	parts := strings.Fields(withoutPrefix)
	if len(parts) == 0 {
		return nil
	}

	cmd, ok := r.cmdIndex[strings.ToLower(parts[0])]
	if !ok {
		return nil
	}

	r.logger.Debug().Str("command", cmd.Name()).Str("user_id", ev.UserID).Str("channel_id", ev.ChannelID).Msg("Command received")
	return cmd.Handle(ctx, &Context{
		Event: ev,
		Out:   r.out,
		Raw:   withoutPrefix,
		Args:  parts[1:],
	})
}
