package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/open-builders/giveaway-bot/internal/common/errors"
	"github.com/open-builders/giveaway-bot/internal/features/dialogue"
)

// Creator opens an interactive creation session.
type Creator interface {
	StartCreation(ctx context.Context, userID, guildID, channelID string) error
}

// Lifecycle is the part of the giveaway lifecycle commands can drive.
type Lifecycle interface {
	ForceEnd(ctx context.Context, messageID string) error
	Reroll(ctx context.Context, messageID string) ([]string, error)
}

type CreateCommand struct {
	creator Creator
}

func NewCreateCommand(creator Creator) *CreateCommand {
	return &CreateCommand{creator: creator}
}

func (c *CreateCommand) Name() string      { return "create" }
func (c *CreateCommand) Aliases() []string { return []string{"new"} }

func (c *CreateCommand) Handle(ctx context.Context, cc *Context) error {
	err := c.creator.StartCreation(ctx, cc.Event.UserID, cc.Event.GuildID, cc.Event.ChannelID)
	if errors.Is(err, dialogue.ErrSessionActive) {
		return nil
	}
	return err
}

// Launcher starts a giveaway in a channel without a dialogue.
type Launcher interface {
	StartNow(ctx context.Context, channelID string, d time.Duration, winners int, prize string) (string, error)
}

const startUsage = "Usage: `start <duration> [winners]w [prize]`, for example `start 10M 2w Steam key`."

// StartCommand starts a giveaway in the current channel in one message:
// a duration, an optional winner count suffixed with w, then the prize.
type StartCommand struct {
	launcher Launcher
}

func NewStartCommand(launcher Launcher) *StartCommand {
	return &StartCommand{launcher: launcher}
}

func (c *StartCommand) Name() string      { return "start" }
func (c *StartCommand) Aliases() []string { return nil }

func (c *StartCommand) Handle(ctx context.Context, cc *Context) error {
	if len(cc.Args) == 0 {
		return cc.Reply(ctx, startUsage)
	}

	d, err := dialogue.ParseDuration(cc.Args[0])
	switch {
	case errors.Is(err, dialogue.ErrNotANumber):
		return cc.Reply(ctx, "I can't seem to get a duration from `"+cc.Args[0]+"`. "+startUsage)
	case err != nil:
		return cc.Reply(ctx, "Giveaways must last at least 10 seconds and at most 1 week!")
	}

	consumed := 2
	winners := 1
	if len(cc.Args) > 1 && isWinnerToken(cc.Args[1]) {
		winners, err = dialogue.ParseWinnerCount(cc.Args[1][:len(cc.Args[1])-1])
		if err != nil {
			return cc.Reply(ctx, "Hey! I can only support 1 to 15 winners!")
		}
		consumed++
	}

	prize, err := dialogue.ValidatePrize(skipFields(cc.Raw, consumed))
	if err != nil {
		return cc.Reply(ctx, "Ack! That prize is too long. Can you shorten it a bit?")
	}

	_, err = c.launcher.StartNow(ctx, cc.Event.ChannelID, d, winners, prize)
	if errors.Is(err, dialogue.ErrCannotPost) {
		return cc.Reply(ctx, "Hey! I can't start a giveaway here. I need to be able to read, write and embed links in this channel.")
	}
	if err != nil {
		return replyFailure(ctx, cc, err, "")
	}
	return nil
}

// isWinnerToken matches a count like "3w".
func isWinnerToken(arg string) bool {
	if len(arg) < 2 || (arg[len(arg)-1] != 'w' && arg[len(arg)-1] != 'W') {
		return false
	}
	for _, r := range arg[:len(arg)-1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// skipFields drops the first n whitespace-separated fields of raw and keeps
// the rest verbatim.
func skipFields(raw string, n int) string {
	rest := strings.TrimSpace(raw)
	for i := 0; i < n && rest != ""; i++ {
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			return ""
		}
		rest = strings.TrimLeftFunc(rest[idx:], unicode.IsSpace)
	}
	return rest
}

type EndCommand struct {
	lifecycle Lifecycle
}

func NewEndCommand(lifecycle Lifecycle) *EndCommand {
	return &EndCommand{lifecycle: lifecycle}
}

func (c *EndCommand) Name() string      { return "end" }
func (c *EndCommand) Aliases() []string { return []string{"stop"} }

func (c *EndCommand) Handle(ctx context.Context, cc *Context) error {
	messageID, ok := messageArg(cc)
	if !ok {
		return cc.Reply(ctx, "Please include the message ID of the giveaway to end.")
	}
	if err := c.lifecycle.ForceEnd(ctx, messageID); err != nil {
		return replyFailure(ctx, cc, err, "I couldn't find an active giveaway with message ID `"+messageID+"`.")
	}
	return nil
}

type RerollCommand struct {
	lifecycle Lifecycle
}

func NewRerollCommand(lifecycle Lifecycle) *RerollCommand {
	return &RerollCommand{lifecycle: lifecycle}
}

func (c *RerollCommand) Name() string      { return "reroll" }
func (c *RerollCommand) Aliases() []string { return nil }

func (c *RerollCommand) Handle(ctx context.Context, cc *Context) error {
	messageID, ok := messageArg(cc)
	if !ok {
		return cc.Reply(ctx, "Please include the message ID of the giveaway to reroll.")
	}
	if _, err := c.lifecycle.Reroll(ctx, messageID); err != nil {
		return replyFailure(ctx, cc, err, "I couldn't find an ended giveaway with message ID `"+messageID+"`.")
	}
	return nil
}

func messageArg(cc *Context) (string, bool) {
	if len(cc.Args) == 0 {
		return "", false
	}
	id := strings.TrimSpace(cc.Args[0])
	return id, id != ""
}

// replyFailure tells the user what went wrong. Not-found is an answer, not an
// error; anything else is returned for logging.
func replyFailure(ctx context.Context, cc *Context, err error, notFound string) error {
	if apperrors.CodeOf(err) == apperrors.ErrCodeNotFound {
		return cc.Reply(ctx, notFound)
	}
	if replyErr := cc.Reply(ctx, "Uh oh. Something went wrong, please try again later."); replyErr != nil {
		return fmt.Errorf("%w (reply: %v)", err, replyErr)
	}
	return err
}
