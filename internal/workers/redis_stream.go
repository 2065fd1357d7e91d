package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	consumerGroup = "giveaway_bot_consumers"
	consumerName  = "giveaway_bot_worker_1"

	readBlock    = 5 * time.Second
	errorBackoff = time.Second
)

// CommandType names an operation that can be requested over the stream.
type CommandType string

const (
	CommandForceEnd CommandType = "force_end"
	CommandReroll   CommandType = "reroll"
)

var ErrMalformedCommand = errors.New("malformed stream command")

// Command is one decoded stream entry.
type Command struct {
	Type      CommandType
	MessageID string
}

// CommandHandler executes commands against the giveaway lifecycle.
type CommandHandler interface {
	ForceEnd(ctx context.Context, messageID string) error
	Reroll(ctx context.Context, messageID string) ([]string, error)
}

// ParseCommand decodes the field map of a stream entry.
func ParseCommand(values map[string]interface{}) (Command, error) {
	typ, _ := values["type"].(string)
	messageID, _ := values["message_id"].(string)
	messageID = strings.TrimSpace(messageID)

	switch CommandType(typ) {
	case CommandForceEnd, CommandReroll:
	default:
		return Command{}, fmt.Errorf("%w: unknown type %q", ErrMalformedCommand, typ)
	}
	if messageID == "" {
		return Command{}, fmt.Errorf("%w: missing message_id", ErrMalformedCommand)
	}
	return Command{Type: CommandType(typ), MessageID: messageID}, nil
}

// CommandStreamWorker consumes operator commands from a redis stream through
// a consumer group. Every entry is acknowledged once handled, including
// malformed ones and ones whose command failed.
type CommandStreamWorker struct {
	rdb     *redis.Client
	stream  string
	handler CommandHandler
	logger  zerolog.Logger
}

func NewCommandStreamWorker(rdb *redis.Client, stream string, handler CommandHandler, logger zerolog.Logger) *CommandStreamWorker {
	return &CommandStreamWorker{
		rdb:     rdb,
		stream:  stream,
		handler: handler,
		logger:  logger.With().Str("component", "command_stream").Str("stream", stream).Logger(),
	}
}

// Start blocks reading the stream until ctx is cancelled.
func (w *CommandStreamWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, w.stream, consumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		w.logger.Error().Err(err).Msg("Failed to create consumer group")
	}

	w.logger.Info().Msg("Starting command stream worker")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping command stream worker")
			return
		default:
		}

		entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{w.stream, ">"},
			Count:    10,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.logger.Warn().Err(err).Msg("Failed to read command stream")
			select {
			case <-time.After(errorBackoff):
			case <-ctx.Done():
			}
			continue
		}

		for _, stream := range entries {
			for _, msg := range stream.Messages {
				w.process(ctx, msg)
				if err := w.rdb.XAck(ctx, w.stream, consumerGroup, msg.ID).Err(); err != nil {
					w.logger.Warn().Err(err).Str("entry_id", msg.ID).Msg("Failed to acknowledge command")
				}
			}
		}
	}
}

func (w *CommandStreamWorker) process(ctx context.Context, msg redis.XMessage) {
	log := w.logger.With().Str("entry_id", msg.ID).Logger()

	cmd, err := ParseCommand(msg.Values)
	if err != nil {
		log.Warn().Err(err).Interface("values", msg.Values).Msg("Dropping stream command")
		return
	}
	log = log.With().Str("type", string(cmd.Type)).Str("message_id", cmd.MessageID).Logger()

	if err := Execute(ctx, w.handler, cmd); err != nil {
		log.Warn().Err(err).Msg("Stream command failed")
		return
	}
	log.Info().Msg("Stream command executed")
}

// Execute runs cmd against h.
func Execute(ctx context.Context, h CommandHandler, cmd Command) error {
	switch cmd.Type {
	case CommandForceEnd:
		return h.ForceEnd(ctx, cmd.MessageID)
	case CommandReroll:
		_, err := h.Reroll(ctx, cmd.MessageID)
		return err
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedCommand, cmd.Type)
	}
}
