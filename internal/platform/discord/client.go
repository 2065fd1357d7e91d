package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-bot/internal/features/dialogue"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/service"
)

const reactionPageSize = 100

const requiredPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionEmbedLinks

// Client adapts a discordgo session to the giveaway Messenger and the
// dialogue ChannelDirectory.
type Client struct {
	session *discordgo.Session
	logger  zerolog.Logger
}

// New creates a bot session. Call Open to connect.
func New(token string, logger zerolog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	return &Client{
		session: session,
		logger:  logger.With().Str("component", "discord").Logger(),
	}, nil
}

func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	c.logger.Info().Str("user_id", c.SelfID()).Msg("Connected to Discord")
	return nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

// OnMessage delivers every guild message not written by a bot.
func (c *Client) OnMessage(handle func(dialogue.Event)) {
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		handle(dialogue.Event{
			MessageID: m.ID,
			UserID:    m.Author.ID,
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			Content:   m.Content,
		})
	})
}

func (c *Client) SelfID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

func (c *Client) Send(ctx context.Context, channelID, content string) (string, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}
	return msg.ID, nil
}

func (c *Client) Edit(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) Fetch(ctx context.Context, channelID, messageID string) (bool, error) {
	_, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	switch err := mapError(err); {
	case err == nil:
		return true, nil
	case errors.Is(err, service.ErrMessageNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ListEntrants pages through the users who reacted with the entry marker.
func (c *Client) ListEntrants(ctx context.Context, channelID, messageID string) ([]string, error) {
	var (
		ids   []string
		after string
	)
	for {
		users, err := c.session.MessageReactions(channelID, messageID, service.EntryMarker,
			reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
		for _, u := range users {
			if !u.Bot {
				ids = append(ids, u.ID)
			}
		}
		if len(users) < reactionPageSize {
			return ids, nil
		}
		after = users[len(users)-1].ID
	}
}

func (c *Client) AttachEntryMarker(ctx context.Context, channelID, messageID string) error {
	return mapError(c.session.MessageReactionAdd(channelID, messageID, service.EntryMarker, discordgo.WithContext(ctx)))
}

func (c *Client) FindTextChannels(ctx context.Context, guildID, query string) ([]dialogue.Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return MatchChannels(channels, query), nil
}

func (c *Client) CanPost(ctx context.Context, channelID string) (bool, error) {
	perms, err := c.session.UserChannelPermissions(c.SelfID(), channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, mapError(err)
	}
	return perms&requiredPermissions == requiredPermissions, nil
}

// MatchChannels finds text channels by mention, exact name, case-insensitive
// name, prefix and finally substring. The first tier with any hit wins.
func MatchChannels(channels []*discordgo.Channel, query string) []dialogue.Channel {
	var text []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			text = append(text, ch)
		}
	}

	if id, ok := mentionID(query); ok {
		return collect(text, func(ch *discordgo.Channel) bool { return ch.ID == id })
	}

	lower := strings.ToLower(query)
	tiers := []func(ch *discordgo.Channel) bool{
		func(ch *discordgo.Channel) bool { return ch.Name == query },
		func(ch *discordgo.Channel) bool { return strings.EqualFold(ch.Name, query) },
		func(ch *discordgo.Channel) bool { return strings.HasPrefix(strings.ToLower(ch.Name), lower) },
		func(ch *discordgo.Channel) bool { return strings.Contains(strings.ToLower(ch.Name), lower) },
	}
	for _, match := range tiers {
		if found := collect(text, match); len(found) > 0 {
			return found
		}
	}
	return nil
}

func collect(channels []*discordgo.Channel, match func(*discordgo.Channel) bool) []dialogue.Channel {
	var out []dialogue.Channel
	for _, ch := range channels {
		if match(ch) {
			out = append(out, dialogue.Channel{ID: ch.ID, Name: ch.Name})
		}
	}
	return out
}

func mentionID(query string) (string, bool) {
	if strings.HasPrefix(query, "<#") && strings.HasSuffix(query, ">") {
		return strings.TrimSuffix(strings.TrimPrefix(query, "<#"), ">"), true
	}
	return "", false
}

// mapError turns a deleted message (404) or a channel the bot can no longer
// see (403 Missing Access) into service.ErrMessageNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch {
		case restErr.Response.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %v", service.ErrMessageNotFound, err)
		case restErr.Response.StatusCode == http.StatusForbidden &&
			restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %v", service.ErrMessageNotFound, err)
		}
	}
	return err
}
