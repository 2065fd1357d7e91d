package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/giveaway-bot/internal/common/errors"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/service"
)

// ErrSessionActive is returned when the user already runs a creation dialogue
// in the same channel.
var ErrSessionActive = errors.New("dialogue: a creation session is already active")

// ErrCannotPost is returned when the bot may not post giveaways in a channel.
var ErrCannotPost = errors.New("dialogue: missing permissions in channel")

const DefaultTimeout = 2 * time.Minute

const (
	cancelNotice   = "\n\n`Giveaway creation has been cancelled.`"
	channelPrompt  = "\n\n`Please type the name of a channel in this server.`"
	durationPrompt = "\n\n`Please enter the duration of the giveaway in seconds.`\n`Alternatively, enter a duration in minutes and include an M at the end.`"
	winnersPrompt  = "\n\n`Please enter a number of winners between 1 and 15.`"
	prizePrompt    = "\n\n`Please enter the giveaway prize. This will also begin the giveaway.`"
)

// State is a step of the creation dialogue.
type State int

const (
	AwaitChannel State = iota
	AwaitDuration
	AwaitWinnerCount
	AwaitPrize
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case AwaitChannel:
		return "await_channel"
	case AwaitDuration:
		return "await_duration"
	case AwaitWinnerCount:
		return "await_winner_count"
	case AwaitPrize:
		return "await_prize"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel is a text channel a giveaway can be posted in.
type Channel struct {
	ID   string
	Name string
}

// ChannelDirectory resolves channel names within a guild.
type ChannelDirectory interface {
	FindTextChannels(ctx context.Context, guildID, query string) ([]Channel, error)
	// CanPost reports whether the bot can read, send and embed in the channel.
	CanPost(ctx context.Context, channelID string) (bool, error)
}

// Starter registers a freshly announced giveaway.
type Starter interface {
	Start(ctx context.Context, g *models.Giveaway) error
}

type sessionKey struct {
	userID    string
	channelID string
}

type session struct {
	id        string
	userID    string
	guildID   string
	channelID string

	state    State
	target   Channel
	duration time.Duration
	winners  int
}

func (s *session) matches(ev Event) bool {
	return ev.UserID == s.userID && ev.ChannelID == s.channelID
}

// Manager runs creation dialogues. A user has at most one session per
// channel at a time.
type Manager struct {
	waiter    *Waiter
	messenger service.Messenger
	directory ChannelDirectory
	starter   Starter
	clock     clockwork.Clock
	timeout   time.Duration
	logger    zerolog.Logger

	mu       sync.Mutex
	sessions map[sessionKey]string

	wg sync.WaitGroup
}

func NewManager(
	waiter *Waiter,
	messenger service.Messenger,
	directory ChannelDirectory,
	starter Starter,
	clock clockwork.Clock,
	timeout time.Duration,
	logger zerolog.Logger,
) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		waiter:    waiter,
		messenger: messenger,
		directory: directory,
		starter:   starter,
		clock:     clock,
		timeout:   timeout,
		logger:    logger.With().Str("component", "dialogue").Logger(),
		sessions:  make(map[sessionKey]string),
	}
}

// Dispatch hands an inbound message to the waiting dialogue step, if any.
func (m *Manager) Dispatch(ev Event) bool {
	return m.waiter.Dispatch(ev)
}

// StartCreation opens a session for userID in channelID and runs it in the
// background until it completes, is cancelled or times out.
func (m *Manager) StartCreation(ctx context.Context, userID, guildID, channelID string) error {
	key := sessionKey{userID: userID, channelID: channelID}

	m.mu.Lock()
	if _, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		m.reply(ctx, channelID, "You are already setting up a giveaway here! Finish it or type `cancel` first.")
		return ErrSessionActive
	}
	s := &session{
		id:        uuid.NewString(),
		userID:    userID,
		guildID:   guildID,
		channelID: channelID,
		state:     AwaitChannel,
	}
	m.sessions[key] = s.id
	m.mu.Unlock()

	m.logger.Info().Str("session_id", s.id).Str("user_id", userID).Str("channel_id", channelID).Msg("Creation dialogue started")
	m.reply(ctx, channelID, "Alright! Let's set up your giveaway! First, what channel do you want the giveaway in?\n"+
		"You can type `cancel` at any time to cancel creation."+channelPrompt)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(key)
		m.run(ctx, s)
	}()
	return nil
}

// Wait blocks until every running session has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Active is the number of running sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) release(key sessionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

func (m *Manager) run(ctx context.Context, s *session) {
	log := m.logger.With().Str("session_id", s.id).Logger()

	for s.state != Completed && s.state != Cancelled {
		ev, err := m.waiter.Wait(ctx, s.matches, m.timeout)
		switch {
		case errors.Is(err, ErrDialogueTimeout):
			m.reply(ctx, s.channelID, fmt.Sprintf("Uh oh! You took longer than %s to respond, <@%s>!%s",
				service.FormatDuration(m.timeout), s.userID, cancelNotice))
			log.Info().Err(apperrors.Wrap(err, apperrors.ErrCodeTimeout, "dialogue timed out")).
				Stringer("state", s.state).Msg("Creation dialogue timed out")
			s.state = Cancelled
			return
		case err != nil:
			log.Debug().Err(err).Msg("Creation dialogue aborted")
			s.state = Cancelled
			return
		}

		if IsCancel(ev.Content) {
			m.reply(ctx, s.channelID, "Alright, I guess we're not having a giveaway after all..."+cancelNotice)
			log.Info().Err(apperrors.New(apperrors.ErrCodeCancelled, "cancelled by user")).
				Stringer("state", s.state).Msg("Creation dialogue cancelled")
			s.state = Cancelled
			return
		}

		prev := s.state
		s.state = m.step(ctx, s, ev.Content)
		log.Debug().Stringer("from", prev).Stringer("to", s.state).Msg("Dialogue step")
	}
}

func (m *Manager) step(ctx context.Context, s *session, content string) State {
	switch s.state {
	case AwaitChannel:
		return m.stepChannel(ctx, s, content)
	case AwaitDuration:
		return m.stepDuration(ctx, s, content)
	case AwaitWinnerCount:
		return m.stepWinners(ctx, s, content)
	case AwaitPrize:
		return m.stepPrize(ctx, s, content)
	default:
		return s.state
	}
}

func (m *Manager) stepChannel(ctx context.Context, s *session, content string) State {
	query := ChannelQuery(content)
	channels, err := m.directory.FindTextChannels(ctx, s.guildID, query)
	if err != nil {
		m.logger.Warn().Err(apperrors.NewTransportError("find channels", err)).Str("session_id", s.id).Msg("Channel lookup failed")
		m.reply(ctx, s.channelID, "Hm, I couldn't look up channels right now. Try again!"+channelPrompt)
		return AwaitChannel
	}

	switch len(channels) {
	case 0:
		m.reply(ctx, s.channelID, fmt.Sprintf("Uh oh, I couldn't find any channels called '%s'! Try again!%s", query, channelPrompt))
		return AwaitChannel
	case 1:
	default:
		m.reply(ctx, s.channelID, "Oh... there are multiple channels with that name. Please be more specific!"+channelPrompt)
		return AwaitChannel
	}

	target := channels[0]
	ok, err := m.directory.CanPost(ctx, target.ID)
	if err != nil || !ok {
		m.reply(ctx, s.channelID, fmt.Sprintf("Erm, I can't read, write, or embed links in <#%s>. Please fix this and then try again.%s",
			target.ID, cancelNotice))
		return Cancelled
	}

	s.target = target
	m.reply(ctx, s.channelID, fmt.Sprintf("Sweet! The giveaway will be in <#%s>! Next, how long should the giveaway last?%s",
		target.ID, durationPrompt))
	return AwaitDuration
}

func (m *Manager) stepDuration(ctx context.Context, s *session, content string) State {
	d, err := ParseDuration(content)
	switch {
	case errors.Is(err, ErrNotANumber):
		m.reply(ctx, s.channelID, "Hm. I can't seem to get a number from that. Can you try again?"+durationPrompt)
		return AwaitDuration
	case err != nil:
		m.reply(ctx, s.channelID, "Oh! Sorry! Giveaways need to be at least 10 seconds long, and can't be _too_ long. Mind trying again?"+durationPrompt)
		return AwaitDuration
	}

	s.duration = d
	m.reply(ctx, s.channelID, fmt.Sprintf("Neat! This giveaway will last %s! Now, how many winners should there be?%s",
		service.FormatDuration(d), winnersPrompt))
	return AwaitWinnerCount
}

func (m *Manager) stepWinners(ctx context.Context, s *session, content string) State {
	n, err := ParseWinnerCount(content)
	switch {
	case errors.Is(err, ErrNotANumber):
		m.reply(ctx, s.channelID, "Uh... that doesn't look like a valid number."+winnersPrompt)
		return AwaitWinnerCount
	case err != nil:
		m.reply(ctx, s.channelID, "Hey! I can only support 1 to 15 winners!"+winnersPrompt)
		return AwaitWinnerCount
	}

	s.winners = n
	m.reply(ctx, s.channelID, fmt.Sprintf("Ok! %d winners it is! Finally, what do you want to give away?%s", n, prizePrompt))
	return AwaitPrize
}

func (m *Manager) stepPrize(ctx context.Context, s *session, content string) State {
	prize, err := ValidatePrize(content)
	if err != nil {
		m.reply(ctx, s.channelID, "Ack! That prize is too long. Can you shorten it a bit?"+prizePrompt)
		return AwaitPrize
	}

	log := m.logger.With().Str("session_id", s.id).Str("target_channel_id", s.target.ID).Logger()
	messageID, err := m.launch(ctx, s.target.ID, s.duration, s.winners, prize)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to start giveaway")
		m.reply(ctx, s.channelID, "Uh oh. Something went wrong and I wasn't able to start the giveaway."+cancelNotice)
		return Cancelled
	}

	m.reply(ctx, s.channelID, fmt.Sprintf("Done! The giveaway for the `%s` is starting in <#%s>!", prize, s.target.ID))
	log.Info().Str("message_id", messageID).Msg("Creation dialogue completed")
	return Completed
}

// StartNow announces and starts a giveaway in channelID without a dialogue.
// It returns ErrCannotPost when the bot lacks permission in that channel.
func (m *Manager) StartNow(ctx context.Context, channelID string, d time.Duration, winners int, prize string) (string, error) {
	ok, err := m.directory.CanPost(ctx, channelID)
	if err != nil {
		return "", apperrors.NewTransportError("check permissions", err)
	}
	if !ok {
		return "", ErrCannotPost
	}
	messageID, err := m.launch(ctx, channelID, d, winners, prize)
	if err != nil {
		return "", err
	}
	m.logger.Info().Str("channel_id", channelID).Str("message_id", messageID).Msg("Giveaway started without dialogue")
	return messageID, nil
}

// launch posts the announcement, attaches the entry marker and registers the
// giveaway. A failed marker is only logged.
func (m *Manager) launch(ctx context.Context, channelID string, d time.Duration, winners int, prize string) (string, error) {
	sendCtx, cancel := context.WithTimeout(ctx, service.OperationTimeout)
	messageID, err := m.messenger.Send(sendCtx, channelID, service.AnnouncementHeader)
	cancel()
	if err != nil {
		return "", apperrors.NewTransportError("send", err)
	}

	markerCtx, cancel := context.WithTimeout(ctx, service.OperationTimeout)
	if err := m.messenger.AttachEntryMarker(markerCtx, channelID, messageID); err != nil {
		m.logger.Warn().Err(err).Str("message_id", messageID).Msg("Failed to attach entry marker")
	}
	cancel()

	g, err := models.New(channelID, messageID, m.clock.Now().Add(d), prize, winners)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "build giveaway")
	}
	if err := m.starter.Start(ctx, g); err != nil {
		return "", err
	}
	return messageID, nil
}

// reply is best effort; a lost prompt leaves the session waiting until the
// user answers or it times out.
func (m *Manager) reply(ctx context.Context, channelID, content string) {
	ctx, cancel := context.WithTimeout(ctx, service.OperationTimeout)
	defer cancel()
	if _, err := m.messenger.Send(ctx, channelID, content); err != nil {
		m.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to send dialogue reply")
	}
}
