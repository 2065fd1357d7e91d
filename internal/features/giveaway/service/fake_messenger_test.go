package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/repository"
)

const botID = "bot"

var errTransport = errors.New("transport down")

type sentMessage struct {
	ChannelID string
	Content   string
}

type fakeMessenger struct {
	mu sync.Mutex

	nextID   int
	contents map[string]string
	entrants map[string][]string
	gone     map[string]bool

	sent  []sentMessage
	edits map[string]int

	sendErr  error
	editErr  error
	listErr  error
	fetchErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		contents: make(map[string]string),
		entrants: make(map[string][]string),
		gone:     make(map[string]bool),
		edits:    make(map[string]int),
	}
}

func (m *fakeMessenger) Send(ctx context.Context, channelID, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.nextID++
	id := fmt.Sprintf("m%d", m.nextID)
	m.contents[id] = content
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, Content: content})
	return id, nil
}

func (m *fakeMessenger) Edit(_ context.Context, _, messageID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gone[messageID] {
		return ErrMessageNotFound
	}
	if m.editErr != nil {
		return m.editErr
	}
	m.contents[messageID] = content
	m.edits[messageID]++
	return nil
}

func (m *fakeMessenger) Fetch(_ context.Context, _, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return false, m.fetchErr
	}
	return !m.gone[messageID], nil
}

func (m *fakeMessenger) ListEntrants(ctx context.Context, _, messageID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gone[messageID] {
		return nil, ErrMessageNotFound
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.entrants[messageID]...), nil
}

func (m *fakeMessenger) AttachEntryMarker(context.Context, string, string) error {
	return nil
}

func (m *fakeMessenger) SelfID() string { return botID }

func (m *fakeMessenger) setListErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

func (m *fakeMessenger) setEntrants(messageID string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entrants[messageID] = ids
}

func (m *fakeMessenger) delete(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gone[messageID] = true
}

func (m *fakeMessenger) sentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *fakeMessenger) editCount(messageID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edits[messageID]
}

func (m *fakeMessenger) content(messageID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contents[messageID]
}

type fixture struct {
	clock     *clockwork.FakeClock
	messenger *fakeMessenger
	registry  *repository.Registry
	history   *repository.MemoryHistory
	lifecycle *Lifecycle
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(opts LifecycleOptions) *fixture {
	f := &fixture{
		clock:     clockwork.NewFakeClockAt(epoch),
		messenger: newFakeMessenger(),
		registry:  repository.NewRegistry(),
		history:   repository.NewMemoryHistory(0),
	}
	f.lifecycle = NewLifecycle(f.registry, f.history, f.messenger, NewSelector(nil), f.clock, zerolog.New(io.Discard), opts)
	return f
}

func (f *fixture) giveaway(messageID string, after time.Duration, winners int) *models.Giveaway {
	g, err := models.New("c1", messageID, f.clock.Now().Add(after), "Nitro", winners)
	if err != nil {
		panic(err)
	}
	return g
}
