package dialogue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrDialogueTimeout is returned by Wait when no matching event arrived in time.
var ErrDialogueTimeout = errors.New("dialogue: timed out waiting for a reply")

// Event is one inbound chat message.
type Event struct {
	MessageID string
	UserID    string
	GuildID   string
	ChannelID string
	Content   string
}

// Predicate selects the events a wait is interested in.
type Predicate func(Event) bool

type result struct {
	event Event
	err   error
}

type wait struct {
	id    uint64
	pred  Predicate
	done  chan result
	timer clockwork.Timer
}

// Waiter suspends callers until a matching Event is dispatched or their
// deadline passes. Each wait resolves exactly once: whichever of Dispatch, the
// deadline or context cancellation removes it from the table first decides
// the outcome.
type Waiter struct {
	clock clockwork.Clock

	mu     sync.Mutex
	nextID uint64
	waits  []*wait
}

func NewWaiter(clock clockwork.Clock) *Waiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Waiter{clock: clock}
}

// Wait blocks until an event satisfying pred is dispatched, timeout elapses
// (ErrDialogueTimeout) or ctx is done.
func (w *Waiter) Wait(ctx context.Context, pred Predicate, timeout time.Duration) (Event, error) {
	pending := &wait{pred: pred, done: make(chan result, 1)}

	w.mu.Lock()
	w.nextID++
	pending.id = w.nextID
	w.waits = append(w.waits, pending)
	w.mu.Unlock()

	pending.timer = w.clock.AfterFunc(timeout, func() {
		w.resolve(pending, result{err: ErrDialogueTimeout})
	})

	select {
	case res := <-pending.done:
		pending.timer.Stop()
		return res.event, res.err
	case <-ctx.Done():
		w.resolve(pending, result{err: ctx.Err()})
		res := <-pending.done
		pending.timer.Stop()
		return res.event, res.err
	}
}

// Dispatch offers ev to every pending wait and reports whether any took it.
func (w *Waiter) Dispatch(ev Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	matched := false
	kept := w.waits[:0]
	for _, pending := range w.waits {
		if pending.pred(ev) {
			pending.done <- result{event: ev}
			matched = true
			continue
		}
		kept = append(kept, pending)
	}
	for i := len(kept); i < len(w.waits); i++ {
		w.waits[i] = nil
	}
	w.waits = kept
	return matched
}

// Len is the number of pending waits.
func (w *Waiter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waits)
}

func (w *Waiter) resolve(pending *wait, res result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, p := range w.waits {
		if p == pending {
			w.waits = append(w.waits[:i], w.waits[i+1:]...)
			pending.done <- res
			return
		}
	}
}
