package repository

import (
	"sync"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

// Registry is the authoritative in-memory set of active giveaways. Every
// operation holds the lock only for the map access itself.
type Registry struct {
	mu    sync.Mutex
	items map[models.Key]*models.Giveaway
	order []models.Key
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[models.Key]*models.Giveaway)}
}

// Add registers g. A second giveaway on the same message is rejected.
func (r *Registry) Add(g *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := g.Key()
	if _, ok := r.items[key]; ok {
		return ErrDuplicateGiveaway
	}
	r.items[key] = g
	r.order = append(r.order, key)
	return nil
}

// Remove deletes g and reports whether it was present.
func (r *Registry) Remove(g *models.Giveaway) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := g.Key()
	current, ok := r.items[key]
	if !ok || current != g {
		return false
	}
	delete(r.items, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Snapshot returns the active giveaways in registration order. The slice is
// a copy, so callers may iterate while others add or remove.
func (r *Registry) Snapshot() []*models.Giveaway {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Giveaway, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.items[k])
	}
	return out
}

func (r *Registry) FindByChannelAndMessage(channelID, messageID string) (*models.Giveaway, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[models.Key{ChannelID: channelID, MessageID: messageID}]
	return g, ok
}

// FindByMessage looks a giveaway up by message id alone; message ids are
// globally unique on the platforms this bot targets.
func (r *Registry) FindByMessage(messageID string) (*models.Giveaway, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range r.order {
		if k.MessageID == messageID {
			return r.items[k], true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
