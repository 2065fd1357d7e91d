package repository

import (
	"context"
	"sync"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

const defaultHistoryLimit = 1000

// MemoryHistory keeps the most recently ended giveaways in memory.
type MemoryHistory struct {
	mu    sync.RWMutex
	limit int
	items map[string]models.EndedGiveaway
	order []string
}

func NewMemoryHistory(limit int) *MemoryHistory {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &MemoryHistory{limit: limit, items: make(map[string]models.EndedGiveaway)}
}

func (h *MemoryHistory) Record(_ context.Context, g models.EndedGiveaway) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.items[g.MessageID]; !ok {
		h.order = append(h.order, g.MessageID)
	}
	g.Winners = append([]string(nil), g.Winners...)
	h.items[g.MessageID] = g

	for len(h.order) > h.limit {
		delete(h.items, h.order[0])
		h.order = h.order[1:]
	}
	return nil
}

func (h *MemoryHistory) Get(_ context.Context, messageID string) (models.EndedGiveaway, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	g, ok := h.items[messageID]
	if !ok {
		return models.EndedGiveaway{}, ErrGiveawayNotFound
	}
	g.Winners = append([]string(nil), g.Winners...)
	return g, nil
}

func (h *MemoryHistory) UpdateWinners(_ context.Context, messageID string, winners []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	g, ok := h.items[messageID]
	if !ok {
		return ErrGiveawayNotFound
	}
	g.Winners = append([]string(nil), winners...)
	h.items[messageID] = g
	return nil
}
