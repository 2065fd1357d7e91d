package service

import (
	"sync"

	"github.com/open-builders/giveaway-bot/internal/utils/random"
)

// Selector draws winners from a pool of entrants.
type Selector struct {
	mu  sync.Mutex
	src random.Source
}

// NewSelector uses src for every draw; a nil src falls back to crypto/rand.
func NewSelector(src random.Source) *Selector {
	if src == nil {
		src = random.CryptoSource{}
	}
	return &Selector{src: src}
}

// Select returns up to count distinct winners from entrants, never including
// an excluded id. When the eligible pool is not larger than count the whole
// pool wins.
func (s *Selector) Select(entrants []string, count int, exclude ...string) []string {
	if count <= 0 {
		return nil
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	pool := make([]string, 0, len(entrants))
	seen := make(map[string]struct{}, len(entrants))
	for _, id := range entrants {
		if id == "" {
			continue
		}
		if _, ok := skip[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pool = append(pool, id)
	}

	if len(pool) <= count {
		return pool
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return random.Sample(s.src, pool, count)
}
