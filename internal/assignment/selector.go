package assignment

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Selector picks at most limit candidates.
type Selector interface {
	Select(candidates []string, limit int) []string
}

// RandomSelector picks a uniformly random subset. A fixed seed gives a
// repeatable sequence of selections.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector seeds a selector. Seed 0 seeds from the clock.
func NewRandomSelector(seed int64) *RandomSelector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSelector{rng: rand.New(rand.NewSource(seed))}
}

// Select returns the chosen candidates in their original order.
func (s *RandomSelector) Select(candidates []string, limit int) []string {
	if limit <= 0 || len(candidates) == 0 {
		return []string{}
	}
	if limit >= len(candidates) {
		return append([]string{}, candidates...)
	}
	s.mu.Lock()
	perm := s.rng.Perm(len(candidates))
	s.mu.Unlock()
	picked := append([]int(nil), perm[:limit]...)
	sort.Ints(picked)
	out := make([]string, 0, limit)
	for _, idx := range picked {
		out = append(out, candidates[idx])
	}
	return out
}

// FirstN keeps the first limit candidates.
type FirstN struct{}

// Select implements Selector.
func (FirstN) Select(candidates []string, limit int) []string {
	if limit <= 0 {
		return []string{}
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	return append([]string{}, candidates[:limit]...)
}
