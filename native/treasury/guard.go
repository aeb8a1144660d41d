package treasury

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// tickGuard enforces one guarded operation per caller per logical tick. The
// host advances the tick once per indivisible execution window; within a
// window a caller's second guarded entrypoint is rejected.
type tickGuard struct {
	mu   sync.Mutex
	tick uint64
	used map[common.Address]struct{}
}

func newTickGuard() *tickGuard {
	return &tickGuard{used: make(map[common.Address]struct{})}
}

// Advance opens a new tick window and returns its identifier.
func (g *tickGuard) Advance() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick++
	g.used = make(map[common.Address]struct{})
	return g.tick
}

// Current reports the open tick identifier.
func (g *tickGuard) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

func (g *tickGuard) reserve(caller common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.used[caller]; ok {
		return ErrTickUsed
	}
	g.used[caller] = struct{}{}
	return nil
}

// release returns the caller's slot after an aborted operation so a failed
// attempt does not consume the tick.
func (g *tickGuard) release(caller common.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.used, caller)
}
