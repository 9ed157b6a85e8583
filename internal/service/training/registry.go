package training

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/seu-repo/botcore/internal/nlu/model"
)

// Registry holds the currently served model per bot. Readers never block on
// a swap; they keep whichever handle they loaded.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*atomic.Pointer[model.Compiled]
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*atomic.Pointer[model.Compiled])}
}

func (r *Registry) slot(botID string) *atomic.Pointer[model.Compiled] {
	r.mu.RLock()
	p, ok := r.models[botID]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.models[botID]; !ok {
		p = new(atomic.Pointer[model.Compiled])
		r.models[botID] = p
	}
	return p
}

func (r *Registry) Get(botID string) (*model.Compiled, bool) {
	m := r.slot(botID).Load()
	return m, m != nil
}

// Swap publishes m unless a newer version is already being served. It
// reports whether m became current.
func (r *Registry) Swap(m *model.Compiled) bool {
	p := r.slot(m.BotID())
	for {
		old := p.Load()
		if old != nil && old.Version() >= m.Version() {
			return false
		}
		if p.CompareAndSwap(old, m) {
			return true
		}
	}
}

// Bots lists the bots with a served model.
func (r *Registry) Bots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for id, p := range r.models {
		if p.Load() != nil {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Version returns the served version for botID, 0 when none.
func (r *Registry) Version(botID string) int64 {
	if m, ok := r.Get(botID); ok {
		return m.Version()
	}
	return 0
}
