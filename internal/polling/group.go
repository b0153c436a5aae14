package polling

import (
	"slices"
	"sync"
)

const DefaultMaxActive = 5

// Group owns keyed managers. Starting a key that is already polling replaces
// its loop; past MaxActive the oldest key is stopped.
type Group struct {
	mu        sync.Mutex
	managers  map[string]*Manager
	order     []string
	maxActive int
}

func NewGroup(maxActive int) *Group {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Group{
		managers:  make(map[string]*Manager),
		maxActive: maxActive,
	}
}

func (g *Group) Start(key string, cfg Config, fetch FetchFunc, onError ErrorFunc) *Manager {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked(key)
	if len(g.order) >= g.maxActive {
		g.stopLocked(g.order[0])
	}

	m := NewManager(cfg)
	g.managers[key] = m
	g.order = append(g.order, key)
	m.Start(fetch, onError)
	return m
}

func (g *Group) Stop(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked(key)
}

func (g *Group) StopAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range slices.Clone(g.order) {
		g.stopLocked(key)
	}
}

func (g *Group) IsActive(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.managers[key]
	return ok
}

// Active returns the polling keys, oldest first.
func (g *Group) Active() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.order)
}

func (g *Group) stopLocked(key string) {
	m, ok := g.managers[key]
	if !ok {
		return
	}
	m.Stop()
	delete(g.managers, key)
	if i := slices.Index(g.order, key); i >= 0 {
		g.order = slices.Delete(g.order, i, i+1)
	}
}
