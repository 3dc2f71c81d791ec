package assoc

import (
	"sync"
)

// Graph unit of work holding loaded records. Records live in an arena and are addressed by
// index, relationships are stored as index lists per (owner, attribute), so bidirectional
// pairs never hold pointers to each other.
type Graph struct {
	mu       sync.RWMutex
	records  []*Record
	index    map[Key]int
	position map[*Record]int
	pending  map[int]bool
	removed  map[int]bool
	links    map[linkKey]*linkState
	locks    map[int]*sync.Mutex
}

type linkKey struct {
	owner        int
	relationship string
}

// linkState loaded targets of one relationship of one owner, via holds the association row of
// each target when the relationship has an association table
type linkState struct {
	targets []int
	via     map[int]int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		index:    map[Key]int{},
		position: map[*Record]int{},
		pending:  map[int]bool{},
		removed:  map[int]bool{},
		links:    map[linkKey]*linkState{},
		locks:    map[int]*sync.Mutex{},
	}
}

// Len number of live records
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records) - len(g.removed)
}

// Lookup returns the record with key
func (g *Graph) Lookup(key Key) (*Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if idx, ok := g.index[key]; ok {
		return g.records[idx], true
	}
	return nil, false
}

// Contains whether record itself is part of the graph
func (g *Graph) Contains(record *Record) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.position[record]
	return ok && !g.removed[idx]
}

// Pending whether record was added but not persisted yet
func (g *Graph) Pending(record *Record) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.position[record]
	return ok && g.pending[idx]
}

// add puts record into the graph, a record with the same key already in the graph wins and
// is returned instead
func (g *Graph) add(record *Record, key Key, pending bool) (*Record, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if idx, ok := g.position[record]; ok && !g.removed[idx] {
		return record, idx
	}

	if idx, ok := g.index[key]; ok {
		return g.records[idx], idx
	}

	idx := len(g.records)
	g.records = append(g.records, record)
	g.index[key] = idx
	g.position[record] = idx
	if pending {
		g.pending[idx] = true
	}
	return record, idx
}

func (g *Graph) markPersisted(record *Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if idx, ok := g.position[record]; ok {
		delete(g.pending, idx)
	}
}

// remove drops record and every link pointing to or from it
func (g *Graph) remove(record *Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, ok := g.position[record]
	if !ok {
		return
	}

	g.removed[idx] = true
	delete(g.pending, idx)
	for k, i := range g.index {
		if i == idx {
			delete(g.index, k)
		}
	}

	for key, state := range g.links {
		if key.owner == idx {
			delete(g.links, key)
			continue
		}
		state.drop(idx)
	}
}

// lock serializes mutations of one owner, the returned func unlocks
func (g *Graph) lock(record *Record) func() {
	g.mu.Lock()
	idx, ok := g.position[record]
	if !ok {
		g.mu.Unlock()
		return func() {}
	}

	mu, ok := g.locks[idx]
	if !ok {
		mu = &sync.Mutex{}
		g.locks[idx] = mu
	}
	g.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// loaded returns the targets and association rows of a loaded relationship
func (g *Graph) loaded(owner *Record, relationship string) (targets, via []*Record, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, found := g.position[owner]
	if !found {
		return nil, nil, false
	}

	state, found := g.links[linkKey{owner: idx, relationship: relationship}]
	if !found {
		return nil, nil, false
	}

	targets = make([]*Record, 0, len(state.targets))
	via = make([]*Record, 0, len(state.targets))
	for _, target := range state.targets {
		targets = append(targets, g.records[target])
		if link, ok := state.via[target]; ok {
			via = append(via, g.records[link])
		} else {
			via = append(via, nil)
		}
	}
	return targets, via, true
}

// setLoaded replaces the loaded state of a relationship
func (g *Graph) setLoaded(owner *Record, relationship string, targets, via []*Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, ok := g.position[owner]
	if !ok {
		return
	}

	state := &linkState{targets: make([]int, 0, len(targets)), via: map[int]int{}}
	for i, target := range targets {
		t := g.position[target]
		state.targets = append(state.targets, t)
		if i < len(via) && via[i] != nil {
			state.via[t] = g.position[via[i]]
		}
	}
	g.links[linkKey{owner: idx, relationship: relationship}] = state
}

// link adds target to a loaded relationship of owner, unloaded relationships are left alone
// and pick the change up on their first load
func (g *Graph) link(owner *Record, relationship string, target, via *Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.state(owner, relationship)
	if !ok {
		return
	}

	t := g.position[target]
	for _, existing := range state.targets {
		if existing == t {
			return
		}
	}

	state.targets = append(state.targets, t)
	if via != nil {
		state.via[t] = g.position[via]
	}
}

// unlink removes target from a loaded relationship of owner
func (g *Graph) unlink(owner *Record, relationship string, target *Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state, ok := g.state(owner, relationship); ok {
		if t, ok := g.position[target]; ok {
			state.drop(t)
		}
	}
}

// unload forgets the loaded state of a relationship
func (g *Graph) unload(owner *Record, relationship string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if idx, ok := g.position[owner]; ok {
		delete(g.links, linkKey{owner: idx, relationship: relationship})
	}
}

func (g *Graph) state(owner *Record, relationship string) (*linkState, bool) {
	idx, ok := g.position[owner]
	if !ok {
		return nil, false
	}
	state, ok := g.links[linkKey{owner: idx, relationship: relationship}]
	return state, ok
}

func (state *linkState) drop(idx int) {
	for i, target := range state.targets {
		if target == idx {
			state.targets = append(state.targets[:i:i], state.targets[i+1:]...)
			break
		}
	}
	delete(state.via, idx)

	for target, link := range state.via {
		if link == idx {
			state.drop(target)
		}
	}
}
