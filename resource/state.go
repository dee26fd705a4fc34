package resource

import (
	"sort"

	"github.com/pthm-cable/verdant/components"
)

// State is the serializable contents of the pool: resource tables,
// allocations (active and pending), and the per-type waiting queues in
// FIFO order.
type State struct {
	Resources   []components.Resource
	Allocations []components.Allocation
	Queues      map[components.ResourceType][]uint64
}

// Export dumps the pool state in deterministic order.
func (p *Pool) Export() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := State{Queues: make(map[components.ResourceType][]uint64, len(p.queues))}

	for _, res := range p.resources {
		st.Resources = append(st.Resources, *res)
	}
	sort.Slice(st.Resources, func(i, j int) bool {
		return st.Resources[i].Type < st.Resources[j].Type
	})

	for _, alloc := range p.allocations {
		st.Allocations = append(st.Allocations, *alloc)
	}
	sort.Slice(st.Allocations, func(i, j int) bool {
		a, b := st.Allocations[i], st.Allocations[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.OrganismID < b.OrganismID
	})

	for rtype, queue := range p.queues {
		cp := make([]uint64, len(queue))
		copy(cp, queue)
		st.Queues[rtype] = cp
	}
	return st
}

// Restore replaces the pool contents with an exported state. The
// total-allocated tallies are rebuilt from the active allocations.
func (p *Pool) Restore(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resources = make(map[components.ResourceType]*components.Resource, len(st.Resources))
	for _, res := range st.Resources {
		cp := res
		p.resources[res.Type] = &cp
	}

	p.allocations = make(map[allocKey]*components.Allocation, len(st.Allocations))
	p.totalAllocated = make(map[components.ResourceType]uint64)
	for _, alloc := range st.Allocations {
		cp := alloc
		p.allocations[allocKey{organism: alloc.OrganismID, rtype: alloc.Type}] = &cp
		if alloc.Active {
			p.totalAllocated[alloc.Type] += alloc.Amount
		}
	}

	p.queues = make(map[components.ResourceType][]uint64, len(st.Queues))
	for rtype, queue := range st.Queues {
		cp := make([]uint64, len(queue))
		copy(cp, queue)
		p.queues[rtype] = cp
	}
}
