// Package resource manages shared replenishing resource pools: allocation
// with bounds and priorities, time-proportional claiming, release with FIFO
// queue draining, and periodic health-weighted rebalancing. Replenishment
// is lazy: it is computed on access from elapsed ticks, never by a
// background ticker.
package resource

import (
	"log/slog"
	"sync"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/fixp"
)

var (
	ErrInvalidCapacity      = fault.New(fault.Validation, "resource capacity must be positive")
	ErrInvalidBounds        = fault.New(fault.Validation, "max allocation below min allocation")
	ErrInvalidPriority      = fault.New(fault.Validation, "priority outside 0..100")
	ErrAllocationOutOfBounds = fault.New(fault.Validation, "amount outside allocation bounds")
	ErrResourceNotFound     = fault.New(fault.State, "resource not initialized")
	ErrResourceNotActive    = fault.New(fault.State, "resource not active")
	ErrOrganismNotActive    = fault.New(fault.State, "organism not active")
	ErrAllocationNotFound   = fault.New(fault.State, "no active allocation")
	ErrAlreadyInQueue       = fault.New(fault.State, "organism already queued for resource")
	ErrReleaseTooLarge      = fault.New(fault.Exhausted, "release exceeds allocated amount")
)

// OrganismDirectory is the narrow view of the growth engine the pool needs.
type OrganismDirectory interface {
	Active(id uint64) bool
	HealthOf(id uint64) uint64
	AddPerformance(id, amount uint64)
}

type allocKey struct {
	organism uint64
	rtype    components.ResourceType
}

// Pool owns the resource tables, allocations, and per-type waiting queues.
type Pool struct {
	mu sync.Mutex

	organisms   OrganismDirectory
	claimRateBP uint64

	resources      map[components.ResourceType]*components.Resource
	allocations    map[allocKey]*components.Allocation
	totalAllocated map[components.ResourceType]uint64
	queues         map[components.ResourceType][]uint64 // organism ids, FIFO
}

// NewPool creates an empty pool reading organism state from dir.
// claimRateBP is the share of an allocation released per elapsed tick.
func NewPool(dir OrganismDirectory, claimRateBP uint64) *Pool {
	return &Pool{
		organisms:      dir,
		claimRateBP:    claimRateBP,
		resources:      make(map[components.ResourceType]*components.Resource),
		allocations:    make(map[allocKey]*components.Allocation),
		totalAllocated: make(map[components.ResourceType]uint64),
		queues:         make(map[components.ResourceType][]uint64),
	}
}

// InitializeResource registers a resource type's pool, starting full.
func (p *Pool) InitializeResource(tick uint64, rtype components.ResourceType, capacity, replenishRate, minAlloc, maxAlloc uint64) error {
	if capacity == 0 {
		return fault.Wrap("initialize resource", ErrInvalidCapacity)
	}
	if maxAlloc < minAlloc {
		return fault.Wrap("initialize resource", ErrInvalidBounds)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.resources[rtype] = &components.Resource{
		Type:              rtype,
		TotalCapacity:     capacity,
		CurrentAmount:     capacity,
		ReplenishRate:     replenishRate,
		LastReplenishTick: tick,
		MinAllocation:     minAlloc,
		MaxAllocation:     maxAlloc,
		Active:            true,
	}
	slog.Debug("resource initialized", "type", rtype.String(), "capacity", capacity, "replenish_rate", replenishRate)
	return nil
}

// replenish applies lazy replenishment up to capacity. Caller holds the lock.
func (p *Pool) replenish(res *components.Resource, tick uint64) {
	elapsed := fixp.SatSub(tick, res.LastReplenishTick)
	if elapsed == 0 {
		return
	}
	res.CurrentAmount = fixp.Min(res.TotalCapacity,
		fixp.SatAdd(res.CurrentAmount, fixp.SatMul(res.ReplenishRate, elapsed)))
	res.LastReplenishTick = tick
}

// Allocate grants amount of rtype to an organism, or enqueues the request
// when the pool cannot cover it. Returns true when the allocation was
// granted immediately, false when queued.
func (p *Pool) Allocate(tick, organismID uint64, rtype components.ResourceType, amount, priority uint64) (bool, error) {
	if priority > 100 {
		return false, fault.Wrap("allocate", ErrInvalidPriority)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	res, ok := p.resources[rtype]
	if !ok {
		return false, fault.Wrap("allocate", ErrResourceNotFound)
	}
	if !res.Active {
		return false, fault.Wrap("allocate", ErrResourceNotActive)
	}
	if !p.organisms.Active(organismID) {
		return false, fault.Wrap("allocate", ErrOrganismNotActive)
	}
	if amount < res.MinAllocation || amount > res.MaxAllocation {
		return false, fault.Wrap("allocate", ErrAllocationOutOfBounds)
	}

	key := allocKey{organism: organismID, rtype: rtype}
	if existing, ok := p.allocations[key]; ok {
		if existing.Pending {
			return false, fault.Wrap("allocate", ErrAlreadyInQueue)
		}
		// Re-allocation: the old share returns to the pool first.
		p.totalAllocated[rtype] = fixp.SatSub(p.totalAllocated[rtype], existing.Amount)
	}

	p.replenish(res, tick)
	available := fixp.SatSub(res.CurrentAmount, p.totalAllocated[rtype])

	alloc := &components.Allocation{
		OrganismID:    organismID,
		Type:          rtype,
		Amount:        amount,
		Priority:      priority,
		LastClaimTick: tick,
	}

	if amount <= available {
		alloc.Active = true
		p.allocations[key] = alloc
		p.totalAllocated[rtype] += amount
		slog.Debug("allocation granted", "organism", organismID, "type", rtype.String(), "amount", amount, "tick", tick)
		return true, nil
	}

	alloc.Pending = true
	p.allocations[key] = alloc
	p.queues[rtype] = append(p.queues[rtype], organismID)
	slog.Debug("allocation queued", "organism", organismID, "type", rtype.String(), "amount", amount, "queue_len", len(p.queues[rtype]))
	return false, nil
}

// Claim releases the time-proportional share of an allocation accrued
// since the last claim: claimRate of the amount per tick, capped at the
// full allocation. The claimed amount feeds the organism's performance
// score; the unclaimed residue accumulates on the allocation.
func (p *Pool) Claim(tick, organismID uint64, rtype components.ResourceType) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	alloc, ok := p.allocations[allocKey{organism: organismID, rtype: rtype}]
	if !ok || !alloc.Active {
		return 0, fault.Wrap("claim", ErrAllocationNotFound)
	}

	elapsed := fixp.SatSub(tick, alloc.LastClaimTick)
	claimed := fixp.Min(alloc.Amount,
		fixp.MulDiv(alloc.Amount, fixp.SatMul(p.claimRateBP, elapsed), fixp.ScaleBP))

	alloc.AccumulatedUnused = fixp.SatAdd(alloc.AccumulatedUnused, fixp.SatSub(alloc.Amount, claimed))
	alloc.LastClaimTick = tick
	p.organisms.AddPerformance(organismID, claimed)
	return claimed, nil
}

// Release returns amount of an active allocation to the pool and then
// drains the type's waiting queue in FIFO order, activating queued
// requests while the freed capacity covers them. Draining stops at the
// first request that does not fit; priority plays no part here.
func (p *Pool) Release(tick, organismID uint64, rtype components.ResourceType, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := allocKey{organism: organismID, rtype: rtype}
	alloc, ok := p.allocations[key]
	if !ok || !alloc.Active {
		return fault.Wrap("release", ErrAllocationNotFound)
	}
	if amount > alloc.Amount {
		return fault.Wrap("release", ErrReleaseTooLarge)
	}

	alloc.Amount -= amount
	p.totalAllocated[rtype] = fixp.SatSub(p.totalAllocated[rtype], amount)
	if alloc.Amount == 0 {
		delete(p.allocations, key)
	}

	p.drainQueue(rtype, tick)
	return nil
}

// drainQueue activates pending requests in queue order while capacity
// allows. Caller holds the lock.
func (p *Pool) drainQueue(rtype components.ResourceType, tick uint64) {
	res, ok := p.resources[rtype]
	if !ok {
		return
	}
	p.replenish(res, tick)

	queue := p.queues[rtype]
	for len(queue) > 0 {
		organismID := queue[0]
		key := allocKey{organism: organismID, rtype: rtype}
		alloc, ok := p.allocations[key]
		if !ok || !alloc.Pending {
			// Stale queue entry; drop it.
			queue = queue[1:]
			continue
		}

		available := fixp.SatSub(res.CurrentAmount, p.totalAllocated[rtype])
		if alloc.Amount > available {
			break
		}

		alloc.Pending = false
		alloc.Active = true
		alloc.LastClaimTick = tick
		p.totalAllocated[rtype] += alloc.Amount
		queue = queue[1:]
		slog.Debug("queued allocation activated", "organism", organismID, "type", rtype.String(), "amount", alloc.Amount)
	}
	p.queues[rtype] = queue
}

// Availability returns the lazily-projected available amount, the total
// capacity, and the currently allocated total. Pure view: nothing mutates.
func (p *Pool) Availability(tick uint64, rtype components.ResourceType) (available, capacity, allocated uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, ok := p.resources[rtype]
	if !ok {
		return 0, 0, 0, fault.Wrap("availability", ErrResourceNotFound)
	}

	elapsed := fixp.SatSub(tick, res.LastReplenishTick)
	projected := fixp.Min(res.TotalCapacity,
		fixp.SatAdd(res.CurrentAmount, fixp.SatMul(res.ReplenishRate, elapsed)))
	allocated = p.totalAllocated[rtype]
	return fixp.SatSub(projected, allocated), res.TotalCapacity, allocated, nil
}

// Deposit adds externally produced units (compost conversion output) to a
// pool, capped at capacity. Returns the amount actually absorbed.
func (p *Pool) Deposit(tick uint64, rtype components.ResourceType, amount uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, ok := p.resources[rtype]
	if !ok {
		return 0, fault.Wrap("deposit", ErrResourceNotFound)
	}
	p.replenish(res, tick)

	space := fixp.SatSub(res.TotalCapacity, res.CurrentAmount)
	absorbed := fixp.Min(space, amount)
	res.CurrentAmount += absorbed
	return absorbed, nil
}

// Allocation returns a copy of the allocation record for (organism, type).
func (p *Pool) Allocation(organismID uint64, rtype components.ResourceType) (components.Allocation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	alloc, ok := p.allocations[allocKey{organism: organismID, rtype: rtype}]
	if !ok {
		return components.Allocation{}, fault.Wrap("allocation", ErrAllocationNotFound)
	}
	return *alloc, nil
}

// QueueLength reports the number of pending requests for a resource type.
func (p *Pool) QueueLength(rtype components.ResourceType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues[rtype])
}

// TotalAllocated reports the allocated total for a resource type.
func (p *Pool) TotalAllocated(rtype components.ResourceType) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalAllocated[rtype]
}
