package resource

import (
	"log/slog"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/fixp"
)

// OptimizeDistribution replaces the allocations of the given organisms
// with shares proportional to their current health scores, clamped to the
// resource's per-organism bounds. Inactive organisms are skipped. Meant to
// be invoked by an external scheduler for periodic rebalancing; it is
// never triggered automatically.
func (p *Pool) OptimizeDistribution(tick uint64, rtype components.ResourceType, organismIDs []uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, ok := p.resources[rtype]
	if !ok {
		return fault.Wrap("optimize distribution", ErrResourceNotFound)
	}
	if !res.Active {
		return fault.Wrap("optimize distribution", ErrResourceNotActive)
	}
	p.replenish(res, tick)

	// Collect the eligible set and its health mass, returning existing
	// shares to the pool as we go.
	type member struct {
		id     uint64
		health uint64
	}
	var members []member
	var healthSum uint64
	for _, id := range organismIDs {
		if !p.organisms.Active(id) {
			continue
		}
		key := allocKey{organism: id, rtype: rtype}
		if existing, ok := p.allocations[key]; ok && existing.Active {
			p.totalAllocated[rtype] = fixp.SatSub(p.totalAllocated[rtype], existing.Amount)
			delete(p.allocations, key)
		}
		members = append(members, member{id: id, health: p.organisms.HealthOf(id)})
		healthSum += p.organisms.HealthOf(id)
	}
	if len(members) == 0 || healthSum == 0 {
		return nil
	}

	available := fixp.SatSub(res.CurrentAmount, p.totalAllocated[rtype])
	for _, m := range members {
		share := fixp.MulDiv(available, m.health, healthSum)
		share = fixp.Clamp(share, res.MinAllocation, res.MaxAllocation)

		remaining := fixp.SatSub(res.CurrentAmount, p.totalAllocated[rtype])
		if share > remaining {
			// The clamp floor can overshoot what is left; grant what fits.
			if res.MinAllocation > remaining {
				continue
			}
			share = remaining
		}

		p.allocations[allocKey{organism: m.id, rtype: rtype}] = &components.Allocation{
			OrganismID:    m.id,
			Type:          rtype,
			Amount:        share,
			LastClaimTick: tick,
			Active:        true,
		}
		p.totalAllocated[rtype] += share
	}

	slog.Debug("distribution optimized", "type", rtype.String(), "organisms", len(members), "allocated", p.totalAllocated[rtype])
	return nil
}
