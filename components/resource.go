package components

// ResourceType identifies a shared resource pool.
type ResourceType uint8

const (
	ResourceWater ResourceType = iota
	ResourceNitrogen
	ResourcePhosphorus
	ResourcePotassium
	ResourceLight
	ResourceCO2
)

var resourceTypeNames = []string{
	"water", "nitrogen", "phosphorus", "potassium", "light", "co2",
}

func (r ResourceType) String() string {
	if int(r) < len(resourceTypeNames) {
		return resourceTypeNames[r]
	}
	return "unknown"
}

// ResourceTypeByName resolves a config name to a ResourceType.
func ResourceTypeByName(name string) (ResourceType, bool) {
	for i, n := range resourceTypeNames {
		if n == name {
			return ResourceType(i), true
		}
	}
	return 0, false
}

// ResourceTypeCount is the number of resource types.
const ResourceTypeCount = int(ResourceCO2) + 1

// Resource is a replenishing shared pool of one resource type.
// CurrentAmount never exceeds TotalCapacity; replenishment is computed
// lazily on access, not by a background ticker.
type Resource struct {
	Type              ResourceType
	TotalCapacity     uint64
	CurrentAmount     uint64
	ReplenishRate     uint64 // units per tick
	LastReplenishTick uint64
	MinAllocation     uint64
	MaxAllocation     uint64
	Active            bool
}

// Allocation is one organism's share of a resource type. A pending
// allocation sits in the per-type waiting queue until released capacity
// lets it activate.
type Allocation struct {
	OrganismID        uint64
	Type              ResourceType
	Amount            uint64
	Priority          uint64 // 0..100, weighs only bulk optimization
	LastClaimTick     uint64
	AccumulatedUnused uint64
	Active            bool
	Pending           bool
}
