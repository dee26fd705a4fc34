package components

// Organism is a tracked living organism. Owned exclusively by the growth
// engine; all fixed-point fields use basis points (10000 = 100%).
type Organism struct {
	ID         uint64
	Species    string
	Owner      string
	BirthTick  uint64
	Stage      GrowthStage
	Biomass    uint64 // milligrams
	Health     uint64 // 0..10000
	GrowthRate uint64 // basis points per tick, 1..1000

	// PerformanceScore accumulates claimed resource amounts.
	PerformanceScore uint64

	Active         bool
	LastUpdateTick uint64
}
