package components

// DecayingOrganism is a decomposition record for an organism that entered
// the decay growth stage. RemainingBiomass is monotonically non-increasing;
// Stage is always DecayStageFor(RemainingBiomass, InitialBiomass).
type DecayingOrganism struct {
	ID             uint64
	OrganismID     uint64
	Owner          string
	InitialBiomass uint64
	Remaining      uint64
	DecayStartTick uint64
	LastUpdateTick uint64
	Stage          DecayStage

	// CompostGenerated is the cumulative compost credited from this record.
	CompostGenerated uint64

	Active bool
}

// EnvironmentalConditions drives the decay kinetics of one record.
type EnvironmentalConditions struct {
	Temperature       int64  // degrees Celsius x100, signed
	Humidity          uint64 // 0..10000
	Oxygen            uint64 // 0..10000
	MicrobialActivity uint64 // 0..10000
	LastUpdateTick    uint64
}
