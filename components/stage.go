// Package components defines the value types shared by the engines:
// organisms, resources, allocations, decay records, and oracle entities.
// Components carry no behavior beyond small pure helpers. Each engine owns
// its table of components exclusively and mutates it only through its own
// API.
package components

import "github.com/pthm-cable/verdant/fixp"

// GrowthStage is the discrete lifecycle phase of an organism.
type GrowthStage uint8

const (
	StageSeed GrowthStage = iota
	StageGermination
	StageVegetative
	StageFlowering
	StageFruiting
	StageHarvest
	StageDecay
)

// growthStageNames order matches the GrowthStage constants.
var growthStageNames = []string{
	"seed", "germination", "vegetative", "flowering", "fruiting", "harvest", "decay",
}

func (s GrowthStage) String() string {
	if int(s) < len(growthStageNames) {
		return growthStageNames[s]
	}
	return "unknown"
}

// GrowthStageCount is the number of growth stages.
const GrowthStageCount = int(StageDecay) + 1

// validStageTransitions is the allowed stage graph. StageDecay is reachable
// from every stage (death or harvest-triggered decay) and is handled in
// ValidStageTransition rather than listed per stage.
var validStageTransitions = map[GrowthStage]map[GrowthStage]bool{
	StageSeed: {
		StageGermination: true,
	},
	StageGermination: {
		StageVegetative: true,
	},
	StageVegetative: {
		StageFlowering: true,
		StageHarvest:   true,
	},
	StageFlowering: {
		StageFruiting: true,
		StageHarvest:  true,
	},
	StageFruiting: {
		StageHarvest: true,
	},
}

// ValidStageTransition reports whether from→to is an allowed edge.
func ValidStageTransition(from, to GrowthStage) bool {
	if from == StageDecay {
		return false
	}
	if to == StageDecay {
		return true
	}
	return validStageTransitions[from][to]
}

// IsTerminalStage reports whether a stage has no outgoing transitions.
func IsTerminalStage(s GrowthStage) bool {
	return s == StageDecay
}

// DecayStage is the decomposition phase of a decaying organism.
// It is a pure function of the remaining/initial biomass ratio.
type DecayStage uint8

const (
	DecayFresh DecayStage = iota
	DecayActive
	DecayAdvanced
	DecayDryRemains
	DecayCompost
)

var decayStageNames = []string{
	"fresh", "active_decay", "advanced_decay", "dry_remains", "compost",
}

func (s DecayStage) String() string {
	if int(s) < len(decayStageNames) {
		return decayStageNames[s]
	}
	return "unknown"
}

// DecayStageFor maps the remaining/initial biomass ratio to a stage.
// Boundaries are exclusive on the upper side: exactly 60% is already
// advanced decay, not active decay.
func DecayStageFor(remaining, initial uint64) DecayStage {
	if initial == 0 {
		return DecayCompost
	}
	ratio := fixp.MulDiv(remaining, fixp.ScaleBP, initial)
	switch {
	case ratio > 9000:
		return DecayFresh
	case ratio > 6000:
		return DecayActive
	case ratio > 3000:
		return DecayAdvanced
	case ratio > 500:
		return DecayDryRemains
	default:
		return DecayCompost
	}
}
