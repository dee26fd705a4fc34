// Package telemetry aggregates lifecycle activity into windowed statistics
// and writes them as CSV experiment output.
package telemetry

import "github.com/pthm-cable/verdant/components"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventOrganismCreated EventType = iota
	EventStageTransition
	EventDeactivation
	EventAllocationGranted
	EventAllocationQueued
	EventClaim
	EventCompost
	EventDecayComplete
	EventDataSubmitted
	EventDataValidated
	EventDataRejected
	EventDataExpired
	EventAnomaly
)

var eventTypeNames = []string{
	"organism_created", "stage_transition", "deactivation",
	"allocation_granted", "allocation_queued", "claim",
	"compost", "decay_complete",
	"data_submitted", "data_validated", "data_rejected", "data_expired",
	"anomaly",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type       EventType
	Tick       uint64
	OrganismID uint64

	// Optional fields depending on event type
	Stage    components.GrowthStage // for stage transitions
	Resource components.ResourceType
	DataType components.DataType
	Amount   uint64 // allocation/claim/compost quantity
}

// NewOrganismCreatedEvent creates an organism creation event.
func NewOrganismCreatedEvent(tick, organismID uint64) Event {
	return Event{
		Type:       EventOrganismCreated,
		Tick:       tick,
		OrganismID: organismID,
	}
}

// NewStageTransitionEvent creates a growth stage transition event.
func NewStageTransitionEvent(tick, organismID uint64, to components.GrowthStage) Event {
	return Event{
		Type:       EventStageTransition,
		Tick:       tick,
		OrganismID: organismID,
		Stage:      to,
	}
}

// NewDeactivationEvent creates an organism deactivation event.
func NewDeactivationEvent(tick, organismID uint64) Event {
	return Event{
		Type:       EventDeactivation,
		Tick:       tick,
		OrganismID: organismID,
	}
}

// NewAllocationEvent creates an allocation event; granted reports whether
// the request was satisfied immediately or queued.
func NewAllocationEvent(tick, organismID uint64, rtype components.ResourceType, amount uint64, granted bool) Event {
	etype := EventAllocationGranted
	if !granted {
		etype = EventAllocationQueued
	}
	return Event{
		Type:       etype,
		Tick:       tick,
		OrganismID: organismID,
		Resource:   rtype,
		Amount:     amount,
	}
}

// NewClaimEvent creates a resource claim event.
func NewClaimEvent(tick, organismID uint64, rtype components.ResourceType, amount uint64) Event {
	return Event{
		Type:       EventClaim,
		Tick:       tick,
		OrganismID: organismID,
		Resource:   rtype,
		Amount:     amount,
	}
}

// NewCompostEvent creates a compost generation event.
func NewCompostEvent(tick, organismID, amount uint64) Event {
	return Event{
		Type:       EventCompost,
		Tick:       tick,
		OrganismID: organismID,
		Amount:     amount,
	}
}

// NewDecayCompleteEvent creates a decay completion event.
func NewDecayCompleteEvent(tick, organismID uint64) Event {
	return Event{
		Type:       EventDecayComplete,
		Tick:       tick,
		OrganismID: organismID,
	}
}

// NewDataEvent creates an oracle data-point lifecycle event.
func NewDataEvent(etype EventType, tick, organismID uint64, dtype components.DataType) Event {
	return Event{
		Type:       etype,
		Tick:       tick,
		OrganismID: organismID,
		DataType:   dtype,
	}
}
