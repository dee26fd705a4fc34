package telemetry

import (
	"testing"

	"github.com/pthm-cable/verdant/components"
)

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(100)

	if c.ShouldFlush(50) {
		t.Error("should not flush mid-window")
	}
	if !c.ShouldFlush(100) {
		t.Error("should flush at window boundary")
	}

	c.Record(NewOrganismCreatedEvent(1, 1))
	c.Record(NewOrganismCreatedEvent(2, 2))
	c.Record(NewStageTransitionEvent(3, 1, components.StageGermination))
	c.Record(NewAllocationEvent(4, 1, components.ResourceWater, 200, true))
	c.Record(NewAllocationEvent(5, 2, components.ResourceWater, 400, false))
	c.Record(NewClaimEvent(6, 1, components.ResourceWater, 20))
	c.Record(NewClaimEvent(7, 1, components.ResourceWater, 30))
	c.Record(NewCompostEvent(8, 1, 186))
	c.Record(NewDataEvent(EventDataSubmitted, 9, 1, components.DataBiomass))
	c.Record(NewDataEvent(EventDataValidated, 10, 1, components.DataBiomass))

	stats := c.Flush(100, 2, 1, 3, []float64{10000, 8000})

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 100 {
		t.Errorf("window = [%d, %d], want [0, 100]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if stats.OrganismsCreated != 2 {
		t.Errorf("organisms created = %d, want 2", stats.OrganismsCreated)
	}
	if stats.StageTransitions != 1 {
		t.Errorf("stage transitions = %d, want 1", stats.StageTransitions)
	}
	if stats.AllocationsGranted != 1 || stats.AllocationsQueued != 1 {
		t.Errorf("allocations = %d granted %d queued, want 1 and 1",
			stats.AllocationsGranted, stats.AllocationsQueued)
	}
	if stats.GrantRate != 0.5 {
		t.Errorf("grant rate = %v, want 0.5", stats.GrantRate)
	}
	if stats.Claims != 2 || stats.ClaimedAmount != 50 {
		t.Errorf("claims = %d for %d, want 2 for 50", stats.Claims, stats.ClaimedAmount)
	}
	if stats.CompostGenerated != 186 {
		t.Errorf("compost = %d, want 186", stats.CompostGenerated)
	}
	if stats.DataSubmitted != 1 || stats.DataValidated != 1 {
		t.Errorf("oracle counters = %d/%d, want 1/1", stats.DataSubmitted, stats.DataValidated)
	}
	if stats.ActiveOrganisms != 2 || stats.ActiveDecays != 1 || stats.PendingValidations != 3 {
		t.Errorf("population = %d/%d/%d, want 2/1/3",
			stats.ActiveOrganisms, stats.ActiveDecays, stats.PendingValidations)
	}
	if stats.HealthMean != 9000 {
		t.Errorf("health mean = %v, want 9000", stats.HealthMean)
	}

	// Counters reset after flush; the next window starts where this ended.
	next := c.Flush(200, 2, 1, 3, nil)
	if next.WindowStartTick != 100 {
		t.Errorf("next window start = %d, want 100", next.WindowStartTick)
	}
	if next.OrganismsCreated != 0 || next.ClaimedAmount != 0 || next.CompostGenerated != 0 {
		t.Error("counters must reset between windows")
	}
}

func TestEventTypeNames(t *testing.T) {
	if EventOrganismCreated.String() != "organism_created" {
		t.Errorf("unexpected name %q", EventOrganismCreated.String())
	}
	if EventAnomaly.String() != "anomaly" {
		t.Errorf("unexpected name %q", EventAnomaly.String())
	}
	if EventType(200).String() != "unknown" {
		t.Errorf("out-of-range types should report unknown")
	}
}
