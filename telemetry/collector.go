package telemetry

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks uint64

	// Current window tracking
	windowStartTick uint64

	// Event counters for current window
	organismsCreated   int
	stageTransitions   int
	deactivations      int
	allocationsGranted int
	allocationsQueued  int
	claims             int
	claimedAmount      uint64
	compostGenerated   uint64
	decayCompletions   int
	dataSubmitted      int
	dataValidated      int
	dataRejected       int
	dataExpired        int
	anomalies          int
}

// NewCollector creates a stats collector flushing every windowTicks ticks.
func NewCollector(windowTicks uint64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// Record counts one event into the current window.
func (c *Collector) Record(e Event) {
	switch e.Type {
	case EventOrganismCreated:
		c.organismsCreated++
	case EventStageTransition:
		c.stageTransitions++
	case EventDeactivation:
		c.deactivations++
	case EventAllocationGranted:
		c.allocationsGranted++
	case EventAllocationQueued:
		c.allocationsQueued++
	case EventClaim:
		c.claims++
		c.claimedAmount += e.Amount
	case EventCompost:
		c.compostGenerated += e.Amount
	case EventDecayComplete:
		c.decayCompletions++
	case EventDataSubmitted:
		c.dataSubmitted++
	case EventDataValidated:
		c.dataValidated++
	case EventDataRejected:
		c.dataRejected++
	case EventDataExpired:
		c.dataExpired++
	case EventAnomaly:
		c.anomalies++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// The caller provides the end-of-window population counts and the health
// values of living organisms for distribution statistics.
func (c *Collector) Flush(
	currentTick uint64,
	activeOrganisms, activeDecays, pendingValidations int,
	healthValues []float64,
) WindowStats {
	var grantRate float64
	requested := c.allocationsGranted + c.allocationsQueued
	if requested > 0 {
		grantRate = float64(c.allocationsGranted) / float64(requested)
	}

	healthMean, healthP10, healthP50, healthP90 := ComputeHealthStats(healthValues)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		ActiveOrganisms:    activeOrganisms,
		ActiveDecays:       activeDecays,
		PendingValidations: pendingValidations,

		OrganismsCreated: c.organismsCreated,
		StageTransitions: c.stageTransitions,
		Deactivations:    c.deactivations,

		AllocationsGranted: c.allocationsGranted,
		AllocationsQueued:  c.allocationsQueued,
		GrantRate:          grantRate,
		Claims:             c.claims,
		ClaimedAmount:      c.claimedAmount,

		CompostGenerated: c.compostGenerated,
		DecayCompletions: c.decayCompletions,

		DataSubmitted: c.dataSubmitted,
		DataValidated: c.dataValidated,
		DataRejected:  c.dataRejected,
		DataExpired:   c.dataExpired,
		Anomalies:     c.anomalies,

		HealthMean: healthMean,
		HealthP10:  healthP10,
		HealthP50:  healthP50,
		HealthP90:  healthP90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.organismsCreated = 0
	c.stageTransitions = 0
	c.deactivations = 0
	c.allocationsGranted = 0
	c.allocationsQueued = 0
	c.claims = 0
	c.claimedAmount = 0
	c.compostGenerated = 0
	c.decayCompletions = 0
	c.dataSubmitted = 0
	c.dataValidated = 0
	c.dataRejected = 0
	c.dataExpired = 0
	c.anomalies = 0

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 {
	return c.windowTicks
}
