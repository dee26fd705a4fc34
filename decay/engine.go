// Package decay simulates per-organism decomposition driven by
// environmental conditions, feeding a per-owner compost ledger and
// nutrient recovery pools. Decay advances lazily: biomass loss is computed
// from elapsed ticks on each processing call, never by a background timer.
package decay

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/fixp"
)

var (
	ErrOrganismNotDecaying = fault.New(fault.State, "organism not active in decay stage")
	ErrRecordNotFound      = fault.New(fault.State, "decay record not found")
	ErrRecordNotActive     = fault.New(fault.State, "decay record not active")
	ErrNotOwner            = fault.New(fault.Authorization, "caller does not own decay record")
	ErrInvalidHumidity     = fault.New(fault.Validation, "humidity outside 0..10000")
	ErrInvalidOxygen       = fault.New(fault.Validation, "oxygen outside 0..10000")
	ErrInsufficientCompost = fault.New(fault.Exhausted, "insufficient compost balance")
	ErrNoConversionRate    = fault.New(fault.Validation, "no conversion rate for resource type")
)

// GrowthDirectory is the narrow view of the growth engine the decay engine
// needs to validate initiation and capture starting biomass.
type GrowthDirectory interface {
	Active(id uint64) bool
	StageOf(id uint64) (components.GrowthStage, error)
	OwnerOf(id uint64) (string, error)
	BiomassOf(id uint64) (uint64, error)
}

// NutrientPools accumulates fixed-ratio byproducts recovered at stage
// transitions.
type NutrientPools struct {
	Nitrogen   uint64
	Phosphorus uint64
	Potassium  uint64
}

// Params configures a decay engine.
type Params struct {
	TicksPerDay uint64
	// Stages indexes kinetics by components.DecayStage.
	Stages [5]StageParams
	// AdditiveFactors maps additive name to immediate reduction in bp.
	AdditiveFactors   map[string]uint64
	DefaultAdditiveBP uint64
	// ConversionRates maps resource type to compost conversion rate in bp.
	ConversionRates map[components.ResourceType]uint64
	// NutrientBP holds recovery ratios applied to biomass lost across a
	// stage transition.
	NitrogenBP   uint64
	PhosphorusBP uint64
	PotassiumBP  uint64
	// Defaults is the environment assigned at initiation.
	Defaults components.EnvironmentalConditions
}

// Engine owns decay records, their environments, the compost ledger, and
// the nutrient recovery pools.
type Engine struct {
	mu sync.Mutex

	params Params
	growth GrowthDirectory

	records      map[uint64]*components.DecayingOrganism
	environments map[uint64]*components.EnvironmentalConditions
	ledger       map[string]uint64 // owner -> claimable compost
	nutrients    NutrientPools
	nextID       uint64
}

// NewEngine creates an empty decay engine.
func NewEngine(growth GrowthDirectory, params Params) *Engine {
	return &Engine{
		params:       params,
		growth:       growth,
		records:      make(map[uint64]*components.DecayingOrganism),
		environments: make(map[uint64]*components.EnvironmentalConditions),
		ledger:       make(map[string]uint64),
	}
}

// InitiateDecay opens a decomposition record for an organism that is
// active and already in the decay growth stage, under default
// environmental conditions.
func (e *Engine) InitiateDecay(tick, organismID uint64) (uint64, error) {
	if !e.growth.Active(organismID) {
		return 0, fault.Wrap("initiate decay", ErrOrganismNotDecaying)
	}
	stage, err := e.growth.StageOf(organismID)
	if err != nil || stage != components.StageDecay {
		return 0, fault.Wrap("initiate decay", ErrOrganismNotDecaying)
	}
	owner, err := e.growth.OwnerOf(organismID)
	if err != nil {
		return 0, fault.Wrap("initiate decay", err)
	}

	biomass, err := e.growth.BiomassOf(organismID)
	if err != nil {
		return 0, fault.Wrap("initiate decay", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.records[id] = &components.DecayingOrganism{
		ID:             id,
		OrganismID:     organismID,
		Owner:          owner,
		InitialBiomass: biomass,
		Remaining:      biomass,
		DecayStartTick: tick,
		LastUpdateTick: tick,
		Stage:          components.DecayFresh,
		Active:         true,
	}
	env := e.params.Defaults
	env.LastUpdateTick = tick
	e.environments[id] = &env

	slog.Info("decay initiated", "decay_id", id, "organism", organismID, "biomass", biomass, "tick", tick)
	return id, nil
}

// ProcessDecay advances one record by the ticks elapsed since its last
// update and returns the compost generated. Zero elapsed ticks is a no-op.
func (e *Engine) ProcessDecay(tick, decayID uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processLocked(tick, decayID)
}

func (e *Engine) processLocked(tick, decayID uint64) (uint64, error) {
	rec, ok := e.records[decayID]
	if !ok {
		return 0, fault.Wrap("process decay", ErrRecordNotFound)
	}
	if !rec.Active {
		return 0, fault.Wrap("process decay", ErrRecordNotActive)
	}

	elapsed := fixp.SatSub(tick, rec.LastUpdateTick)
	if elapsed == 0 {
		return 0, nil
	}
	env := e.environments[decayID]
	sp := e.params.Stages[rec.Stage]

	rate := effectiveRateBP(*env, sp)
	lost := biomassLost(rec.Remaining, rate, elapsed, e.params.TicksPerDay)

	rec.Remaining -= lost
	rec.LastUpdateTick = tick

	compost := fixp.ApplyBP(lost, sp.CompostYieldBP)
	if compost > 0 {
		rec.CompostGenerated = fixp.SatAdd(rec.CompostGenerated, compost)
		e.ledger[rec.Owner] = fixp.SatAdd(e.ledger[rec.Owner], compost)
	}

	newStage := components.DecayStageFor(rec.Remaining, rec.InitialBiomass)
	if newStage != rec.Stage {
		e.recoverNutrients(lost)
		slog.Info("decay stage transition",
			"decay_id", decayID, "from", rec.Stage.String(), "to", newStage.String(),
			"remaining", rec.Remaining, "tick", tick)
		rec.Stage = newStage
	}

	if rec.Remaining == 0 || rec.Stage == components.DecayCompost {
		rec.Active = false
		slog.Info("decay complete", "decay_id", decayID, "compost_total", rec.CompostGenerated, "tick", tick)
	}
	return compost, nil
}

// recoverNutrients credits fixed-ratio byproducts of the biomass lost this
// step into the recovery pools. Caller holds the lock.
func (e *Engine) recoverNutrients(lost uint64) {
	e.nutrients.Nitrogen = fixp.SatAdd(e.nutrients.Nitrogen, fixp.ApplyBP(lost, e.params.NitrogenBP))
	e.nutrients.Phosphorus = fixp.SatAdd(e.nutrients.Phosphorus, fixp.ApplyBP(lost, e.params.PhosphorusBP))
	e.nutrients.Potassium = fixp.SatAdd(e.nutrients.Potassium, fixp.ApplyBP(lost, e.params.PotassiumBP))
}

// BatchResult reports the outcome for one id in a batch run.
type BatchResult struct {
	DecayID uint64
	Compost uint64
	Err     error
}

// ProcessBatch runs ProcessDecay over the given ids. Each id commits
// independently; a failure on one id never aborts the rest.
func (e *Engine) ProcessBatch(tick uint64, decayIDs []uint64) []BatchResult {
	results := make([]BatchResult, 0, len(decayIDs))
	for _, id := range decayIDs {
		compost, err := e.ProcessDecay(tick, id)
		results = append(results, BatchResult{DecayID: id, Compost: compost, Err: err})
	}
	return results
}

// UpdateEnvironment installs fresh environmental readings for a record and
// recomputes microbial activity from the blend.
func (e *Engine) UpdateEnvironment(tick, decayID uint64, temperature int64, humidity, oxygen uint64) error {
	if humidity > fixp.ScaleBP {
		return fault.Wrap("update environment", ErrInvalidHumidity)
	}
	if oxygen > fixp.ScaleBP {
		return fault.Wrap("update environment", ErrInvalidOxygen)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[decayID]
	if !ok {
		return fault.Wrap("update environment", ErrRecordNotFound)
	}
	if !rec.Active {
		return fault.Wrap("update environment", ErrRecordNotActive)
	}

	env := e.environments[decayID]
	env.Temperature = temperature
	env.Humidity = humidity
	env.Oxygen = oxygen
	env.MicrobialActivity = blendedMicrobialActivity(temperature, humidity, oxygen)
	env.LastUpdateTick = tick
	return nil
}

// AccelerateDecay applies an additive's immediate biomass reduction.
// Owner-only. The record's stage is recomputed so the stage function
// invariant holds after the jump.
func (e *Engine) AccelerateDecay(tick, decayID uint64, caller, additive string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[decayID]
	if !ok {
		return fault.Wrap("accelerate decay", ErrRecordNotFound)
	}
	if rec.Owner != caller {
		return fault.Wrap("accelerate decay", ErrNotOwner)
	}
	if !rec.Active {
		return fault.Wrap("accelerate decay", ErrRecordNotActive)
	}

	factor, ok := e.params.AdditiveFactors[additive]
	if !ok {
		factor = e.params.DefaultAdditiveBP
	}
	reduction := fixp.ApplyBP(rec.Remaining, factor)
	rec.Remaining -= reduction
	rec.LastUpdateTick = tick
	rec.Stage = components.DecayStageFor(rec.Remaining, rec.InitialBiomass)
	if rec.Remaining == 0 || rec.Stage == components.DecayCompost {
		rec.Active = false
	}

	slog.Debug("decay accelerated", "decay_id", decayID, "additive", additive, "reduction", reduction, "tick", tick)
	return nil
}

// Record returns a copy of a decay record.
func (e *Engine) Record(decayID uint64) (components.DecayingOrganism, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[decayID]
	if !ok {
		return components.DecayingOrganism{}, fault.Wrap("decay record", ErrRecordNotFound)
	}
	return *rec, nil
}

// Environment returns a copy of a record's environmental conditions.
func (e *Engine) Environment(decayID uint64) (components.EnvironmentalConditions, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	env, ok := e.environments[decayID]
	if !ok {
		return components.EnvironmentalConditions{}, fault.Wrap("decay environment", ErrRecordNotFound)
	}
	return *env, nil
}

// ActiveIDs returns the ids of all active decay records in ascending order.
func (e *Engine) ActiveIDs() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint64, 0, len(e.records))
	for id, rec := range e.records {
		if rec.Active {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Nutrients returns the current recovery pool totals.
func (e *Engine) Nutrients() NutrientPools {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nutrients
}
