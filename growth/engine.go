// Package growth owns organism records and their lifecycle: stage
// progression, metric updates, biomass projection, and checkpointed
// historical queries. All elapsed-time math is tick arithmetic against
// ticks supplied by the caller.
package growth

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/pthm-cable/verdant/checkpoint"
	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/fixp"
)

// Checkpoint metric names. Stage history is kept as one series per stage:
// entering a stage records a non-zero marker in that stage's own series.
const (
	MetricBiomass = "biomass"
	MetricHealth  = "health"
)

var (
	ErrInvalidGrowthRate      = fault.New(fault.Validation, "growth rate outside allowed range")
	ErrInvalidHealthScore     = fault.New(fault.Validation, "health score outside 0..10000")
	ErrOrganismNotFound       = fault.New(fault.State, "organism not found")
	ErrOrganismNotActive      = fault.New(fault.State, "organism not active")
	ErrInvalidStageTransition = fault.New(fault.State, "stage transition not allowed")
	ErrStaleTick              = fault.New(fault.Validation, "tick precedes last update")
)

// Engine owns the organism table and its checkpoint history.
type Engine struct {
	mu sync.Mutex

	minRate uint64
	maxRate uint64
	initialHealth uint64

	organisms   map[uint64]*components.Organism
	checkpoints *checkpoint.Store
	nextID      uint64
}

// Params configures a growth engine.
type Params struct {
	MinGrowthRate uint64
	MaxGrowthRate uint64
	InitialHealth uint64
}

// NewEngine creates an empty growth engine.
func NewEngine(p Params) *Engine {
	return &Engine{
		minRate:       p.MinGrowthRate,
		maxRate:       p.MaxGrowthRate,
		initialHealth: p.InitialHealth,
		organisms:     make(map[uint64]*components.Organism),
		checkpoints:   checkpoint.NewStore(),
	}
}

// stageMetric is the series name for one stage's history.
func stageMetric(s components.GrowthStage) string {
	return "stage:" + s.String()
}

// CreateOrganism registers a new organism at tick and returns its id.
// The growth rate must sit inside the configured basis-point range.
// Three genesis checkpoints are recorded: stage, biomass, health.
func (e *Engine) CreateOrganism(tick uint64, owner, species string, initialBiomass, growthRate uint64) (uint64, error) {
	if growthRate < e.minRate || growthRate > e.maxRate {
		return 0, fault.Wrap("create organism", ErrInvalidGrowthRate)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	org := &components.Organism{
		ID:             id,
		Species:        species,
		Owner:          owner,
		BirthTick:      tick,
		Stage:          components.StageSeed,
		Biomass:        initialBiomass,
		Health:         e.initialHealth,
		GrowthRate:     growthRate,
		Active:         true,
		LastUpdateTick: tick,
	}
	e.organisms[id] = org

	e.checkpoints.Add(checkpoint.Key{Entity: id, Metric: stageMetric(components.StageSeed)}, tick, stageMarker(components.StageSeed))
	e.checkpoints.Add(checkpoint.Key{Entity: id, Metric: MetricBiomass}, tick, initialBiomass)
	e.checkpoints.Add(checkpoint.Key{Entity: id, Metric: MetricHealth}, tick, e.initialHealth)

	slog.Debug("organism created",
		"id", id, "species", species, "owner", owner,
		"biomass", initialBiomass, "growth_rate", growthRate, "tick", tick)
	return id, nil
}

// stageMarker is the non-zero value recorded in a stage series.
func stageMarker(s components.GrowthStage) uint64 {
	return uint64(s) + 1
}

// UpdateStage transitions an organism along the allowed stage graph and
// records a checkpoint in the new stage's series.
func (e *Engine) UpdateStage(tick, id uint64, newStage components.GrowthStage) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	org, ok := e.organisms[id]
	if !ok {
		return fault.Wrap("update stage", ErrOrganismNotFound)
	}
	if !org.Active {
		return fault.Wrap("update stage", ErrOrganismNotActive)
	}
	if !components.ValidStageTransition(org.Stage, newStage) {
		return fault.Wrap("update stage", ErrInvalidStageTransition)
	}
	if tick < org.LastUpdateTick {
		return fault.Wrap("update stage", ErrStaleTick)
	}

	prev := org.Stage
	org.Stage = newStage
	org.LastUpdateTick = tick
	e.checkpoints.Add(checkpoint.Key{Entity: id, Metric: stageMetric(newStage)}, tick, stageMarker(newStage))

	slog.Info("stage transition", "id", id, "from", prev.String(), "to", newStage.String(), "tick", tick)
	return nil
}

// UpdateMetrics sets biomass and health. Checkpoints are recorded only on
// change to bound storage growth.
func (e *Engine) UpdateMetrics(tick, id, biomass, health uint64) error {
	if health > fixp.ScaleBP {
		return fault.Wrap("update metrics", ErrInvalidHealthScore)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	org, ok := e.organisms[id]
	if !ok {
		return fault.Wrap("update metrics", ErrOrganismNotFound)
	}
	if !org.Active {
		return fault.Wrap("update metrics", ErrOrganismNotActive)
	}
	if tick < org.LastUpdateTick {
		return fault.Wrap("update metrics", ErrStaleTick)
	}

	if biomass != org.Biomass {
		org.Biomass = biomass
		e.checkpoints.Add(checkpoint.Key{Entity: id, Metric: MetricBiomass}, tick, biomass)
	}
	if health != org.Health {
		org.Health = health
		e.checkpoints.Add(checkpoint.Key{Entity: id, Metric: MetricHealth}, tick, health)
	}
	org.LastUpdateTick = tick
	return nil
}

// ProjectBiomass computes the expected biomass at tick without mutating
// state: biomass + (biomass * rate * elapsed / 10000) * health / 10000.
// All steps saturate. Inactive or unknown organisms project to 0.
func (e *Engine) ProjectBiomass(tick, id uint64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	org, ok := e.organisms[id]
	if !ok || !org.Active {
		return 0
	}
	elapsed := fixp.SatSub(tick, org.LastUpdateTick)
	gross := fixp.MulDiv(org.Biomass, fixp.SatMul(org.GrowthRate, elapsed), fixp.ScaleBP)
	growth := fixp.ApplyBP(gross, org.Health)
	return fixp.SatAdd(org.Biomass, growth)
}

// HistoricalMetrics returns the biomass, health, and stage in effect at
// tick. Stage resolution scans every stage series in ascending stage order
// and keeps the last stage with a non-zero checkpoint at or before tick;
// when several stages share the same checkpoint tick the highest-ordered
// one wins. This tie-break is load-bearing for downstream consumers and is
// kept as-is.
func (e *Engine) HistoricalMetrics(id, tick uint64) (biomass, health uint64, stage components.GrowthStage) {
	biomass, _ = e.checkpoints.Query(checkpoint.Key{Entity: id, Metric: MetricBiomass}, tick)
	health, _ = e.checkpoints.Query(checkpoint.Key{Entity: id, Metric: MetricHealth}, tick)

	stage = components.StageSeed
	for s := components.StageSeed; s <= components.StageDecay; s++ {
		if v, ok := e.checkpoints.Query(checkpoint.Key{Entity: id, Metric: stageMetric(s)}, tick); ok && v != 0 {
			stage = s
		}
	}
	return biomass, health, stage
}

// Deactivate flips an organism to inactive and forces its stage to decay.
// Calling it on an already-inactive organism is a no-op.
func (e *Engine) Deactivate(tick, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	org, ok := e.organisms[id]
	if !ok {
		return fault.Wrap("deactivate", ErrOrganismNotFound)
	}
	if !org.Active {
		return nil
	}

	org.Active = false
	org.Stage = components.StageDecay
	org.LastUpdateTick = tick
	e.checkpoints.Add(checkpoint.Key{Entity: id, Metric: stageMetric(components.StageDecay)}, tick, stageMarker(components.StageDecay))

	slog.Info("organism deactivated", "id", id, "tick", tick)
	return nil
}

// Active reports whether an organism exists and is active.
func (e *Engine) Active(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	org, ok := e.organisms[id]
	return ok && org.Active
}

// StageOf returns an organism's current stage.
func (e *Engine) StageOf(id uint64) (components.GrowthStage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	org, ok := e.organisms[id]
	if !ok {
		return 0, fault.Wrap("stage of", ErrOrganismNotFound)
	}
	return org.Stage, nil
}

// HealthOf returns an organism's current health score, 0 when unknown.
func (e *Engine) HealthOf(id uint64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	org, ok := e.organisms[id]
	if !ok {
		return 0
	}
	return org.Health
}

// BiomassOf returns an organism's current biomass.
func (e *Engine) BiomassOf(id uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	org, ok := e.organisms[id]
	if !ok {
		return 0, fault.Wrap("biomass of", ErrOrganismNotFound)
	}
	return org.Biomass, nil
}

// OwnerOf returns an organism's owner identity.
func (e *Engine) OwnerOf(id uint64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	org, ok := e.organisms[id]
	if !ok {
		return "", fault.Wrap("owner of", ErrOrganismNotFound)
	}
	return org.Owner, nil
}

// Get returns a copy of an organism record.
func (e *Engine) Get(id uint64) (components.Organism, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	org, ok := e.organisms[id]
	if !ok {
		return components.Organism{}, fault.Wrap("get organism", ErrOrganismNotFound)
	}
	return *org, nil
}

// IDs returns all organism ids, active or not, in ascending order.
func (e *Engine) IDs() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint64, 0, len(e.organisms))
	for id := range e.organisms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// AddPerformance credits claimed resource amounts to an organism's
// performance score. Unknown ids are ignored.
func (e *Engine) AddPerformance(id, amount uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if org, ok := e.organisms[id]; ok {
		org.PerformanceScore = fixp.SatAdd(org.PerformanceScore, amount)
	}
}

// State is the serializable contents of the engine: the population, the
// id counter, and the checkpoint series backing historical queries.
type State struct {
	Organisms   []components.Organism
	NextID      uint64
	Checkpoints []checkpoint.Series
}

// Export dumps the engine state with organisms in ascending id order.
func (e *Engine) Export() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]uint64, 0, len(e.organisms))
	for id := range e.organisms {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	st := State{NextID: e.nextID, Checkpoints: e.checkpoints.Export()}
	st.Organisms = make([]components.Organism, 0, len(ids))
	for _, id := range ids {
		st.Organisms = append(st.Organisms, *e.organisms[id])
	}
	return st
}

// RestoreState replaces the engine contents with an exported state.
func (e *Engine) RestoreState(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.organisms = make(map[uint64]*components.Organism, len(st.Organisms))
	for _, org := range st.Organisms {
		cp := org
		e.organisms[org.ID] = &cp
		if org.ID > e.nextID {
			e.nextID = org.ID
		}
	}
	if st.NextID > e.nextID {
		e.nextID = st.NextID
	}
	e.checkpoints.Restore(st.Checkpoints)
}
