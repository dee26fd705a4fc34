package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/telemetry"
)

// stagePath is the canonical progression the scenario walks organisms
// through. Harvest is reached either directly from vegetative or through
// flowering and fruiting; the driver picks per organism.
var stagePath = []components.GrowthStage{
	components.StageGermination,
	components.StageVegetative,
	components.StageFlowering,
	components.StageFruiting,
	components.StageHarvest,
}

// scenario drives a deterministic demo population against the engines.
// Every decision comes from the seeded RNG, so a run is reproducible from
// its seed and tick count alone.
type scenario struct {
	sim *Sim

	validators []string
	owners     map[uint64]string // organism -> owner identity
	progress   map[uint64]int    // organism -> index into stagePath
	shortcut   map[uint64]bool   // organism skips flowering/fruiting
}

func newScenario(s *Sim) *scenario {
	sc := &scenario{
		sim:      s,
		owners:   make(map[uint64]string),
		progress: make(map[uint64]int),
		shortcut: make(map[uint64]bool),
	}
	sc.seed()
	return sc
}

// seed registers validators and plants the initial population.
func (sc *scenario) seed() {
	s := sc.sim
	cfg := s.cfg.Scenario

	for i := 0; i < s.cfg.Oracle.Quorum; i++ {
		addr := fmt.Sprintf("validator-%d", i+1)
		if err := s.oracle.RegisterValidator(0, addr, s.cfg.Oracle.MinStake); err != nil {
			slog.Error("scenario validator registration failed", "address", addr, "error", err)
			continue
		}
		sc.validators = append(sc.validators, addr)
	}

	if len(cfg.Species) == 0 {
		return
	}
	for i := 0; i < cfg.InitialOrganisms; i++ {
		species := cfg.Species[i%len(cfg.Species)]
		id, err := s.growth.CreateOrganism(0, species.Owner, species.Name, species.InitialBiomass, species.GrowthRate)
		if err != nil {
			slog.Error("scenario organism creation failed", "species", species.Name, "error", err)
			continue
		}
		s.record(telemetry.NewOrganismCreatedEvent(0, id))
		sc.owners[id] = species.Owner
		sc.shortcut[id] = s.rng.Intn(3) == 0
	}
}

// step runs the scenario actions whose interval divides the tick.
func (sc *scenario) step(tick uint64) {
	cfg := sc.sim.cfg.Scenario

	if cfg.AllocateInterval > 0 && tick%cfg.AllocateInterval == 0 {
		sc.allocateRound(tick)
		// Every tenth round, rebalance water across the living
		// population by health.
		if tick%(cfg.AllocateInterval*10) == 0 {
			sc.rebalance(tick)
		}
	}
	if cfg.SubmitInterval > 0 && tick%cfg.SubmitInterval == 0 {
		sc.oracleRound(tick)
	}
	if cfg.StageInterval > 0 && tick%cfg.StageInterval == 0 {
		sc.stageRound(tick)
	}
	if cfg.DecayInterval > 0 && tick%cfg.DecayInterval == 0 {
		sc.decayRound(tick)
	}
}

// stageRound advances each active organism one step along its path;
// organisms past harvest retire into decay.
func (sc *scenario) stageRound(tick uint64) {
	s := sc.sim
	for _, id := range s.growth.IDs() {
		if !s.growth.Active(id) {
			continue
		}
		owner := sc.owners[id]
		idx := sc.progress[id]
		if idx >= len(stagePath) {
			if _, err := s.Retire(owner, id); err != nil {
				slog.Warn("scenario retire failed", "organism", id, "error", err)
			}
			continue
		}

		next := stagePath[idx]
		// The shortcut path harvests straight from vegetative.
		if sc.shortcut[id] && next == components.StageFlowering {
			next = components.StageHarvest
			idx = len(stagePath) - 1
		}
		if err := s.AdvanceStage(owner, id, next); err != nil {
			slog.Warn("scenario stage advance failed", "organism", id, "error", err)
			continue
		}
		sc.progress[id] = idx + 1

		// Growth realized so far becomes the recorded biomass; health
		// drifts down slightly as the organism ages.
		projected := s.growth.ProjectBiomass(tick, id)
		health := s.growth.HealthOf(id)
		if health > 200 {
			health -= uint64(s.rng.Intn(200))
		}
		if err := s.growth.UpdateMetrics(tick, id, projected, health); err != nil {
			slog.Warn("scenario metrics update failed", "organism", id, "error", err)
		}
	}
}

// allocateRound requests, claims, and occasionally releases water and
// nitrogen shares for the living population.
func (sc *scenario) allocateRound(tick uint64) {
	s := sc.sim
	resourceTypes := []components.ResourceType{components.ResourceWater, components.ResourceNitrogen}

	for _, id := range s.growth.IDs() {
		if !s.growth.Active(id) {
			continue
		}
		owner := sc.owners[id]
		rtype := resourceTypes[s.rng.Intn(len(resourceTypes))]

		if alloc, err := s.resources.Allocation(id, rtype); err == nil && alloc.Active {
			if _, err := s.ClaimResource(owner, id, rtype); err != nil {
				slog.Debug("scenario claim failed", "organism", id, "error", err)
			}
			// A third of holders give part of their share back, which
			// also drains the waiting queue.
			if s.rng.Intn(3) == 0 {
				release := alloc.Amount / 2
				if release > 0 {
					if err := s.resources.Release(tick, id, rtype, release); err != nil {
						slog.Debug("scenario release failed", "organism", id, "error", err)
					}
				}
			}
			continue
		}

		_, _, _, err := s.resources.Availability(tick, rtype)
		if err != nil {
			continue
		}
		amount := sc.requestAmount(rtype)
		priority := uint64(s.rng.Intn(101))
		if _, err := s.Allocate(owner, id, rtype, amount, priority); err != nil {
			slog.Debug("scenario allocation failed", "organism", id, "resource", rtype.String(), "error", err)
		}
	}
}

// rebalance redistributes the water pool proportionally to health.
func (sc *scenario) rebalance(tick uint64) {
	s := sc.sim
	var living []uint64
	for _, id := range s.growth.IDs() {
		if s.growth.Active(id) {
			living = append(living, id)
		}
	}
	if len(living) == 0 {
		return
	}
	if err := s.resources.OptimizeDistribution(tick, components.ResourceWater, living); err != nil {
		slog.Debug("scenario rebalance failed", "error", err)
	}
}

// requestAmount picks a request size inside the resource's allocation
// bounds.
func (sc *scenario) requestAmount(rtype components.ResourceType) uint64 {
	for _, def := range sc.sim.cfg.Resources.Definitions {
		if t, ok := components.ResourceTypeByName(def.Type); ok && t == rtype {
			span := def.MaxAllocation - def.MinAllocation
			if span == 0 {
				return def.MinAllocation
			}
			return def.MinAllocation + uint64(sc.sim.rng.Int63n(int64(span+1)))
		}
	}
	return 0
}

// oracleRound submits a biomass reading for one organism and walks the
// validators through voting; settled points get screened for anomalies.
func (sc *scenario) oracleRound(tick uint64) {
	s := sc.sim

	var living []uint64
	for _, id := range s.growth.IDs() {
		if s.growth.Active(id) {
			living = append(living, id)
		}
	}
	if len(living) == 0 || len(sc.validators) == 0 {
		return
	}
	id := living[s.rng.Intn(len(living))]
	owner := sc.owners[id]

	value := int64(s.growth.ProjectBiomass(tick, id))
	// Occasionally inject a wild reading so anomaly screening has
	// something to catch.
	if s.rng.Intn(10) == 0 {
		value *= 5
	}
	dpID, err := s.SubmitReading(owner, id, components.DataBiomass, value, fmt.Sprintf("proof-%d", tick))
	if err != nil {
		slog.Debug("scenario submission failed", "organism", id, "error", err)
		return
	}

	for _, addr := range sc.validators {
		approve := s.rng.Intn(10) != 0 // rare dissent
		confidence := 7000 + uint64(s.rng.Intn(3001))
		if err := s.CastVote(addr, dpID, approve, confidence); err != nil {
			break
		}
	}

	if isAnomaly, deviationBP, err := s.ScreenAnomaly(owner, dpID); err == nil && isAnomaly {
		slog.Info("scenario flagged anomaly", "data_point", dpID, "deviation_bp", deviationBP)
	}
}

// decayRound processes all decay records and recycles compost back into
// the nitrogen pool.
func (sc *scenario) decayRound(tick uint64) {
	s := sc.sim
	if err := s.ProcessDecayBatch("keeper"); err != nil {
		slog.Warn("scenario decay batch failed", "error", err)
		return
	}

	for _, owner := range []string{"grower-a", "grower-b"} {
		balance := s.decay.CompostBalance(owner)
		if balance < 100 {
			continue
		}
		if _, err := s.ConvertCompost(owner, balance/2, components.ResourceNitrogen); err != nil {
			slog.Debug("scenario compost conversion failed", "owner", owner, "error", err)
		}
	}
}
