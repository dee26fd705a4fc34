// Package sim wires the lifecycle engines together from configuration and
// drives them with an external tick counter. All cross-engine flows
// (deactivation into decay, compost back into resources, validated oracle
// readings into organism metrics) pass through here.
package sim

import (
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/config"
	"github.com/pthm-cable/verdant/decay"
	"github.com/pthm-cable/verdant/growth"
	"github.com/pthm-cable/verdant/oracle"
	"github.com/pthm-cable/verdant/resource"
	"github.com/pthm-cable/verdant/telemetry"
)

// Options configures a simulation run.
type Options struct {
	Seed        int64
	LogStats    bool
	WindowTicks uint64 // 0 = use config
	OutputDir   string
	SnapshotDir string
}

// Sim owns the engines and the tick counter.
type Sim struct {
	cfg  *config.Config
	opts Options
	rng  *rand.Rand
	tick uint64

	growth    *growth.Engine
	resources *resource.Pool
	decay     *decay.Engine
	oracle    *oracle.Consensus

	gate      *Gate
	collector *telemetry.Collector
	output    *telemetry.OutputManager

	scenario *scenario
}

// New builds a simulation from config. The output manager is nil when no
// output directory is given.
func New(cfg *config.Config, opts Options) (*Sim, error) {
	windowTicks := cfg.Telemetry.WindowTicks
	if opts.WindowTicks > 0 {
		windowTicks = opts.WindowTicks
	}

	s := &Sim{
		cfg:       cfg,
		opts:      opts,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		collector: telemetry.NewCollector(windowTicks),
	}

	s.growth = growth.NewEngine(growth.Params{
		MinGrowthRate: cfg.Growth.MinGrowthRate,
		MaxGrowthRate: cfg.Growth.MaxGrowthRate,
		InitialHealth: cfg.Growth.InitialHealth,
	})
	s.resources = resource.NewPool(s.growth, cfg.Resources.ClaimRateBP)
	s.decay = decay.NewEngine(s.growth, decayParams(cfg))
	s.oracle = oracle.NewConsensus(s.growth, oracleParams(cfg))

	for _, def := range cfg.Resources.Definitions {
		rtype, ok := components.ResourceTypeByName(def.Type)
		if !ok {
			continue
		}
		if err := s.resources.InitializeResource(0, rtype, def.Capacity, def.ReplenishRate, def.MinAllocation, def.MaxAllocation); err != nil {
			return nil, err
		}
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	s.output = om
	if err := s.output.WriteConfig(cfg); err != nil {
		return nil, err
	}

	s.scenario = newScenario(s)
	return s, nil
}

// decayParams flattens the decay config into engine parameters.
func decayParams(cfg *config.Config) decay.Params {
	p := decay.Params{
		TicksPerDay:       cfg.Growth.TicksPerDay,
		AdditiveFactors:   cfg.Decay.AdditiveFactors,
		DefaultAdditiveBP: cfg.Decay.DefaultAdditiveBP,
		ConversionRates:   make(map[components.ResourceType]uint64, len(cfg.Decay.ConversionRates)),
		NitrogenBP:        cfg.Decay.Nutrients.NitrogenBP,
		PhosphorusBP:      cfg.Decay.Nutrients.PhosphorusBP,
		PotassiumBP:       cfg.Decay.Nutrients.PotassiumBP,
		Defaults: components.EnvironmentalConditions{
			Temperature:       cfg.Decay.Defaults.Temperature,
			Humidity:          cfg.Decay.Defaults.Humidity,
			Oxygen:            cfg.Decay.Defaults.Oxygen,
			MicrobialActivity: cfg.Decay.Defaults.MicrobialActivity,
		},
	}
	for i, st := range cfg.Decay.Stages {
		if i >= len(p.Stages) {
			break
		}
		p.Stages[i] = decay.StageParams{
			BaseRateBP:     st.BaseRateBP,
			OptTemperature: st.OptTemperature,
			OptHumidity:    st.OptHumidity,
			OptOxygen:      st.OptOxygen,
			CompostYieldBP: st.CompostYieldBP,
		}
	}
	for name, rate := range cfg.Decay.ConversionRates {
		if rtype, ok := components.ResourceTypeByName(name); ok {
			p.ConversionRates[rtype] = rate
		}
	}
	return p
}

// oracleParams flattens the oracle config into engine parameters.
func oracleParams(cfg *config.Config) oracle.Params {
	p := oracle.Params{
		MinStake:          cfg.Oracle.MinStake,
		Quorum:            cfg.Oracle.Quorum,
		ValidationWindow:  cfg.Oracle.ValidationWindow,
		WithdrawCooldown:  cfg.Oracle.WithdrawCooldown,
		RewardPool:        cfg.Oracle.RewardPool,
		HistoryWindow:     cfg.Oracle.HistoryWindow,
		AnomalyWindow:     cfg.Oracle.AnomalyWindow,
		ReputationInitial: cfg.Oracle.Reputation.Initial,
		ReputationGain:    cfg.Oracle.Reputation.Gain,
		ReputationLoss:    cfg.Oracle.Reputation.Loss,
		SlashPenalty:      cfg.Oracle.Reputation.SlashPenalty,
		Feeds:             make(map[components.DataType]components.FeedConfig, len(cfg.Oracle.Feeds)),
		TrustedProviders:  make(map[string]bool, len(cfg.Oracle.TrustedProviders)),
	}
	for _, feed := range cfg.Oracle.Feeds {
		dtype, ok := components.DataTypeByName(feed.Type)
		if !ok {
			continue
		}
		p.Feeds[dtype] = components.FeedConfig{
			Type:                 dtype,
			Min:                  feed.Min,
			Max:                  feed.Max,
			DeviationThresholdBP: feed.DeviationThresholdBP,
		}
	}
	for _, provider := range cfg.Oracle.TrustedProviders {
		p.TrustedProviders[provider] = true
	}
	return p
}

// SetGate installs a boundary permission gate. Nil permits everything.
func (s *Sim) SetGate(g *Gate) { s.gate = g }

// Tick returns the current tick.
func (s *Sim) Tick() uint64 { return s.tick }

// Growth exposes the growth engine.
func (s *Sim) Growth() *growth.Engine { return s.growth }

// Resources exposes the resource pool.
func (s *Sim) Resources() *resource.Pool { return s.resources }

// Decay exposes the decay engine.
func (s *Sim) Decay() *decay.Engine { return s.decay }

// Oracle exposes the consensus engine.
func (s *Sim) Oracle() *oracle.Consensus { return s.oracle }

// Step advances the simulation by one tick, runs the scenario actions due
// at the new tick, and flushes telemetry at window boundaries.
func (s *Sim) Step() {
	s.tick++
	s.scenario.step(s.tick)

	if s.collector.ShouldFlush(s.tick) {
		s.flushStats()
	}
}

func (s *Sim) flushStats() {
	var healths []float64
	active := 0
	for _, id := range s.growth.IDs() {
		if !s.growth.Active(id) {
			continue
		}
		active++
		healths = append(healths, float64(s.growth.HealthOf(id)))
	}

	stats := s.collector.Flush(s.tick, active, len(s.decay.ActiveIDs()), len(s.oracle.PendingIDs()), healths)
	if s.opts.LogStats {
		stats.LogStats()
	}
	if err := s.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
}

// record forwards an event to the collector and the raw event log.
func (s *Sim) record(e telemetry.Event) {
	s.collector.Record(e)
	if err := s.output.WriteEvent(e); err != nil {
		slog.Error("failed to write event", "error", err)
	}
}

// CreateOrganism creates an organism through the boundary gate.
func (s *Sim) CreateOrganism(caller, species string, initialBiomass, growthRate uint64) (uint64, error) {
	if err := s.gate.Check(caller, CapCultivate); err != nil {
		return 0, err
	}
	id, err := s.growth.CreateOrganism(s.tick, caller, species, initialBiomass, growthRate)
	if err != nil {
		return 0, err
	}
	s.record(telemetry.NewOrganismCreatedEvent(s.tick, id))
	return id, nil
}

// AdvanceStage moves an organism along the stage graph.
func (s *Sim) AdvanceStage(caller string, id uint64, stage components.GrowthStage) error {
	if err := s.gate.Check(caller, CapCultivate); err != nil {
		return err
	}
	if err := s.growth.UpdateStage(s.tick, id, stage); err != nil {
		return err
	}
	s.record(telemetry.NewStageTransitionEvent(s.tick, id, stage))
	return nil
}

// Retire moves an organism into the decay stage, opens its decomposition
// record while it is still active, then deactivates it.
func (s *Sim) Retire(caller string, id uint64) (uint64, error) {
	if err := s.gate.Check(caller, CapCultivate); err != nil {
		return 0, err
	}
	if stage, err := s.growth.StageOf(id); err != nil {
		return 0, err
	} else if stage != components.StageDecay {
		if err := s.growth.UpdateStage(s.tick, id, components.StageDecay); err != nil {
			return 0, err
		}
		s.record(telemetry.NewStageTransitionEvent(s.tick, id, components.StageDecay))
	}

	decayID, err := s.decay.InitiateDecay(s.tick, id)
	if err != nil {
		return 0, err
	}
	if err := s.growth.Deactivate(s.tick, id); err != nil {
		return 0, err
	}
	s.record(telemetry.NewDeactivationEvent(s.tick, id))
	return decayID, nil
}

// Allocate requests a resource share for an organism, reporting whether it
// was granted immediately.
func (s *Sim) Allocate(caller string, organismID uint64, rtype components.ResourceType, amount, priority uint64) (bool, error) {
	if err := s.gate.Check(caller, CapCultivate); err != nil {
		return false, err
	}
	granted, err := s.resources.Allocate(s.tick, organismID, rtype, amount, priority)
	if err != nil {
		return false, err
	}
	s.record(telemetry.NewAllocationEvent(s.tick, organismID, rtype, amount, granted))
	return granted, nil
}

// ClaimResource releases the time-proportional share of an allocation.
func (s *Sim) ClaimResource(caller string, organismID uint64, rtype components.ResourceType) (uint64, error) {
	if err := s.gate.Check(caller, CapCultivate); err != nil {
		return 0, err
	}
	claimed, err := s.resources.Claim(s.tick, organismID, rtype)
	if err != nil {
		return 0, err
	}
	if claimed > 0 {
		s.record(telemetry.NewClaimEvent(s.tick, organismID, rtype, claimed))
	}
	return claimed, nil
}

// ProcessDecayBatch advances every active decay record and counts the
// compost generated and completions.
func (s *Sim) ProcessDecayBatch(caller string) error {
	if err := s.gate.Check(caller, CapEnvironment); err != nil {
		return err
	}
	for _, result := range s.decay.ProcessBatch(s.tick, s.decay.ActiveIDs()) {
		if result.Err != nil {
			slog.Warn("decay batch item failed", "decay_id", result.DecayID, "error", result.Err)
			continue
		}
		if result.Compost > 0 {
			s.record(telemetry.NewCompostEvent(s.tick, result.DecayID, result.Compost))
		}
		if rec, err := s.decay.Record(result.DecayID); err == nil && !rec.Active {
			s.record(telemetry.NewDecayCompleteEvent(s.tick, rec.OrganismID))
		}
	}
	return nil
}

// ConvertCompost exchanges claimable compost for a resource deposit back
// into the shared pool.
func (s *Sim) ConvertCompost(caller string, amount uint64, rtype components.ResourceType) (uint64, error) {
	if err := s.gate.Check(caller, CapEnvironment); err != nil {
		return 0, err
	}
	converted, err := s.decay.ConvertCompost(caller, amount, rtype)
	if err != nil {
		return 0, err
	}
	deposited, err := s.resources.Deposit(s.tick, rtype, converted)
	if err != nil {
		return 0, err
	}
	return deposited, nil
}

// SubmitReading submits a measurement through the boundary gate.
func (s *Sim) SubmitReading(caller string, organismID uint64, dtype components.DataType, value int64, proofHash string) (uint64, error) {
	if err := s.gate.Check(caller, CapOracle); err != nil {
		return 0, err
	}
	id, err := s.oracle.SubmitData(s.tick, organismID, dtype, value, caller, proofHash)
	if err != nil {
		return 0, err
	}
	s.record(telemetry.NewDataEvent(telemetry.EventDataSubmitted, s.tick, organismID, dtype))

	if dp, derr := s.oracle.DataPoint(id); derr == nil && dp.Status == components.DataValidated {
		s.record(telemetry.NewDataEvent(telemetry.EventDataValidated, s.tick, organismID, dtype))
	}
	return id, nil
}

// CastVote records a validator's vote and mirrors the finalization into
// telemetry.
func (s *Sim) CastVote(caller string, dataPointID uint64, approve bool, confidence uint64) error {
	if err := s.gate.Check(caller, CapOracle); err != nil {
		return err
	}
	if err := s.oracle.Validate(s.tick, caller, dataPointID, approve, confidence); err != nil {
		return err
	}
	dp, err := s.oracle.DataPoint(dataPointID)
	if err != nil {
		return nil
	}
	switch dp.Status {
	case components.DataValidated:
		s.record(telemetry.NewDataEvent(telemetry.EventDataValidated, s.tick, dp.OrganismID, dp.Type))
	case components.DataRejected:
		s.record(telemetry.NewDataEvent(telemetry.EventDataRejected, s.tick, dp.OrganismID, dp.Type))
	case components.DataExpired:
		s.record(telemetry.NewDataEvent(telemetry.EventDataExpired, s.tick, dp.OrganismID, dp.Type))
	}
	return nil
}

// ScreenAnomaly checks a data point against its feed history and records
// any flagged anomaly.
func (s *Sim) ScreenAnomaly(caller string, dataPointID uint64) (bool, uint64, error) {
	if err := s.gate.Check(caller, CapOracle); err != nil {
		return false, 0, err
	}
	isAnomaly, deviationBP, err := s.oracle.CheckAnomaly(dataPointID)
	if err != nil {
		return false, 0, err
	}
	if isAnomaly {
		dp, derr := s.oracle.DataPoint(dataPointID)
		if derr == nil {
			s.record(telemetry.NewDataEvent(telemetry.EventAnomaly, s.tick, dp.OrganismID, dp.Type))
			slog.Warn("anomalous reading", "data_point", dataPointID, "deviation_bp", deviationBP)
		}
	}
	return isAnomaly, deviationBP, nil
}

// Close flushes the final partial window and closes output files.
func (s *Sim) Close() error {
	s.flushStats()
	return s.output.Close()
}
