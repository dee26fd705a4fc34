package growth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/verdant/components"
)

func newTestEngine() *Engine {
	return NewEngine(Params{MinGrowthRate: 1, MaxGrowthRate: 1000, InitialHealth: 10000})
}

func TestCreateOrganism(t *testing.T) {
	e := newTestEngine()

	id, err := e.CreateOrganism(10, "grower-a", "fastvine", 2000, 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	org, err := e.Get(id)
	require.NoError(t, err)
	assert.Equal(t, components.StageSeed, org.Stage)
	assert.Equal(t, uint64(2000), org.Biomass)
	assert.Equal(t, uint64(10000), org.Health)
	assert.True(t, org.Active)

	// Genesis checkpoints are queryable at the birth tick.
	biomass, health, stage := e.HistoricalMetrics(id, 10)
	assert.Equal(t, uint64(2000), biomass)
	assert.Equal(t, uint64(10000), health)
	assert.Equal(t, components.StageSeed, stage)
}

func TestCreateOrganismRejectsGrowthRate(t *testing.T) {
	e := newTestEngine()
	for _, rate := range []uint64{0, 1001, 99999} {
		_, err := e.CreateOrganism(0, "o", "s", 100, rate)
		assert.ErrorIs(t, err, ErrInvalidGrowthRate, "rate %d", rate)
	}
}

func TestUpdateStage(t *testing.T) {
	e := newTestEngine()
	id, err := e.CreateOrganism(0, "o", "s", 100, 50)
	require.NoError(t, err)

	require.NoError(t, e.UpdateStage(5, id, components.StageGermination))
	require.NoError(t, e.UpdateStage(10, id, components.StageVegetative))
	require.NoError(t, e.UpdateStage(15, id, components.StageFlowering))
	require.NoError(t, e.UpdateStage(20, id, components.StageFruiting))
	require.NoError(t, e.UpdateStage(25, id, components.StageHarvest))

	org, _ := e.Get(id)
	assert.Equal(t, components.StageHarvest, org.Stage)
}

func TestUpdateStageRejectsInvalidEdge(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)

	err := e.UpdateStage(5, id, components.StageHarvest)
	assert.ErrorIs(t, err, ErrInvalidStageTransition)

	// Failed transition leaves state unchanged.
	org, _ := e.Get(id)
	assert.Equal(t, components.StageSeed, org.Stage)
}

func TestUpdateStageDecayAlwaysLegal(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)

	require.NoError(t, e.UpdateStage(5, id, components.StageDecay))
	err := e.UpdateStage(10, id, components.StageSeed)
	assert.ErrorIs(t, err, ErrInvalidStageTransition, "decay has no outgoing edges")
}

func TestUpdateStageInactive(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)
	require.NoError(t, e.Deactivate(5, id))

	err := e.UpdateStage(10, id, components.StageGermination)
	assert.ErrorIs(t, err, ErrOrganismNotActive)
}

func TestUpdateMetrics(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)

	require.NoError(t, e.UpdateMetrics(10, id, 150, 9000))
	org, _ := e.Get(id)
	assert.Equal(t, uint64(150), org.Biomass)
	assert.Equal(t, uint64(9000), org.Health)

	err := e.UpdateMetrics(20, id, 150, 10001)
	assert.ErrorIs(t, err, ErrInvalidHealthScore)
}

func TestProjectBiomassZeroElapsed(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(100, "o", "s", 100, 50)
	assert.Equal(t, uint64(100), e.ProjectBiomass(100, id))
}

func TestProjectBiomass(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 10000, 100)

	// gross = 10000 * 100bp * 10 ticks / 10000 = 1000, at full health.
	assert.Equal(t, uint64(11000), e.ProjectBiomass(10, id))

	// Health halves the effective growth.
	require.NoError(t, e.UpdateMetrics(0, id, 10000, 5000))
	assert.Equal(t, uint64(10500), e.ProjectBiomass(10, id))
}

func TestProjectBiomassInactive(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 10000, 100)
	require.NoError(t, e.Deactivate(1, id))
	assert.Equal(t, uint64(0), e.ProjectBiomass(10, id))
	assert.Equal(t, uint64(0), e.ProjectBiomass(10, 999), "unknown organism projects to 0")
}

func TestProjectBiomassSaturates(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", math.MaxUint64/2, 1000)
	got := e.ProjectBiomass(1_000_000, id)
	assert.Equal(t, uint64(math.MaxUint64), got, "projection must saturate, not wrap")
}

func TestHistoricalMetrics(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)
	require.NoError(t, e.UpdateMetrics(10, id, 200, 8000))
	require.NoError(t, e.UpdateStage(20, id, components.StageGermination))
	require.NoError(t, e.UpdateMetrics(30, id, 400, 6000))

	biomass, health, stage := e.HistoricalMetrics(id, 5)
	assert.Equal(t, uint64(100), biomass)
	assert.Equal(t, uint64(10000), health)
	assert.Equal(t, components.StageSeed, stage)

	biomass, health, stage = e.HistoricalMetrics(id, 25)
	assert.Equal(t, uint64(200), biomass)
	assert.Equal(t, uint64(8000), health)
	assert.Equal(t, components.StageGermination, stage)

	biomass, _, _ = e.HistoricalMetrics(id, 1000)
	assert.Equal(t, uint64(400), biomass)
}

func TestHistoricalStageTieBreak(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)
	// Two stage checkpoints at the same tick: the higher-ordered stage wins.
	require.NoError(t, e.UpdateStage(0, id, components.StageGermination))

	_, _, stage := e.HistoricalMetrics(id, 0)
	assert.Equal(t, components.StageGermination, stage)
}

func TestHistoricalMetricsBeforeBirth(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(50, "o", "s", 100, 50)

	biomass, health, stage := e.HistoricalMetrics(id, 10)
	assert.Zero(t, biomass)
	assert.Zero(t, health)
	assert.Equal(t, components.StageSeed, stage)
}

func TestDeactivateIdempotent(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)

	require.NoError(t, e.Deactivate(5, id))
	require.NoError(t, e.Deactivate(6, id), "second deactivate is a no-op")

	org, _ := e.Get(id)
	assert.False(t, org.Active)
	assert.Equal(t, components.StageDecay, org.Stage)
	assert.False(t, e.Active(id))
}

func TestAddPerformance(t *testing.T) {
	e := newTestEngine()
	id, _ := e.CreateOrganism(0, "o", "s", 100, 50)
	e.AddPerformance(id, 70)
	e.AddPerformance(id, 30)
	org, _ := e.Get(id)
	assert.Equal(t, uint64(100), org.PerformanceScore)
}
