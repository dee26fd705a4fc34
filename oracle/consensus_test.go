package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fault"
)

// stubOrganisms is a fixed activity view for submission gating.
type stubOrganisms struct {
	active map[uint64]bool
}

func (s *stubOrganisms) Active(id uint64) bool { return s.active[id] }

func testParams() Params {
	return Params{
		MinStake:          1000,
		Quorum:            3,
		ValidationWindow:  300,
		WithdrawCooldown:  7200,
		RewardPool:        300,
		HistoryWindow:     100,
		AnomalyWindow:     10,
		ReputationInitial: 5000,
		ReputationGain:    50,
		ReputationLoss:    50,
		SlashPenalty:      1000,
		Feeds: map[components.DataType]components.FeedConfig{
			components.DataBiomass:  {Type: components.DataBiomass, Min: 0, Max: 1000000, DeviationThresholdBP: 5000},
			components.DataMoisture: {Type: components.DataMoisture, Min: 0, Max: 10000, DeviationThresholdBP: 3000},
		},
		TrustedProviders: map[string]bool{"station-1": true},
	}
}

func setupConsensus(t *testing.T) *Consensus {
	t.Helper()
	c := NewConsensus(&stubOrganisms{active: map[uint64]bool{1: true}}, testParams())
	for _, addr := range []string{"val-a", "val-b", "val-c"} {
		require.NoError(t, c.RegisterValidator(0, addr, 1000))
	}
	return c
}

func TestRegisterValidator(t *testing.T) {
	c := NewConsensus(&stubOrganisms{}, testParams())

	err := c.RegisterValidator(0, "val-a", 999)
	assert.ErrorIs(t, err, ErrInsufficientStake)

	require.NoError(t, c.RegisterValidator(0, "val-a", 1500))
	v, err := c.Validator("val-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), v.Stake)
	assert.Equal(t, uint64(5000), v.Reputation)
	assert.True(t, v.Active)

	// Later registrations accumulate stake.
	require.NoError(t, c.RegisterValidator(10, "val-a", 500))
	v, _ = c.Validator("val-a")
	assert.Equal(t, uint64(2000), v.Stake)
}

func TestSubmitDataRangeChecks(t *testing.T) {
	c := setupConsensus(t)

	_, err := c.SubmitData(0, 2, components.DataBiomass, 100, "p", "h")
	assert.ErrorIs(t, err, ErrOrganismNotActive, "unknown organism cannot receive readings")

	_, err = c.SubmitData(0, 1, components.DataMoisture, 10001, "p", "h")
	assert.ErrorIs(t, err, ErrInvalidDataRange)
	_, err = c.SubmitData(0, 1, components.DataMoisture, -1, "p", "h")
	assert.ErrorIs(t, err, ErrInvalidDataRange)

	// A data type without a configured feed is rejected the same way.
	_, err = c.SubmitData(0, 1, components.DataPH, 700, "p", "h")
	assert.ErrorIs(t, err, ErrInvalidDataRange)
}

func TestSubmitDataTrustedProvider(t *testing.T) {
	c := setupConsensus(t)

	id, err := c.SubmitData(5, 1, components.DataBiomass, 4200, "station-1", "h1")
	require.NoError(t, err)

	dp, err := c.DataPoint(id)
	require.NoError(t, err)
	assert.Equal(t, components.DataValidated, dp.Status)
	assert.Equal(t, uint64(10000), dp.Confidence)
	assert.Equal(t, []int64{4200}, c.History(1, components.DataBiomass))
}

func TestValidateQuorum(t *testing.T) {
	c := setupConsensus(t)
	id, err := c.SubmitData(10, 1, components.DataBiomass, 4200, "field-probe", "h1")
	require.NoError(t, err)

	require.NoError(t, c.Validate(11, "val-a", id, true, 8000))
	require.NoError(t, c.Validate(12, "val-b", id, true, 8000))

	dp, _ := c.DataPoint(id)
	assert.Equal(t, components.DataPending, dp.Status, "two of three approvals must not finalize")
	assert.Empty(t, c.History(1, components.DataBiomass))

	require.NoError(t, c.Validate(13, "val-c", id, true, 8000))
	dp, _ = c.DataPoint(id)
	assert.Equal(t, components.DataValidated, dp.Status)
	// Running average from zero: 4000, 6000, then 7000.
	assert.Equal(t, uint64(7000), dp.Confidence)
	assert.Equal(t, []int64{4200}, c.History(1, components.DataBiomass))

	// Reward pool splits evenly across the majority side.
	for _, addr := range []string{"val-a", "val-b", "val-c"} {
		v, _ := c.Validator(addr)
		assert.Equal(t, uint64(100), v.RewardBalance, addr)
		assert.Equal(t, uint64(5050), v.Reputation, addr)
		assert.Equal(t, uint64(1), v.CorrectValidations, addr)
		assert.Equal(t, uint64(1), v.TotalValidations, addr)
	}
}

func TestValidateRejectionQuorum(t *testing.T) {
	c := setupConsensus(t)
	require.NoError(t, c.RegisterValidator(0, "val-d", 1000))
	id, err := c.SubmitData(10, 1, components.DataBiomass, 4200, "field-probe", "h1")
	require.NoError(t, err)

	require.NoError(t, c.Validate(11, "val-a", id, true, 9000))
	require.NoError(t, c.Validate(12, "val-b", id, false, 0))
	require.NoError(t, c.Validate(13, "val-c", id, false, 0))
	require.NoError(t, c.Validate(14, "val-d", id, false, 0))

	dp, _ := c.DataPoint(id)
	assert.Equal(t, components.DataRejected, dp.Status)
	assert.Empty(t, c.History(1, components.DataBiomass), "rejected values never enter history")

	loser, _ := c.Validator("val-a")
	assert.Equal(t, uint64(4950), loser.Reputation)
	assert.Zero(t, loser.RewardBalance)
	assert.Equal(t, uint64(1), loser.IncorrectValidations)

	winner, _ := c.Validator("val-b")
	assert.Equal(t, uint64(100), winner.RewardBalance)
	assert.Equal(t, uint64(5050), winner.Reputation)
}

func TestValidateGuards(t *testing.T) {
	c := setupConsensus(t)
	id, err := c.SubmitData(10, 1, components.DataBiomass, 4200, "field-probe", "h1")
	require.NoError(t, err)

	assert.ErrorIs(t, c.Validate(11, "ghost", id, true, 5000), ErrValidatorNotFound)
	assert.ErrorIs(t, c.Validate(11, "val-a", 999, true, 5000), ErrDataPointNotFound)
	assert.ErrorIs(t, c.Validate(11, "val-a", id, true, 10001), ErrInvalidConfidence)

	require.NoError(t, c.Validate(11, "val-a", id, true, 5000))
	assert.ErrorIs(t, c.Validate(12, "val-a", id, true, 5000), ErrAlreadyVoted)
}

func TestValidateExpiry(t *testing.T) {
	c := setupConsensus(t)
	id, err := c.SubmitData(10, 1, components.DataBiomass, 4200, "field-probe", "h1")
	require.NoError(t, err)

	err = c.Validate(311, "val-a", id, true, 5000)
	assert.ErrorIs(t, err, ErrValidationExpired)

	dp, _ := c.DataPoint(id)
	assert.Equal(t, components.DataExpired, dp.Status)

	// Expired points are finalized; further votes are state errors.
	assert.ErrorIs(t, c.Validate(312, "val-b", id, true, 5000), ErrNotPending)
}

func TestValidateBatchIsolatesFailures(t *testing.T) {
	c := setupConsensus(t)
	id1, err := c.SubmitData(10, 1, components.DataBiomass, 4200, "field-probe", "h1")
	require.NoError(t, err)
	id2, err := c.SubmitData(10, 1, components.DataMoisture, 6000, "field-probe", "h2")
	require.NoError(t, err)

	results := c.ValidateBatch(11, "val-a", []uint64{id1, 999, id2}, true, 8000)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrDataPointNotFound)
	assert.NoError(t, results[2].Err, "a missing point must not abort later votes")
}

func TestSlash(t *testing.T) {
	c := setupConsensus(t)

	require.NoError(t, c.Slash(20, "val-a", 100, "late report"))
	v, _ := c.Validator("val-a")
	assert.Equal(t, uint64(900), v.Stake)
	assert.Equal(t, uint64(4000), v.Reputation)
	assert.False(t, v.Active, "stake below minimum revokes validator status")

	// Floors at zero on both axes.
	require.NoError(t, c.Slash(21, "val-a", 10000, "fabricated proof"))
	require.NoError(t, c.Slash(22, "val-a", 1, "fabricated proof"))
	require.NoError(t, c.Slash(23, "val-a", 1, "fabricated proof"))
	require.NoError(t, c.Slash(24, "val-a", 1, "fabricated proof"))
	require.NoError(t, c.Slash(25, "val-a", 1, "fabricated proof"))
	v, _ = c.Validator("val-a")
	assert.Zero(t, v.Stake)
	assert.Zero(t, v.Reputation)

	assert.ErrorIs(t, c.Slash(26, "ghost", 1, "x"), ErrValidatorNotFound)
}

func TestWithdrawStake(t *testing.T) {
	c := setupConsensus(t)
	require.NoError(t, c.RegisterValidator(0, "val-d", 2000))

	err := c.WithdrawStake(100, "val-d", 500)
	assert.ErrorIs(t, err, ErrCooldownActive)
	assert.Equal(t, fault.State, fault.KindOf(err))

	require.NoError(t, c.WithdrawStake(7200, "val-d", 500))
	v, _ := c.Validator("val-d")
	assert.Equal(t, uint64(1500), v.Stake)
	assert.True(t, v.Active)

	err = c.WithdrawStake(7200, "val-d", 2000)
	assert.ErrorIs(t, err, ErrInsufficientStake)

	require.NoError(t, c.WithdrawStake(7200, "val-d", 1000))
	v, _ = c.Validator("val-d")
	assert.Equal(t, uint64(500), v.Stake)
	assert.False(t, v.Active, "withdrawing below the minimum deactivates")
}
