// Package oracle accepts externally measured organism readings, runs them
// through stake-backed validator voting, and keeps a rolling history of
// validated values per feed for anomaly screening. Trusted providers skip
// the vote; everyone else needs a quorum before a reading counts.
package oracle

import (
	"log/slog"
	"sync"

	"github.com/pthm-cable/verdant/components"
	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/fixp"
)

var (
	ErrInsufficientStake   = fault.New(fault.Exhausted, "stake below required minimum")
	ErrValidatorNotFound   = fault.New(fault.State, "validator not registered")
	ErrValidatorNotActive  = fault.New(fault.State, "validator not active")
	ErrOrganismNotActive   = fault.New(fault.State, "organism not active")
	ErrInvalidDataRange    = fault.New(fault.Validation, "value outside configured feed range")
	ErrDataPointNotFound   = fault.New(fault.State, "data point not found")
	ErrNotPending          = fault.New(fault.State, "data point already finalized")
	ErrValidationExpired   = fault.New(fault.State, "validation deadline passed")
	ErrAlreadyVoted        = fault.New(fault.State, "validator already voted on data point")
	ErrInvalidConfidence   = fault.New(fault.Validation, "confidence outside 0..10000")
	ErrCooldownActive      = fault.New(fault.State, "withdraw cooldown since last activity not elapsed")
	ErrInsufficientHistory = fault.New(fault.State, "not enough validated history for feed")
)

// OrganismDirectory is the growth-engine view needed to gate submissions.
type OrganismDirectory interface {
	Active(id uint64) bool
}

// Params configures the consensus engine.
type Params struct {
	MinStake         uint64
	Quorum           int
	ValidationWindow uint64 // ticks until a pending request expires
	WithdrawCooldown uint64 // ticks since last validator activity
	RewardPool       uint64 // split evenly among majority voters per round
	HistoryWindow    int    // retained validated values per feed
	AnomalyWindow    int    // moving-average sample size

	ReputationInitial uint64
	ReputationGain    uint64
	ReputationLoss    uint64
	SlashPenalty      uint64

	Feeds            map[components.DataType]components.FeedConfig
	TrustedProviders map[string]bool
}

type historyKey struct {
	OrganismID uint64
	Type       components.DataType
}

// Consensus owns the validator registry, the data-point lifecycle, and the
// per-feed rolling history of validated values.
type Consensus struct {
	mu sync.Mutex

	params Params
	growth OrganismDirectory

	validators map[string]*components.Validator
	dataPoints map[uint64]*components.DataPoint
	requests   map[uint64]*components.ValidationRequest
	history    map[historyKey][]int64
	nextID     uint64
}

// NewConsensus creates an empty consensus engine.
func NewConsensus(growth OrganismDirectory, params Params) *Consensus {
	return &Consensus{
		params:     params,
		growth:     growth,
		validators: make(map[string]*components.Validator),
		dataPoints: make(map[uint64]*components.DataPoint),
		requests:   make(map[uint64]*components.ValidationRequest),
		history:    make(map[historyKey][]int64),
	}
}

// RegisterValidator records new stake for an address. First registration
// starts reputation at the configured initial value; later calls accumulate
// stake. The combined stake must meet the minimum.
func (c *Consensus) RegisterValidator(tick uint64, address string, stake uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validators[address]
	if !ok {
		if stake < c.params.MinStake {
			return fault.Wrap("register validator", ErrInsufficientStake)
		}
		c.validators[address] = &components.Validator{
			Address:        address,
			Stake:          stake,
			Reputation:     c.params.ReputationInitial,
			LastActiveTick: tick,
			Active:         true,
		}
		slog.Info("validator registered", "address", address, "stake", stake, "tick", tick)
		return nil
	}

	v.Stake = fixp.SatAdd(v.Stake, stake)
	if v.Stake < c.params.MinStake {
		return fault.Wrap("register validator", ErrInsufficientStake)
	}
	v.Active = true
	v.LastActiveTick = tick
	return nil
}

// SubmitData records a measurement for an active organism. Values are
// checked against the feed's configured range; a data type without a feed
// is rejected outright. Trusted providers validate immediately at full
// confidence; all other submissions open a voting round.
func (c *Consensus) SubmitData(tick, organismID uint64, dtype components.DataType, value int64, provider, proofHash string) (uint64, error) {
	if !c.growth.Active(organismID) {
		return 0, fault.Wrap("submit data", ErrOrganismNotActive)
	}
	feed, ok := c.params.Feeds[dtype]
	if !ok || value < feed.Min || value > feed.Max {
		return 0, fault.Wrap("submit data", ErrInvalidDataRange)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	dp := &components.DataPoint{
		ID:             id,
		OrganismID:     organismID,
		Type:           dtype,
		Value:          value,
		SubmissionTick: tick,
		Provider:       provider,
		Status:         components.DataPending,
		ProofHash:      proofHash,
	}
	c.dataPoints[id] = dp

	if c.params.TrustedProviders[provider] {
		dp.Status = components.DataValidated
		dp.Confidence = fixp.ScaleBP
		c.pushHistory(dp)
		slog.Info("data point auto-validated", "data_point", id, "feed", dtype.String(), "provider", provider, "tick", tick)
		return id, nil
	}

	c.requests[id] = &components.ValidationRequest{
		DataPointID:   id,
		RequiredVotes: c.params.Quorum,
		DeadlineTick:  tick + c.params.ValidationWindow,
		Votes:         make(map[string]bool),
	}
	slog.Debug("data point submitted", "data_point", id, "feed", dtype.String(), "organism", organismID, "tick", tick)
	return id, nil
}

// Validate records one validator's vote on a pending data point. Approving
// votes fold their confidence into the point's running average. Reaching
// quorum on either side finalizes the point, settles reputation, and pays
// the reward pool out to the majority side.
func (c *Consensus) Validate(tick uint64, address string, dataPointID uint64, approve bool, confidence uint64) error {
	if confidence > fixp.ScaleBP {
		return fault.Wrap("validate", ErrInvalidConfidence)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validators[address]
	if !ok {
		return fault.Wrap("validate", ErrValidatorNotFound)
	}
	if !v.Active {
		return fault.Wrap("validate", ErrValidatorNotActive)
	}
	dp, ok := c.dataPoints[dataPointID]
	if !ok {
		return fault.Wrap("validate", ErrDataPointNotFound)
	}
	if dp.Status != components.DataPending {
		return fault.Wrap("validate", ErrNotPending)
	}
	req := c.requests[dataPointID]
	if tick > req.DeadlineTick {
		dp.Status = components.DataExpired
		slog.Info("data point expired", "data_point", dataPointID, "deadline", req.DeadlineTick, "tick", tick)
		return fault.Wrap("validate", ErrValidationExpired)
	}
	if _, voted := req.Votes[address]; voted {
		return fault.Wrap("validate", ErrAlreadyVoted)
	}

	req.Votes[address] = approve
	if approve {
		req.Approvals++
		dp.Confidence = (dp.Confidence + confidence) / 2
	} else {
		req.Rejections++
	}
	v.TotalValidations++
	v.LastActiveTick = tick

	switch {
	case req.Approvals >= req.RequiredVotes:
		c.finalize(dp, req, components.DataValidated)
	case req.Rejections >= req.RequiredVotes:
		c.finalize(dp, req, components.DataRejected)
	}
	return nil
}

// finalize settles a voting round. Caller holds the lock.
func (c *Consensus) finalize(dp *components.DataPoint, req *components.ValidationRequest, status components.DataStatus) {
	dp.Status = status
	if status == components.DataValidated {
		c.pushHistory(dp)
	}

	majority := status == components.DataValidated
	winners := 0
	for address, vote := range req.Votes {
		if vote == majority && c.validators[address] != nil {
			winners++
		}
	}
	var share uint64
	if winners > 0 {
		share = c.params.RewardPool / uint64(winners)
	}
	for address, vote := range req.Votes {
		v := c.validators[address]
		if v == nil {
			continue
		}
		if vote == majority {
			v.RewardBalance = fixp.SatAdd(v.RewardBalance, share)
			v.Reputation = fixp.Clamp(fixp.SatAdd(v.Reputation, c.params.ReputationGain), 0, fixp.ScaleBP)
			v.CorrectValidations++
		} else {
			v.Reputation = fixp.SatSub(v.Reputation, c.params.ReputationLoss)
			v.IncorrectValidations++
		}
	}
	slog.Info("data point finalized",
		"data_point", dp.ID, "status", string(status),
		"approvals", req.Approvals, "rejections", req.Rejections, "confidence", dp.Confidence)
}

// pushHistory appends a validated value to its feed's rolling window.
// Caller holds the lock.
func (c *Consensus) pushHistory(dp *components.DataPoint) {
	key := historyKey{OrganismID: dp.OrganismID, Type: dp.Type}
	h := append(c.history[key], dp.Value)
	if len(h) > c.params.HistoryWindow {
		h = h[len(h)-c.params.HistoryWindow:]
	}
	c.history[key] = h
}

// VoteResult reports the outcome for one data point in a batch vote.
type VoteResult struct {
	DataPointID uint64
	Err         error
}

// ValidateBatch casts the same validator's vote across several data points.
// Each vote commits independently.
func (c *Consensus) ValidateBatch(tick uint64, address string, dataPointIDs []uint64, approve bool, confidence uint64) []VoteResult {
	results := make([]VoteResult, 0, len(dataPointIDs))
	for _, id := range dataPointIDs {
		err := c.Validate(tick, address, id, approve, confidence)
		results = append(results, VoteResult{DataPointID: id, Err: err})
	}
	return results
}

// Slash reduces a validator's stake and reputation, flooring both at zero,
// and revokes validator status when stake drops below the minimum.
func (c *Consensus) Slash(tick uint64, address string, amount uint64, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validators[address]
	if !ok {
		return fault.Wrap("slash", ErrValidatorNotFound)
	}
	v.Stake = fixp.SatSub(v.Stake, amount)
	v.Reputation = fixp.SatSub(v.Reputation, c.params.SlashPenalty)
	if v.Stake < c.params.MinStake {
		v.Active = false
	}
	slog.Warn("validator slashed",
		"address", address, "amount", amount, "reason", reason,
		"stake", v.Stake, "active", v.Active, "tick", tick)
	return nil
}

// WithdrawStake releases stake back to the validator after the cooldown
// since their last activity. Dropping below the minimum deactivates them.
func (c *Consensus) WithdrawStake(tick uint64, address string, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validators[address]
	if !ok {
		return fault.Wrap("withdraw stake", ErrValidatorNotFound)
	}
	if fixp.SatSub(tick, v.LastActiveTick) < c.params.WithdrawCooldown {
		return fault.Wrap("withdraw stake", ErrCooldownActive)
	}
	if amount > v.Stake {
		return fault.Wrap("withdraw stake", ErrInsufficientStake)
	}
	v.Stake -= amount
	if v.Stake < c.params.MinStake {
		v.Active = false
	}
	slog.Info("stake withdrawn", "address", address, "amount", amount, "stake", v.Stake, "tick", tick)
	return nil
}

// DataPoint returns a copy of a submitted data point.
func (c *Consensus) DataPoint(id uint64) (components.DataPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dp, ok := c.dataPoints[id]
	if !ok {
		return components.DataPoint{}, fault.Wrap("data point", ErrDataPointNotFound)
	}
	return *dp, nil
}

// Validator returns a copy of a registered validator.
func (c *Consensus) Validator(address string) (components.Validator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.validators[address]
	if !ok {
		return components.Validator{}, fault.Wrap("validator", ErrValidatorNotFound)
	}
	return *v, nil
}

// History returns a copy of the validated-value window for one feed.
func (c *Consensus) History(organismID uint64, dtype components.DataType) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history[historyKey{OrganismID: organismID, Type: dtype}]
	out := make([]int64, len(h))
	copy(out, h)
	return out
}

// PendingIDs returns the ids of data points still awaiting quorum.
func (c *Consensus) PendingIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint64, 0, len(c.requests))
	for id, req := range c.requests {
		if c.dataPoints[req.DataPointID].Status == components.DataPending {
			ids = append(ids, id)
		}
	}
	return ids
}
