package oracle

import (
	"sort"

	"github.com/pthm-cable/verdant/components"
)

// FeedHistory is one (organism, data type) rolling window of validated
// values, flattened for serialization.
type FeedHistory struct {
	OrganismID uint64
	Type       components.DataType
	Values     []int64
}

// State is the serializable contents of the consensus engine: validators,
// data points, open voting rounds, validated history, and the data point
// id counter.
type State struct {
	Validators []components.Validator
	DataPoints []components.DataPoint
	Requests   []components.ValidationRequest
	History    []FeedHistory
	NextID     uint64
}

// Export dumps the engine state in deterministic order.
func (c *Consensus) Export() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{NextID: c.nextID}

	for _, v := range c.validators {
		st.Validators = append(st.Validators, *v)
	}
	sort.Slice(st.Validators, func(i, j int) bool {
		return st.Validators[i].Address < st.Validators[j].Address
	})

	for _, dp := range c.dataPoints {
		st.DataPoints = append(st.DataPoints, *dp)
	}
	sort.Slice(st.DataPoints, func(i, j int) bool {
		return st.DataPoints[i].ID < st.DataPoints[j].ID
	})

	for _, req := range c.requests {
		cp := *req
		cp.Votes = make(map[string]bool, len(req.Votes))
		for addr, approve := range req.Votes {
			cp.Votes[addr] = approve
		}
		st.Requests = append(st.Requests, cp)
	}
	sort.Slice(st.Requests, func(i, j int) bool {
		return st.Requests[i].DataPointID < st.Requests[j].DataPointID
	})

	for key, values := range c.history {
		cp := make([]int64, len(values))
		copy(cp, values)
		st.History = append(st.History, FeedHistory{
			OrganismID: key.OrganismID,
			Type:       key.Type,
			Values:     cp,
		})
	}
	sort.Slice(st.History, func(i, j int) bool {
		a, b := st.History[i], st.History[j]
		if a.OrganismID != b.OrganismID {
			return a.OrganismID < b.OrganismID
		}
		return a.Type < b.Type
	})
	return st
}

// Restore replaces the engine contents with an exported state.
func (c *Consensus) Restore(st State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.validators = make(map[string]*components.Validator, len(st.Validators))
	for _, v := range st.Validators {
		cp := v
		c.validators[v.Address] = &cp
	}

	c.dataPoints = make(map[uint64]*components.DataPoint, len(st.DataPoints))
	for _, dp := range st.DataPoints {
		cp := dp
		c.dataPoints[dp.ID] = &cp
	}

	c.requests = make(map[uint64]*components.ValidationRequest, len(st.Requests))
	for _, req := range st.Requests {
		cp := req
		cp.Votes = make(map[string]bool, len(req.Votes))
		for addr, approve := range req.Votes {
			cp.Votes[addr] = approve
		}
		c.requests[req.DataPointID] = &cp
	}

	c.history = make(map[historyKey][]int64, len(st.History))
	for _, fh := range st.History {
		values := make([]int64, len(fh.Values))
		copy(values, fh.Values)
		c.history[historyKey{OrganismID: fh.OrganismID, Type: fh.Type}] = values
	}

	c.nextID = st.NextID
}
