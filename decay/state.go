package decay

import (
	"sort"

	"github.com/pthm-cable/verdant/components"
)

// CompostBalance is one owner's claimable compost, flattened for
// serialization.
type CompostBalance struct {
	Owner  string
	Amount uint64
}

// State is the serializable contents of the engine: decay records with
// their environments, the compost ledger, the nutrient pools, and the
// record id counter.
type State struct {
	Records      []components.DecayingOrganism
	Environments map[uint64]components.EnvironmentalConditions
	Ledger       []CompostBalance
	Nutrients    NutrientPools
	NextID       uint64
}

// Export dumps the engine state in deterministic order.
func (e *Engine) Export() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Environments: make(map[uint64]components.EnvironmentalConditions, len(e.environments)),
		Nutrients:    e.nutrients,
		NextID:       e.nextID,
	}

	for _, rec := range e.records {
		st.Records = append(st.Records, *rec)
	}
	sort.Slice(st.Records, func(i, j int) bool {
		return st.Records[i].ID < st.Records[j].ID
	})

	for id, env := range e.environments {
		st.Environments[id] = *env
	}

	for owner, amount := range e.ledger {
		st.Ledger = append(st.Ledger, CompostBalance{Owner: owner, Amount: amount})
	}
	sort.Slice(st.Ledger, func(i, j int) bool {
		return st.Ledger[i].Owner < st.Ledger[j].Owner
	})
	return st
}

// Restore replaces the engine contents with an exported state.
func (e *Engine) Restore(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.records = make(map[uint64]*components.DecayingOrganism, len(st.Records))
	for _, rec := range st.Records {
		cp := rec
		e.records[rec.ID] = &cp
	}

	e.environments = make(map[uint64]*components.EnvironmentalConditions, len(st.Environments))
	for id, env := range st.Environments {
		cp := env
		e.environments[id] = &cp
	}

	e.ledger = make(map[string]uint64, len(st.Ledger))
	for _, bal := range st.Ledger {
		e.ledger[bal.Owner] = bal.Amount
	}

	e.nutrients = st.Nutrients
	e.nextID = st.NextID
}
