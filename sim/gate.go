package sim

import (
	"sync"

	"github.com/pthm-cable/verdant/fault"
)

// Capabilities checked at the simulation boundary. The engines themselves
// only enforce ownership; role-style permissions live here.
const (
	CapCultivate   = "cultivate"   // create organisms, allocate and claim resources
	CapEnvironment = "environment" // update decay environments, apply additives
	CapOracle      = "oracle"      // submit readings, vote, withdraw stake
	CapAdmin       = "admin"       // slash validators, initialize resources
)

var ErrPermissionDenied = fault.New(fault.Authorization, "caller lacks required capability")

// Gate maps caller identities to granted capabilities. A nil Gate permits
// everything, which keeps engine-level tests free of authorization setup.
type Gate struct {
	mu     sync.RWMutex
	grants map[string]map[string]bool
}

// NewGate creates a gate from caller -> capability grants.
func NewGate(grants map[string][]string) *Gate {
	g := &Gate{grants: make(map[string]map[string]bool, len(grants))}
	for caller, caps := range grants {
		set := make(map[string]bool, len(caps))
		for _, c := range caps {
			set[c] = true
		}
		g.grants[caller] = set
	}
	return g
}

// Grant adds a capability for a caller.
func (g *Gate) Grant(caller, capability string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grants[caller] == nil {
		g.grants[caller] = make(map[string]bool)
	}
	g.grants[caller][capability] = true
}

// Revoke removes a capability from a caller.
func (g *Gate) Revoke(caller, capability string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.grants[caller], capability)
}

// Check returns nil when the caller holds the capability. Admin implies
// every other capability.
func (g *Gate) Check(caller, capability string) error {
	if g == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.grants[caller]
	if set[capability] || set[CapAdmin] {
		return nil
	}
	return fault.Wrap("gate "+capability, ErrPermissionDenied)
}
