package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/verdant/decay"
	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/growth"
	"github.com/pthm-cable/verdant/oracle"
	"github.com/pthm-cable/verdant/resource"
)

// snapshotVersion guards against loading snapshots from an incompatible
// layout.
const snapshotVersion = 1

var ErrSnapshotVersion = fault.New(fault.Validation, "unsupported snapshot version")

// Snapshot captures the full world at a tick: population and checkpoint
// history, resource pools and allocations, decay records and ledger, and
// the oracle's validators, rounds, and history.
type Snapshot struct {
	Version   int            `json:"version"`
	Tick      uint64         `json:"tick"`
	Seed      int64          `json:"seed"`
	Growth    growth.State   `json:"growth"`
	Resources resource.State `json:"resources"`
	Decay     decay.State    `json:"decay"`
	Oracle    oracle.State   `json:"oracle"`
}

// SaveSnapshot writes the current world state to the snapshot directory
// and returns the file path.
func (s *Sim) SaveSnapshot() (string, error) {
	if s.opts.SnapshotDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.opts.SnapshotDir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	snap := Snapshot{
		Version:   snapshotVersion,
		Tick:      s.tick,
		Seed:      s.opts.Seed,
		Growth:    s.growth.Export(),
		Resources: s.resources.Export(),
		Decay:     s.decay.Export(),
		Oracle:    s.oracle.Export(),
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	path := filepath.Join(s.opts.SnapshotDir, fmt.Sprintf("snapshot_tick_%d.json", s.tick))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fault.Wrap("load snapshot", ErrSnapshotVersion)
	}
	return &snap, nil
}

// RestoreSnapshot replaces every engine's state with the snapshot's and
// fast-forwards the tick counter.
func (s *Sim) RestoreSnapshot(snap *Snapshot) {
	s.growth.RestoreState(snap.Growth)
	s.resources.Restore(snap.Resources)
	s.decay.Restore(snap.Decay)
	s.oracle.Restore(snap.Oracle)
	s.tick = snap.Tick
}
