package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if cfg.Growth.TicksPerDay != 7200 {
		t.Errorf("ticks_per_day = %d, want 7200", cfg.Growth.TicksPerDay)
	}
	if len(cfg.Resources.Definitions) != 6 {
		t.Errorf("resource definitions = %d, want 6", len(cfg.Resources.Definitions))
	}
	if len(cfg.Decay.Stages) != 5 {
		t.Errorf("decay stages = %d, want 5", len(cfg.Decay.Stages))
	}
	if cfg.Oracle.Quorum != 3 {
		t.Errorf("quorum = %d, want 3", cfg.Oracle.Quorum)
	}
	if len(cfg.Oracle.Feeds) != 10 {
		t.Errorf("feeds = %d, want 10", len(cfg.Oracle.Feeds))
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	overlay := []byte("oracle:\n  min_stake: 5000\n  quorum: 5\n")
	if err := os.WriteFile(path, overlay, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load overlay: %v", err)
	}
	if cfg.Oracle.MinStake != 5000 || cfg.Oracle.Quorum != 5 {
		t.Errorf("overlay not applied: min_stake=%d quorum=%d", cfg.Oracle.MinStake, cfg.Oracle.Quorum)
	}
	// Untouched sections keep defaults.
	if cfg.Growth.MaxGrowthRate != 1000 {
		t.Errorf("default lost: max_growth_rate = %d", cfg.Growth.MaxGrowthRate)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	overlay := []byte("growth:\n  min_growth_rate: 100\n  max_growth_rate: 10\n")
	if err := os.WriteFile(path, overlay, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("inverted growth-rate bounds should fail validation")
	}
}
