// Package config provides configuration loading and access for the
// lifecycle engines. Values load from embedded defaults, optionally
// overlaid by a user-supplied YAML file.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine parameters.
type Config struct {
	Growth    GrowthConfig    `yaml:"growth"`
	Resources ResourcesConfig `yaml:"resources"`
	Decay     DecayConfig     `yaml:"decay"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Scenario  ScenarioConfig  `yaml:"scenario"`
}

// GrowthConfig holds organism lifecycle parameters.
type GrowthConfig struct {
	TicksPerDay   uint64 `yaml:"ticks_per_day"`   // tick-to-day conversion for rate math
	MinGrowthRate uint64 `yaml:"min_growth_rate"` // basis points per tick
	MaxGrowthRate uint64 `yaml:"max_growth_rate"` // basis points per tick
	InitialHealth uint64 `yaml:"initial_health"`  // 0..10000
}

// ResourcesConfig holds the resource pool definitions.
type ResourcesConfig struct {
	ClaimRateBP uint64        `yaml:"claim_rate_bp"` // released share of an allocation per tick
	Definitions []ResourceDef `yaml:"definitions"`
}

// ResourceDef defines one resource type's pool.
type ResourceDef struct {
	Type          string `yaml:"type"`
	Capacity      uint64 `yaml:"capacity"`
	ReplenishRate uint64 `yaml:"replenish_rate"` // units per tick
	MinAllocation uint64 `yaml:"min_allocation"`
	MaxAllocation uint64 `yaml:"max_allocation"`
}

// DecayConfig holds decomposition kinetics parameters.
type DecayConfig struct {
	// Stages must list exactly the five decay stages in order
	// (fresh, active_decay, advanced_decay, dry_remains, compost).
	Stages []DecayStageParams `yaml:"stages"`

	// AdditiveFactors maps additive name to immediate biomass reduction
	// in basis points; DefaultAdditiveBP applies to unknown additives.
	AdditiveFactors   map[string]uint64 `yaml:"additive_factors"`
	DefaultAdditiveBP uint64            `yaml:"default_additive_bp"`

	// ConversionRates maps resource type name to compost-to-resource
	// conversion rate in basis points.
	ConversionRates map[string]uint64 `yaml:"conversion_rates"`

	Nutrients NutrientConfig `yaml:"nutrients"`
	Defaults  EnvDefaults    `yaml:"environment_defaults"`
}

// DecayStageParams parameterizes the kinetics of one decay stage.
type DecayStageParams struct {
	Name           string `yaml:"name"`
	BaseRateBP     uint64 `yaml:"base_rate_bp"`    // biomass share lost per day at full efficiency
	OptTemperature int64  `yaml:"opt_temperature"` // degrees Celsius x100
	OptHumidity    uint64 `yaml:"opt_humidity"`    // 0..10000
	OptOxygen      uint64 `yaml:"opt_oxygen"`      // 0..10000
	CompostYieldBP uint64 `yaml:"compost_yield_bp"`
}

// NutrientConfig sets the fixed byproduct recovery ratios applied to
// biomass lost across a stage transition.
type NutrientConfig struct {
	NitrogenBP   uint64 `yaml:"nitrogen_bp"`
	PhosphorusBP uint64 `yaml:"phosphorus_bp"`
	PotassiumBP  uint64 `yaml:"potassium_bp"`
}

// EnvDefaults is the environment assigned when decay is initiated.
type EnvDefaults struct {
	Temperature       int64  `yaml:"temperature"` // x100
	Humidity          uint64 `yaml:"humidity"`
	Oxygen            uint64 `yaml:"oxygen"`
	MicrobialActivity uint64 `yaml:"microbial_activity"`
}

// OracleConfig holds consensus parameters.
type OracleConfig struct {
	MinStake         uint64           `yaml:"min_stake"`
	Quorum           int              `yaml:"quorum"`
	ValidationWindow uint64           `yaml:"validation_window"` // ticks until a request expires
	WithdrawCooldown uint64           `yaml:"withdraw_cooldown"` // ticks since last activity
	RewardPool       uint64           `yaml:"reward_pool"`       // split among majority validators
	HistoryWindow    int              `yaml:"history_window"`    // retained validated values per feed
	AnomalyWindow    int              `yaml:"anomaly_window"`    // moving-average sample size
	Reputation       ReputationConfig `yaml:"reputation"`
	Feeds            []FeedDef        `yaml:"feeds"`
	TrustedProviders []string         `yaml:"trusted_providers"`
}

// ReputationConfig tunes validator reputation movement.
type ReputationConfig struct {
	Initial      uint64 `yaml:"initial"`
	Gain         uint64 `yaml:"gain"`
	Loss         uint64 `yaml:"loss"`
	SlashPenalty uint64 `yaml:"slash_penalty"`
}

// FeedDef bounds one data type and sets its anomaly threshold.
type FeedDef struct {
	Type                 string `yaml:"type"`
	Min                  int64  `yaml:"min"`
	Max                  int64  `yaml:"max"`
	DeviationThresholdBP uint64 `yaml:"deviation_threshold_bp"`
}

// TelemetryConfig holds stats collection settings.
type TelemetryConfig struct {
	WindowTicks uint64 `yaml:"window_ticks"`
}

// ScenarioConfig drives the headless demo loop.
type ScenarioConfig struct {
	InitialOrganisms int          `yaml:"initial_organisms"`
	Species          []SpeciesDef `yaml:"species"`
	StageInterval    uint64       `yaml:"stage_interval"`    // ticks between stage advances
	AllocateInterval uint64       `yaml:"allocate_interval"` // ticks between allocation rounds
	SubmitInterval   uint64       `yaml:"submit_interval"`   // ticks between oracle submissions
	DecayInterval    uint64       `yaml:"decay_interval"`    // ticks between decay batch runs
}

// SpeciesDef is a founder template for scenario organisms.
type SpeciesDef struct {
	Name           string `yaml:"name"`
	InitialBiomass uint64 `yaml:"initial_biomass"`
	GrowthRate     uint64 `yaml:"growth_rate"`
	Owner          string `yaml:"owner"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct - only fields present in the
		// file overwrite defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations the engines cannot run on.
func (c *Config) validate() error {
	if c.Growth.TicksPerDay == 0 {
		return fmt.Errorf("growth.ticks_per_day must be positive")
	}
	if c.Growth.MinGrowthRate == 0 || c.Growth.MaxGrowthRate < c.Growth.MinGrowthRate {
		return fmt.Errorf("growth rate bounds invalid: [%d, %d]", c.Growth.MinGrowthRate, c.Growth.MaxGrowthRate)
	}
	if len(c.Decay.Stages) != 5 {
		return fmt.Errorf("decay.stages must list the five decay stages, got %d", len(c.Decay.Stages))
	}
	for _, s := range c.Decay.Stages {
		if s.OptTemperature <= 0 || s.OptHumidity == 0 || s.OptOxygen == 0 {
			return fmt.Errorf("decay stage %q has a zero environmental optimum", s.Name)
		}
	}
	if c.Oracle.Quorum <= 0 {
		return fmt.Errorf("oracle.quorum must be positive")
	}
	if c.Oracle.AnomalyWindow <= 0 || c.Oracle.HistoryWindow < c.Oracle.AnomalyWindow {
		return fmt.Errorf("oracle history window %d too small for anomaly window %d",
			c.Oracle.HistoryWindow, c.Oracle.AnomalyWindow)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
