package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a tick window.
type WindowStats struct {
	WindowStartTick uint64 `csv:"-"`
	WindowEndTick   uint64 `csv:"window_end"`

	// Population counts at window end
	ActiveOrganisms    int `csv:"organisms"`
	ActiveDecays       int `csv:"decays"`
	PendingValidations int `csv:"pending_validations"`

	// Events during window
	OrganismsCreated int `csv:"organisms_created"`
	StageTransitions int `csv:"stage_transitions"`
	Deactivations    int `csv:"deactivations"`

	// Resource flow
	AllocationsGranted int     `csv:"allocations_granted"`
	AllocationsQueued  int     `csv:"allocations_queued"`
	GrantRate          float64 `csv:"grant_rate"`
	Claims             int     `csv:"claims"`
	ClaimedAmount      uint64  `csv:"claimed_amount"`

	// Decomposition
	CompostGenerated uint64 `csv:"compost_generated"`
	DecayCompletions int    `csv:"decay_completions"`

	// Oracle activity
	DataSubmitted int `csv:"data_submitted"`
	DataValidated int `csv:"data_validated"`
	DataRejected  int `csv:"data_rejected"`
	DataExpired   int `csv:"data_expired"`
	Anomalies     int `csv:"anomalies"`

	// Health distribution (sampled at window end)
	HealthMean float64 `csv:"health_mean"`
	HealthP10  float64 `csv:"health_p10"`
	HealthP50  float64 `csv:"health_p50"`
	HealthP90  float64 `csv:"health_p90"`
}

// ComputeHealthStats calculates mean and percentiles from health values.
func ComputeHealthStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Int("organisms", s.ActiveOrganisms),
		slog.Int("decays", s.ActiveDecays),
		slog.Int("pending_validations", s.PendingValidations),
		slog.Int("organisms_created", s.OrganismsCreated),
		slog.Int("stage_transitions", s.StageTransitions),
		slog.Int("deactivations", s.Deactivations),
		slog.Int("allocations_granted", s.AllocationsGranted),
		slog.Int("allocations_queued", s.AllocationsQueued),
		slog.Float64("grant_rate", s.GrantRate),
		slog.Int("claims", s.Claims),
		slog.Uint64("claimed_amount", s.ClaimedAmount),
		slog.Uint64("compost_generated", s.CompostGenerated),
		slog.Int("decay_completions", s.DecayCompletions),
		slog.Int("data_submitted", s.DataSubmitted),
		slog.Int("data_validated", s.DataValidated),
		slog.Int("data_rejected", s.DataRejected),
		slog.Int("data_expired", s.DataExpired),
		slog.Int("anomalies", s.Anomalies),
		slog.Float64("health_mean", s.HealthMean),
		slog.Float64("health_p10", s.HealthP10),
		slog.Float64("health_p50", s.HealthP50),
		slog.Float64("health_p90", s.HealthP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"organisms", s.ActiveOrganisms,
		"decays", s.ActiveDecays,
		"pending_validations", s.PendingValidations,
		"organisms_created", s.OrganismsCreated,
		"stage_transitions", s.StageTransitions,
		"deactivations", s.Deactivations,
		"allocations_granted", s.AllocationsGranted,
		"allocations_queued", s.AllocationsQueued,
		"grant_rate", s.GrantRate,
		"claims", s.Claims,
		"claimed_amount", s.ClaimedAmount,
		"compost_generated", s.CompostGenerated,
		"decay_completions", s.DecayCompletions,
		"data_submitted", s.DataSubmitted,
		"data_validated", s.DataValidated,
		"data_rejected", s.DataRejected,
		"data_expired", s.DataExpired,
		"anomalies", s.Anomalies,
		"health_mean", s.HealthMean,
		"health_p10", s.HealthP10,
		"health_p50", s.HealthP50,
		"health_p90", s.HealthP90,
	)
}
