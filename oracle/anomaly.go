package oracle

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/verdant/fault"
	"github.com/pthm-cable/verdant/fixp"
)

// CheckAnomaly compares a data point against the moving average of its
// feed's recent validated history. The deviation is reported in basis
// points relative to the mean; it is anomalous when it exceeds the feed's
// configured threshold. Requires a full anomaly window of history.
func (c *Consensus) CheckAnomaly(dataPointID uint64) (bool, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dp, ok := c.dataPoints[dataPointID]
	if !ok {
		return false, 0, fault.Wrap("check anomaly", ErrDataPointNotFound)
	}
	feed, ok := c.params.Feeds[dp.Type]
	if !ok {
		return false, 0, fault.Wrap("check anomaly", ErrInvalidDataRange)
	}

	h := c.history[historyKey{OrganismID: dp.OrganismID, Type: dp.Type}]
	if len(h) < c.params.AnomalyWindow {
		return false, 0, fault.Wrap("check anomaly", ErrInsufficientHistory)
	}

	window := make([]float64, c.params.AnomalyWindow)
	for i, v := range h[len(h)-c.params.AnomalyWindow:] {
		window[i] = float64(v)
	}
	mean := stat.Mean(window, nil)

	diff := math.Abs(float64(dp.Value) - mean)
	if mean == 0 {
		if diff == 0 {
			return false, 0, nil
		}
		return true, math.MaxUint64, nil
	}
	deviationBP := uint64(diff * float64(fixp.ScaleBP) / math.Abs(mean))
	return deviationBP > feed.DeviationThresholdBP, deviationBP, nil
}
