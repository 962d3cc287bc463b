package engine

// transition classifies what a level change means for consumption
// accounting.
type transition int

const (
	transitionConsumption transition = iota
	transitionRefill
)

// classify treats a rise beyond the refill threshold as a top-up. A drop,
// or a rise within noise, is a consumption transition. A refill only resets
// the baseline; it never feeds the consumption totals.
func (e *Engine) classify(oldLevel, newLevel float64) transition {
	if newLevel > oldLevel+e.cfg.RefillThresholdPercent {
		return transitionRefill
	}
	return transitionConsumption
}

// consumptionDeltaPercent is the consumed share of the tank in percentage
// points, floored at zero for sub-threshold rises.
func consumptionDeltaPercent(oldLevel, newLevel float64) float64 {
	if d := oldLevel - newLevel; d > 0 {
		return d
	}
	return 0
}
