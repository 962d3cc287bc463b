package engine

import "math"

// DaysUntilEmpty projects time to depletion at the given daily rate,
// rounded to one decimal place. ok is false when the rate is unavailable or
// below the minimum-significance threshold: an effectively-zero rate must
// yield "unknown", not a division fault or a misleading five-digit number.
func (e *Engine) DaysUntilEmpty(volumeLitres, dailyRateLitres float64) (days float64, ok bool) {
	if dailyRateLitres < e.cfg.MinRateLitres {
		return 0, false
	}
	if volumeLitres < 0 {
		volumeLitres = 0
	}
	return math.Round(volumeLitres/dailyRateLitres*10) / 10, true
}
